// Command hostloop runs the host loop supervisor against the simulated host,
// queries its event journal, and runs scenario files.
package main

import (
	"os"

	"github.com/roach88/hostloop/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	root.SilenceErrors = true

	if err := root.Execute(); err != nil {
		format, _ := root.PersistentFlags().GetString("format")
		if format != "json" {
			format = "text"
		}
		f := &cli.OutputFormatter{Format: format, Writer: os.Stderr}
		os.Exit(f.Fail(err))
	}
}
