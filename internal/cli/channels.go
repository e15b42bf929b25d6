package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/hostloop/internal/events"
)

// NewChannelsCommand creates the channels command.
func NewChannelsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "List the event channels the supervisor defines",
		Long: `List every built-in event channel, in name order. Extensions may define
more at runtime.

Examples:
  hostloop channels
  hostloop channels --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listChannels(rootOpts, cmd)
		},
	}
}

func listChannels(opts *RootOptions, cmd *cobra.Command) error {
	m := events.NewManager(events.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	infos := m.Channels()
	if opts.Format == "json" {
		f := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
		return f.Success(infos)
	}

	w := cmd.OutOrStdout()
	for _, info := range infos {
		fmt.Fprintln(w, info.Name)
	}
	return nil
}
