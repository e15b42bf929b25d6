package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/hostloop/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Channel  string
	FromTick uint64
	ToTick   uint64
	Limit    int
}

// TraceResult holds the trace output.
type TraceResult struct {
	Runs   []journal.Run   `json:"runs"`
	Events []journal.Entry `json:"events"`
	Stats  TraceStats      `json:"stats"`
}

// TraceStats summarizes the selected events.
type TraceStats struct {
	TotalEvents int            `json:"total_events"`
	Failed      int            `json:"failed"`
	ByChannel   map[string]int `json:"by_channel"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Query the event journal",
		Long: `Query events recorded in a journal database by "hostloop run".

Events are listed in raise order per run. Filters combine: a channel, a run,
and an inclusive tick range.

Examples:
  hostloop trace --db ./events.db
  hostloop trace --db ./events.db --channel world.location_list_changed
  hostloop trace --db ./events.db --from 100 --to 200 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to journal database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "restrict to one run ID")
	cmd.Flags().StringVar(&opts.Channel, "channel", "", "restrict to one channel")
	cmd.Flags().Uint64Var(&opts.FromTick, "from", 0, "first tick (inclusive)")
	cmd.Flags().Uint64Var(&opts.ToTick, "to", 0, "last tick (inclusive, 0 means no bound)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of events (0 means no limit)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	j, err := journal.OpenReader(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	runs, err := j.Runs(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	entries, err := j.Events(ctx, journal.Filter{
		RunID:    opts.RunID,
		Channel:  opts.Channel,
		FromTick: opts.FromTick,
		ToTick:   opts.ToTick,
		Limit:    opts.Limit,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to query events", err)
	}

	result := TraceResult{
		Runs:   runs,
		Events: entries,
		Stats:  buildStats(entries),
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd, result, opts.Verbose)
}

func buildStats(entries []journal.Entry) TraceStats {
	stats := TraceStats{
		TotalEvents: len(entries),
		ByChannel:   make(map[string]int),
	}
	for _, e := range entries {
		stats.ByChannel[e.Channel]++
		if e.Failed > 0 {
			stats.Failed++
		}
	}
	return stats
}

func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(CLIResponse{
		Status: "ok",
		Data:   result,
	})
}

func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	if len(result.Events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return nil
	}

	run := ""
	for _, e := range result.Events {
		if e.RunID != run {
			run = e.RunID
			fmt.Fprintf(w, "Run %s\n", run)
		}
		fmt.Fprintf(w, "  tick=%d seq=%d %s %s", e.Tick, e.Seq, e.Channel, e.Payload)
		if e.Failed > 0 {
			fmt.Fprintf(w, " (%d of %d handlers failed)", e.Failed, e.Invoked)
		}
		fmt.Fprintln(w)
		if verbose {
			fmt.Fprintf(w, "    hash=%s\n", e.PayloadHash)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Stats: %d events, %d with failed handlers, %d runs\n",
		result.Stats.TotalEvents, result.Stats.Failed, len(result.Runs))
	return nil
}
