package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/hostloop/internal/command"
	"github.com/roach88/hostloop/internal/config"
	"github.com/roach88/hostloop/internal/crashguard"
	"github.com/roach88/hostloop/internal/events"
	"github.com/roach88/hostloop/internal/journal"
	"github.com/roach88/hostloop/internal/logging"
	"github.com/roach88/hostloop/internal/monitor"
	"github.com/roach88/hostloop/internal/simhost"
	"github.com/roach88/hostloop/internal/supervisor"
	"github.com/roach88/hostloop/internal/telemetry"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ConfigPath string
	Ticks      uint64
	Title      bool

	// Input overrides stdin as the console command source (for testing).
	Input io.Reader
}

// RunSummary is printed when the loop stops.
type RunSummary struct {
	Ticks   uint64 `json:"ticks"`
	Stage   string `json:"stage"`
	RunID   string `json:"run_id,omitempty"`
	Dropped int64  `json:"dropped,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the supervisor against the simulated host",
		Long: `Run the supervisor against the simulated host at the configured tick rate.

Each line read from stdin is queued as a console command and executed at the
start of the next tick. Events are journaled to SQLite when journal.path is
set and streamed over a loopback websocket when monitor.addr is set.

Configuration comes from --config (YAML) and HOSTLOOP_* environment
variables, e.g. HOSTLOOP_TICK_RATE=30 or HOSTLOOP_JOURNAL_PATH=./events.db.

Exit codes:
  0 - Stopped cleanly (tick limit, Ctrl-C, or quit)
  1 - The crash guard shut the loop down
  2 - Command error (bad config, database not writable, etc.)

Examples:
  hostloop run --ticks 600
  hostloop run --config ./hostloop.yaml --verbose
  HOSTLOOP_MONITOR_ADDR=127.0.0.1:7070 hostloop run`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHost(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.Flags().Uint64Var(&opts.Ticks, "ticks", 0, "stop after this many ticks (0 runs until interrupted)")
	cmd.Flags().BoolVar(&opts.Title, "title", false, "start on the title screen instead of a loaded save")

	return cmd
}

func runHost(opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to configure logging", err)
	}
	slog.SetDefault(logger)

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Trace.Endpoint)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up tracing", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("error flushing traces", "error", err)
		}
	}()

	m := events.NewManager(events.WithLogger(logger))

	var j *journal.Journal
	if cfg.Journal.Path != "" {
		j, err = journal.Open(cfg.Journal.Path, journal.WithLogger(logger))
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if err := j.Close(); err != nil {
				logger.Error("error closing journal", "error", err)
			}
		}()
		m.AddTap(j.Tap())
		logger.Info("journal ready", "path", cfg.Journal.Path, "run_id", j.RunID())
	}

	if cfg.Monitor.Addr != "" {
		ln, err := monitor.Listen(cfg.Monitor.Addr)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start monitor", err)
		}
		mon := monitor.New(cfg.Monitor.Buffer, logger)
		m.AddTap(mon.Tap())
		go func() {
			if err := mon.Serve(ctx, ln); err != nil {
				logger.Error("monitor stopped", "error", err)
			}
		}()
		logger.Info("monitor listening", "addr", ln.Addr().String())
	}

	var h *simhost.Host
	if opts.Title {
		h = simhost.New(simhost.Options{})
	} else {
		h = simhost.NewLoaded(simhost.Options{})
	}

	sup := supervisor.New(h,
		supervisor.WithEventManager(m),
		supervisor.WithLogger(logger),
		supervisor.WithTracer(telemetry.Tracer()),
		supervisor.WithTickRate(cfg.TickRate),
		supervisor.WithCrashGuard(cfg.CrashGuard.AdvanceCeiling, cfg.CrashGuard.RenderCeiling),
		supervisor.WithQueueCapacity(cfg.CommandQueue.Capacity),
		supervisor.WithCommandOutput(cmd.OutOrStdout()),
	)

	input := opts.Input
	if input == nil {
		input = cmd.InOrStdin()
	}
	go readCommands(input, sup.Queue(), logger)

	runErr := sup.Run(ctx, opts.Ticks)

	summary := RunSummary{
		Ticks: sup.Tick(),
		Stage: sup.Stage().String(),
	}
	if j != nil {
		summary.RunID = j.RunID()
		summary.Dropped = j.Dropped()
	}

	var fatal *crashguard.FatalError
	if errors.As(runErr, &fatal) {
		return WrapExitError(ExitFailure, "host loop crashed", fatal)
	}
	if runErr != nil {
		return WrapExitError(ExitFailure, "host loop error", runErr)
	}

	if opts.Format == "json" {
		f := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
		return f.Success(summary)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Stopped after %d ticks (stage %s)\n", summary.Ticks, summary.Stage)
	return nil
}

// readCommands queues each input line as a console command until input
// ends or the queue is closed.
func readCommands(r io.Reader, q *command.Queue, logger *slog.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := command.Submit(q, line); err != nil {
			if errors.Is(err, command.ErrQueueClosed) {
				logger.Debug("command queue closed, ignoring further input")
				return
			}
			logger.Warn("dropping command", "command", line, "error", err)
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Debug("command input closed", "error", err)
	}
}
