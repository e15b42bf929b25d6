package supervisor

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/hostloop/internal/command"
	"github.com/roach88/hostloop/internal/crashguard"
	"github.com/roach88/hostloop/internal/events"
	"github.com/roach88/hostloop/internal/host"
	"github.com/roach88/hostloop/internal/lifecycle"
	"github.com/roach88/hostloop/internal/logging"
	"github.com/roach88/hostloop/internal/telemetry"
)

// DefaultTickRate is the host's nominal ticks per second.
const DefaultTickRate = 60

// maxLoaderSteps bounds a single synchronous loader drive.
const maxLoaderSteps = 10000

// Supervisor orchestrates watchers, lifecycle, dispatch and crash guarding
// around the host's advance and render calls.
//
// Thread-safety model:
//   - OnAdvance, OnRender and Run: one goroutine (the host loop)
//   - Enqueue, AddWatcher, RemoveWatcher, Stop, Stage: any goroutine
//   - Events(): the manager is safe for concurrent use
type Supervisor struct {
	host     host.Context
	events   *events.Manager
	stage    *lifecycle.Tracker
	guard    *crashguard.Guard
	queue    *command.Queue
	commands *command.Registry
	deferred *logging.Deferred
	logger   *slog.Logger
	tracer   trace.Tracer
	tickRate int

	advanceCeiling int
	renderCeiling  int
	queueCapacity  int
	commandOut     io.Writer
	onFatal        func(*crashguard.FatalError)

	domains *domains

	// extMu guards extPending, extNextID and extActive. extensions is
	// owned by the tick goroutine.
	extMu      sync.Mutex
	extPending []extensionChange
	extNextID  WatcherID
	extActive  map[WatcherID]struct{}
	extensions []*extensionWatcher

	tick     uint64
	frame    uint64
	launched bool
	saving   bool
	newGame  bool
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithEventManager uses m instead of a fresh manager.
func WithEventManager(m *events.Manager) Option {
	return func(s *Supervisor) { s.events = m }
}

// WithLogger sets the logger for supervisor diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) { s.logger = l }
}

// WithTracer overrides the tracer (tests use an in-memory span recorder).
func WithTracer(t trace.Tracer) Option {
	return func(s *Supervisor) { s.tracer = t }
}

// WithTickRate sets ticks per second; one_second_update events fire every
// rate ticks.
func WithTickRate(rate int) Option {
	return func(s *Supervisor) {
		if rate > 0 {
			s.tickRate = rate
		}
	}
}

// WithCrashGuard sets the consecutive failure ceilings.
//
// Default: 60 each (crashguard.DefaultCeiling).
// Use WithCrashGuard(5, 5) to test fatal shutdown.
func WithCrashGuard(advance, render int) Option {
	return func(s *Supervisor) {
		s.advanceCeiling = advance
		s.renderCeiling = render
	}
}

// WithQueueCapacity bounds the command queue. Zero is unbounded.
func WithQueueCapacity(n int) Option {
	return func(s *Supervisor) { s.queueCapacity = n }
}

// WithCommandOutput sets where console commands write (help output).
func WithCommandOutput(w io.Writer) Option {
	return func(s *Supervisor) { s.commandOut = w }
}

// WithDeferredLog shares a deferred log buffer with other components.
func WithDeferredLog(d *logging.Deferred) Option {
	return func(s *Supervisor) { s.deferred = d }
}

// WithOnFatal registers a callback invoked once on fatal shutdown.
func WithOnFatal(fn func(*crashguard.FatalError)) Option {
	return func(s *Supervisor) { s.onFatal = fn }
}

// New creates a supervisor for h. Domain watchers are created here and live
// as long as the supervisor.
func New(h host.Context, opts ...Option) *Supervisor {
	s := &Supervisor{
		host:           h,
		logger:         slog.Default(),
		tickRate:       DefaultTickRate,
		advanceCeiling: crashguard.DefaultCeiling,
		renderCeiling:  crashguard.DefaultCeiling,
		commandOut:     io.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.events == nil {
		s.events = events.NewManager(events.WithLogger(s.logger))
	}
	if s.tracer == nil {
		s.tracer = telemetry.Tracer()
	}
	if s.deferred == nil {
		s.deferred = logging.NewDeferred()
	}

	var guardOpts []crashguard.Option
	if s.onFatal != nil {
		guardOpts = append(guardOpts, crashguard.WithOnFatal(s.onFatal))
	}
	s.guard = crashguard.New(context.Background(), s.advanceCeiling, s.renderCeiling, guardOpts...)
	s.stage = lifecycle.NewTracker(s.events)
	s.queue = command.NewQueue(s.queueCapacity)
	s.commands = command.NewRegistry(s.commandOut)
	s.domains = newDomains(h)
	return s
}

// Events returns the dispatch manager extensions subscribe through.
func (s *Supervisor) Events() *events.Manager { return s.events }

// Commands returns the console command registry.
func (s *Supervisor) Commands() *command.Registry { return s.commands }

// Deferred returns the deferred log buffer flushed at the top of each tick.
func (s *Supervisor) Deferred() *logging.Deferred { return s.deferred }

// Stage returns the current lifecycle stage.
func (s *Supervisor) Stage() lifecycle.Stage { return s.stage.Current() }

// Tick returns the number of ticks processed so far.
func (s *Supervisor) Tick() uint64 { return s.tick }

// Enqueue submits a raw console command. Thread-safe: may be called from
// any goroutine. Returns false if the queue is full or closed.
func (s *Supervisor) Enqueue(raw string) bool {
	return s.queue.Enqueue(raw)
}

// Queue returns the command queue.
func (s *Supervisor) Queue() *command.Queue { return s.queue }

// Stop requests cooperative shutdown. Subsequent ticks do no work.
func (s *Supervisor) Stop(cause error) {
	s.guard.Cancel(cause)
	s.queue.Close()
}

// Done is closed once cancellation is signaled.
func (s *Supervisor) Done() <-chan struct{} { return s.guard.Done() }

// Err returns the cancellation cause, or nil while running. After a crash
// it is a *crashguard.FatalError.
func (s *Supervisor) Err() error { return s.guard.Err() }

// Fatal returns the fatal crash error, if the crash guard fired.
func (s *Supervisor) Fatal() *crashguard.FatalError { return s.guard.Fatal() }

// CrashGuard exposes the counters for diagnostics.
func (s *Supervisor) CrashGuard() *crashguard.Guard { return s.guard }
