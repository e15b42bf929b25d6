package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/hostloop/internal/crashguard"
	"github.com/roach88/hostloop/internal/events"
	"github.com/roach88/hostloop/internal/host"
	"github.com/roach88/hostloop/internal/journal"
	"github.com/roach88/hostloop/internal/simhost"
	"github.com/roach88/hostloop/internal/supervisor"
	"github.com/roach88/hostloop/internal/testutil"
)

// Harness executes one scenario against a fresh simulated host.
type Harness struct {
	host   *simhost.Host
	sup    *supervisor.Supervisor
	rec    *testutil.Recorder
	out    bytes.Buffer
	frame  uint64
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each run gets a fresh host, event manager and supervisor. Subscription
// tokens are sequential, so traces are identical across runs.
//
// Execution flow:
//  1. Build the host (title screen, or loaded when scenario.Loaded)
//  2. Apply setup actions
//  3. Execute ticks steps in order; after a fatal shutdown the remaining
//     steps are skipped
//  4. Evaluate assertions against the recorded trace
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	h := newHarness(scenario)

	for i, a := range scenario.Setup {
		if err := applyAction(h.host, a.Action, &a.Args); err != nil {
			return nil, fmt.Errorf("setup[%d]: %w", i, err)
		}
	}

	if err := h.execute(ctx, scenario.Ticks); err != nil {
		return nil, err
	}

	result, err := h.result()
	if err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(scenario *Scenario) *Harness {
	opts := simhost.Options{
		TicksPerTenMinutes: scenario.Options.TicksPerTenMinutes,
		SaveTicks:          scenario.Options.SaveTicks,
		WanderEvery:        scenario.Options.WanderEvery,
	}
	var hst *simhost.Host
	if scenario.Loaded {
		hst = simhost.NewLoaded(opts)
	} else {
		hst = simhost.New(opts)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in scenarios
	m := events.NewManager(
		events.WithTokenGenerator(testutil.NewSequentialTokens("sub")),
		events.WithLogger(logger),
	)

	h := &Harness{
		host:   hst,
		rec:    testutil.NewRecorder(m),
		logger: logger,
	}
	h.sup = supervisor.New(hst,
		supervisor.WithEventManager(m),
		supervisor.WithLogger(logger),
		supervisor.WithTickRate(scenario.Options.TickRate),
		supervisor.WithCrashGuard(
			ceiling(scenario.Options.AdvanceCeiling),
			ceiling(scenario.Options.RenderCeiling),
		),
		supervisor.WithCommandOutput(&h.out),
	)
	return h
}

func (h *Harness) execute(ctx context.Context, steps []Step) error {
	for i, step := range steps {
		if h.sup.Fatal() != nil {
			h.logger.Info("skipping steps after fatal shutdown", "step", i)
			return nil
		}

		switch {
		case step.Advance > 0:
			for n := 0; n < step.Advance; n++ {
				tc := host.TickContext{Tick: h.sup.Tick() + 1}
				if err := h.sup.OnAdvance(ctx, tc); err != nil {
					break
				}
			}
		case step.Render > 0:
			for n := 0; n < step.Render; n++ {
				h.frame++
				if err := h.sup.OnRender(ctx, host.RenderContext{Frame: h.frame}); err != nil {
					break
				}
			}
		case step.Command != "":
			if !h.sup.Enqueue(step.Command) {
				return fmt.Errorf("ticks[%d]: command queue rejected %q", i, step.Command)
			}
		case step.Action != "":
			if err := applyAction(h.host, step.Action, &step.Args); err != nil {
				return fmt.Errorf("ticks[%d]: %w", i, err)
			}
		}
	}
	return nil
}

func (h *Harness) result() (*Result, error) {
	result := NewResult()
	for _, ev := range h.rec.Events() {
		payload, err := journal.Canonical(ev.Payload)
		if err != nil {
			return nil, fmt.Errorf("trace seq %d: %w", ev.Seq, err)
		}
		result.Trace = append(result.Trace, TraceEvent{
			Tick:    ev.Tick,
			Seq:     ev.Seq,
			Channel: string(ev.Channel),
			Payload: payload,
		})
	}
	result.Stage = h.sup.Stage().String()
	result.Ticks = h.sup.Tick()
	result.Output = h.out.String()
	if fatal := h.sup.Fatal(); fatal != nil {
		result.Fatal = string(fatal.Phase)
	}
	return result, nil
}

func ceiling(n int) int {
	if n <= 0 {
		return crashguard.DefaultCeiling
	}
	return n
}
