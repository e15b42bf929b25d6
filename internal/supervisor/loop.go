package supervisor

import (
	"context"
	"time"

	"github.com/roach88/hostloop/internal/host"
)

// Run drives the host at the configured tick rate, calling OnAdvance then
// OnRender on every tick, until ctx is cancelled, the supervisor is
// stopped or crashes, or maxTicks ticks have run (0 means no limit).
//
// CRITICAL: Must be called from exactly ONE goroutine; it is the host loop.
//
// Returns nil on a clean stop (ctx cancelled, Stop, or tick limit) and the
// *crashguard.FatalError after a crash.
func (s *Supervisor) Run(ctx context.Context, maxTicks uint64) error {
	interval := time.Second / time.Duration(s.tickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("supervisor starting", "tick_rate", s.tickRate, "max_ticks", maxTicks)

	for n := uint64(1); maxTicks == 0 || n <= maxTicks; n++ {
		if err := s.step(ctx, n); err != nil {
			return s.stopReason(err)
		}

		select {
		case <-ctx.Done():
			s.logger.Info("supervisor stopping: context cancelled")
			return nil
		case <-s.Done():
			return s.stopReason(s.Err())
		case <-ticker.C:
		}
	}

	s.logger.Info("supervisor stopping: tick limit reached", "ticks", s.tick)
	return nil
}

// RunTicks runs n ticks back to back without waiting between them. Used by
// the scenario harness and tests.
func (s *Supervisor) RunTicks(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := s.step(ctx, s.tick+1); err != nil {
			return err
		}
	}
	return nil
}

func (s *Supervisor) step(ctx context.Context, n uint64) error {
	if err := s.OnAdvance(ctx, host.TickContext{Tick: n}); err != nil {
		return err
	}
	return s.OnRender(ctx, host.RenderContext{Frame: n})
}

// stopReason maps a stop cause to Run's return value.
func (s *Supervisor) stopReason(err error) error {
	if fatal := s.Fatal(); fatal != nil {
		return fatal
	}
	if err != nil {
		s.logger.Info("supervisor stopping", "cause", err)
	}
	return nil
}
