package supervisor

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/hostloop/internal/crashguard"
	"github.com/roach88/hostloop/internal/events"
	"github.com/roach88/hostloop/internal/host"
)

var phaseChannels = map[host.RenderPhase][2]events.Channel{
	host.PhaseWorld:      {events.RenderingWorld, events.RenderedWorld},
	host.PhaseHUD:        {events.RenderingHUD, events.RenderedHUD},
	host.PhaseActiveMenu: {events.RenderingActiveMenu, events.RenderedActiveMenu},
}

// renderHooks raises the per-phase pairs while the host draws.
type renderHooks struct {
	s     *Supervisor
	frame uint64
}

func (h renderHooks) Before(phase host.RenderPhase) {
	if chs, ok := phaseChannels[phase]; ok {
		h.s.events.Raise(chs[0], RenderArgs{Frame: h.frame, Phase: phase})
	}
}

func (h renderHooks) After(phase host.RenderPhase) {
	if chs, ok := phaseChannels[phase]; ok {
		h.s.events.Raise(chs[1], RenderArgs{Frame: h.frame, Phase: phase})
	}
}

// OnRender is the host's per-frame call site. It follows the same
// catch/count/fatal pattern as OnAdvance with its own counter.
func (s *Supervisor) OnRender(ctx context.Context, rc host.RenderContext) error {
	if err := s.guard.Err(); err != nil {
		return err
	}

	s.frame++
	_, span := s.tracer.Start(ctx, "supervisor.render",
		trace.WithAttributes(
			attribute.Int64("hostloop.tick", int64(s.tick)),
			attribute.Int64("hostloop.frame", int64(s.frame)),
		),
	)
	defer span.End()

	hooks := renderHooks{s: s, frame: s.frame}
	s.events.Raise(events.Rendering, RenderArgs{Frame: s.frame})

	err := callHost("render", func() error { return s.host.Render(rc, hooks) })
	if err == nil {
		s.events.Raise(events.Rendered, RenderArgs{Frame: s.frame})
		s.guard.Succeed(crashguard.PhaseRender)
		return nil
	}

	err = fmt.Errorf("render frame %d: %w", rc.Frame, err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return s.hostFailed(crashguard.PhaseRender, err)
}
