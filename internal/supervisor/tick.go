package supervisor

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/hostloop/internal/crashguard"
	"github.com/roach88/hostloop/internal/events"
	"github.com/roach88/hostloop/internal/host"
	"github.com/roach88/hostloop/internal/lifecycle"
	"github.com/roach88/hostloop/internal/watcher"
)

// OnAdvance is the host's per-tick call site.
//
// It always returns control to the host. The returned error is non-nil only
// once the supervisor is cancelled (the cancellation cause, a
// *crashguard.FatalError after a crash); the host should stop ticking then.
// Host failures below the crash guard ceiling are logged, not returned.
func (s *Supervisor) OnAdvance(ctx context.Context, tc host.TickContext) error {
	s.deferred.Flush(ctx, s.logger)

	if err := s.guard.Err(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.tick++
	s.events.SetTick(s.tick)

	ctx, span := s.tracer.Start(ctx, "supervisor.tick",
		trace.WithAttributes(attribute.Int64("hostloop.tick", int64(s.tick))),
	)
	defer span.End()

	err := s.advance(ctx, tc)
	if err == nil {
		s.guard.Succeed(crashguard.PhaseAdvance)
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return s.hostFailed(crashguard.PhaseAdvance, err)
}

// hostFailed logs a host failure, counts it, and returns the fatal error if
// the counter was exhausted.
func (s *Supervisor) hostFailed(phase crashguard.Phase, err error) error {
	fatal := s.guard.Fail(phase, err)

	counter := s.guard.Advance
	if phase == crashguard.PhaseRender {
		counter = s.guard.Render
	}
	attrs := []any{"phase", phase, "tick", s.tick, "remaining", counter.Remaining(), "error", err}
	var hp *HostPanicError
	if errors.As(err, &hp) {
		attrs = append(attrs, "stack", string(hp.Stack))
	}
	s.logger.Error("host call failed", attrs...)

	if fatal != nil {
		s.logger.Error("fatal: "+fatal.Error(), "phase", phase, "tick", s.tick)
		s.queue.Close()
		return fatal
	}
	return nil
}

// advance runs steps 3 to 6 of the tick.
func (s *Supervisor) advance(ctx context.Context, tc host.TickContext) error {
	if !s.launched {
		s.launched = true
		s.events.RaiseEmpty(events.GameLaunched)
	}

	if err := s.driveLoader(); err != nil {
		return err
	}

	if err := s.runPendingTask(); err != nil {
		return err
	}

	status := s.host.SaveStatus()
	if status.InProgress {
		return s.suppressedTick(ctx, tc, status)
	}
	if s.saving {
		s.finishSave()
	}

	s.drainCommands()
	s.applyExtensionChanges()

	failed := s.updateWatchers()
	stageChanged := s.syncStage()
	worldActive := s.stage.Current() == lifecycle.Ready && !stageChanged

	batches := s.collectEvents(failed, worldActive)
	for _, batch := range batches {
		for _, ev := range batch {
			s.events.Raise(ev.ch, ev.payload)
		}
	}
	s.resetWatchers(failed)

	return s.advanceHost(ctx, tc)
}

// advanceHost raises the update pair around the host's own tick logic.
func (s *Supervisor) advanceHost(ctx context.Context, tc host.TickContext) error {
	oneSecond := s.tick%uint64(s.tickRate) == 0

	s.events.RaiseEmpty(events.UpdateTicking)
	if oneSecond {
		s.events.RaiseEmpty(events.OneSecondUpdateTicking)
	}

	if err := s.callAdvance(ctx, tc); err != nil {
		return err
	}

	s.events.RaiseEmpty(events.UpdateTicked)
	if oneSecond {
		s.events.RaiseEmpty(events.OneSecondUpdateTicked)
	}
	return nil
}

func (s *Supervisor) callAdvance(ctx context.Context, tc host.TickContext) error {
	_, span := s.tracer.Start(ctx, "host.advance")
	defer span.End()

	if err := callHost("advance", func() error { return s.host.Advance(tc) }); err != nil {
		return fmt.Errorf("advance tick %d: %w", tc.Tick, err)
	}
	return nil
}

// driveLoader runs an active loader to completion within this tick.
func (s *Supervisor) driveLoader() error {
	loader := s.host.Loader()
	if loader == nil {
		return nil
	}

	for i := 0; i < maxLoaderSteps; i++ {
		var (
			milestone host.LoadMilestone
			done      bool
		)
		err := callHost("loader", func() error {
			var stepErr error
			milestone, done, stepErr = loader.Step()
			return stepErr
		})
		if err != nil {
			s.transition(lifecycle.Unloaded)
			return fmt.Errorf("load save: %w", err)
		}
		if stage, ok := stageFor(milestone); ok {
			s.transition(stage)
		}
		if done {
			return nil
		}
	}
	return fmt.Errorf("load save: loader did not finish within %d steps", maxLoaderSteps)
}

func stageFor(m host.LoadMilestone) (lifecycle.Stage, bool) {
	switch m {
	case host.MilestoneSaveParsed:
		return lifecycle.SaveParsed, true
	case host.MilestoneBasicInfoLoaded:
		return lifecycle.BasicInfoLoaded, true
	case host.MilestoneLocationsLoaded:
		return lifecycle.LocationsLoaded, true
	case host.MilestonePreloaded:
		return lifecycle.Preloaded, true
	case host.MilestoneLoaded:
		return lifecycle.Loaded, true
	}
	return lifecycle.Unloaded, false
}

// transition moves the tracker and logs rejected transitions.
func (s *Supervisor) transition(next lifecycle.Stage) bool {
	changed, err := s.stage.Transition(next)
	if err != nil {
		s.logger.Warn("lifecycle transition rejected", "tick", s.tick, "error", err)
		return false
	}
	if changed {
		s.logger.Debug("lifecycle stage changed", "tick", s.tick, "stage", next)
	}
	return changed
}

// syncStage derives Ready and Unloaded from host state. Reports whether the
// stage changed. A host that starts with a world already loaded skips the
// loader stages.
func (s *Supervisor) syncStage() bool {
	cur := s.stage.Current()
	saveID := s.host.SaveID()
	switch {
	case cur != lifecycle.Unloaded && saveID == "":
		return s.transition(lifecycle.Unloaded)
	case cur != lifecycle.Ready && saveID != "" && s.host.IsWorldReady():
		return s.transition(lifecycle.Ready)
	}
	return false
}

// runPendingTask runs an unstarted host task synchronously so extensions
// never observe its partial effects.
func (s *Supervisor) runPendingTask() error {
	task := s.host.PendingTask()
	if task == nil || task.Started() {
		return nil
	}

	s.events.RaiseEmpty(events.DayEnding)
	if err := callHost("task", task.Run); err != nil {
		return fmt.Errorf("run pending task: %w", err)
	}
	return nil
}

// suppressedTick handles a tick during which the host is writing a save.
//
// Only saving/save_creating may be raised, once per save. Watcher baselines
// are re-captured without raising so that the state the save left behind is
// not reported once observation resumes.
func (s *Supervisor) suppressedTick(ctx context.Context, tc host.TickContext, status host.SaveStatus) error {
	if !s.saving {
		s.saving = true
		s.newGame = status.NewGame
		if status.NewGame {
			s.events.RaiseEmpty(events.SaveCreating)
		} else {
			s.events.RaiseEmpty(events.Saving)
		}
	}

	s.rebaseline()
	return s.callAdvance(ctx, tc)
}

// finishSave raises the completion event of the save that just ended, then
// day_started for the day the save rolled into.
func (s *Supervisor) finishSave() {
	s.saving = false
	if s.newGame {
		s.events.RaiseEmpty(events.SaveCreated)
	} else {
		s.events.RaiseEmpty(events.Saved)
	}
	s.newGame = false
	if s.stage.Current() == lifecycle.Ready {
		s.events.RaiseEmpty(events.DayStarted)
	}
}

// drainCommands executes the console lines queued when the drain starts.
func (s *Supervisor) drainCommands() {
	// Lines queued while draining wait for the next tick.
	for n := s.queue.Len(); n > 0; n-- {
		line, ok := s.queue.TryDequeue()
		if !ok {
			return
		}
		if err := s.commands.Execute(line); err != nil {
			s.logger.Warn("console command failed", "command", line, "tick", s.tick, "error", err)
		}
	}
}

// updateWatchers captures every watcher and returns the domains whose
// update failed.
func (s *Supervisor) updateWatchers() map[string]error {
	failed := make(map[string]error)
	for _, nw := range s.domains.ordered() {
		if err := watcher.Safe(nw.name, nw.w.Update); err != nil {
			failed[nw.name] = err
			s.logWatcherFailure(nw.name, err)
		}
	}
	for _, ew := range s.extensions {
		key := extensionKey(ew)
		if err := watcher.Safe(key, ew.w.Update); err != nil {
			failed[key] = err
			s.logWatcherFailure(key, err)
		}
	}
	return failed
}

// collectEvents computes all diffs before anything is raised. A domain
// whose diff panics is skipped and keeps its baseline.
func (s *Supervisor) collectEvents(failed map[string]error, worldActive bool) []eventBatch {
	var batches []eventBatch

	for _, nw := range s.domains.ordered() {
		if _, bad := failed[nw.name]; bad {
			continue
		}
		if worldScoped(nw.name) && !worldActive {
			continue
		}
		var b eventBatch
		if err := watcher.Safe(nw.name, func() { s.domains.collect(nw.name, &b) }); err != nil {
			failed[nw.name] = err
			s.logWatcherFailure(nw.name, err)
			continue
		}
		batches = append(batches, b)
	}

	for _, ew := range s.extensions {
		key := extensionKey(ew)
		if _, bad := failed[key]; bad {
			continue
		}
		var b eventBatch
		if err := watcher.Safe(key, func() {
			if !ew.w.IsChanged() {
				return
			}
			var payload any
			if p, ok := ew.w.(watcher.Payloader); ok {
				payload = p.Payload()
			}
			b.add(ew.channel, payload)
		}); err != nil {
			failed[key] = err
			s.logWatcherFailure(key, err)
			continue
		}
		batches = append(batches, b)
	}

	return batches
}

// resetWatchers commits every baseline except those of failed domains.
func (s *Supervisor) resetWatchers(failed map[string]error) {
	for _, nw := range s.domains.ordered() {
		if _, bad := failed[nw.name]; !bad {
			nw.w.Reset()
		}
	}
	for _, ew := range s.extensions {
		if _, bad := failed[extensionKey(ew)]; !bad {
			ew.w.Reset()
		}
	}
}

// rebaseline re-captures every watcher without raising.
func (s *Supervisor) rebaseline() {
	failed := s.updateWatchers()
	s.resetWatchers(failed)
}

func extensionKey(ew *extensionWatcher) string {
	return fmt.Sprintf("%s#%d", ew.owner, ew.id)
}
