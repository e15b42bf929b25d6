// Package lifecycle tracks the coarse save/load stage of the host.
//
// Stages only move forward, in the order declared below, except for the
// reset to Unloaded which is legal from any stage. Every effective
// transition raises specialized.load_stage_changed with a Change payload.
// Reaching Unloaded also raises game_loop.returned_to_title; reaching Ready
// also raises game_loop.save_loaded then game_loop.day_started.
package lifecycle

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/roach88/hostloop/internal/events"
)

// Stage is a lifecycle stage.
type Stage int32

const (
	Unloaded Stage = iota
	SaveParsed
	BasicInfoLoaded
	LocationsLoaded
	Preloaded
	Loaded
	Ready
)

var stageNames = [...]string{
	Unloaded:        "unloaded",
	SaveParsed:      "save_parsed",
	BasicInfoLoaded: "basic_info_loaded",
	LocationsLoaded: "locations_loaded",
	Preloaded:       "preloaded",
	Loaded:          "loaded",
	Ready:           "ready",
}

// String returns the snake_case stage name.
func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", int32(s))
}

// ParseStage is the inverse of String.
func ParseStage(name string) (Stage, error) {
	for i, n := range stageNames {
		if n == name {
			return Stage(i), nil
		}
	}
	return Unloaded, fmt.Errorf("unknown lifecycle stage %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Change is the load_stage_changed payload.
type Change struct {
	Old Stage `json:"old"`
	New Stage `json:"new"`
}

// TransitionError is returned for a backward transition other than the
// reset to Unloaded.
type TransitionError struct {
	From Stage
	To   Stage
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal lifecycle transition %s -> %s", e.From, e.To)
}

// IsTransitionError returns true if err is a TransitionError.
// Uses errors.As to handle wrapped errors.
func IsTransitionError(err error) bool {
	var te *TransitionError
	return errors.As(err, &te)
}

// Tracker is the lifecycle state machine.
//
// Transition is called only from the tick goroutine. Current may be read
// from any goroutine.
type Tracker struct {
	stage  atomic.Int32
	events *events.Manager
}

// NewTracker creates a tracker in the Unloaded stage that raises its
// events on m.
func NewTracker(m *events.Manager) *Tracker {
	return &Tracker{events: m}
}

// Current returns the current stage.
func (t *Tracker) Current() Stage {
	return Stage(t.stage.Load())
}

// Transition moves to next.
//
// Returns (false, nil) when next equals the current stage. A backward
// transition to anything but Unloaded returns a *TransitionError and
// raises nothing.
func (t *Tracker) Transition(next Stage) (bool, error) {
	if next < Unloaded || next > Ready {
		return false, fmt.Errorf("transition: %w", &TransitionError{From: t.Current(), To: next})
	}

	cur := t.Current()
	if next == cur {
		return false, nil
	}
	if next < cur && next != Unloaded {
		return false, &TransitionError{From: cur, To: next}
	}

	t.stage.Store(int32(next))
	t.events.Raise(events.LoadStageChanged, Change{Old: cur, New: next})

	switch next {
	case Unloaded:
		t.events.RaiseEmpty(events.ReturnedToTitle)
	case Ready:
		t.events.RaiseEmpty(events.SaveLoaded)
		t.events.RaiseEmpty(events.DayStarted)
	}
	return true, nil
}
