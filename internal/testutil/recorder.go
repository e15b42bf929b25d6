package testutil

import (
	"sync"

	"github.com/roach88/hostloop/internal/events"
)

// Recorder captures raised events through an events.Tap.
//
// Thread-safety: safe for concurrent use via internal mutex.
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
}

// NewRecorder creates a recorder and attaches it to m.
func NewRecorder(m *events.Manager) *Recorder {
	r := &Recorder{}
	m.AddTap(r.Observe)
	return r
}

// Observe implements events.Tap.
func (r *Recorder) Observe(ev events.Event, _ events.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Channels returns the recorded channel names in raise order.
func (r *Recorder) Channels() []events.Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Channel, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Channel
	}
	return out
}

// Count returns how many times ch was raised.
func (r *Recorder) Count(ch events.Channel) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Channel == ch {
			n++
		}
	}
	return n
}

// Last returns the most recent event on ch.
func (r *Recorder) Last(ch events.Channel) (events.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Channel == ch {
			return r.events[i], true
		}
	}
	return events.Event{}, false
}

// Reset discards everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
