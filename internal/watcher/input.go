package watcher

import (
	"slices"

	"github.com/roach88/hostloop/internal/diff"
	"github.com/roach88/hostloop/internal/host"
)

// Input watches cursor position, pressed buttons and wheel position.
type Input struct {
	Cursor  *Value[host.Point]
	Buttons *Keyed[string, string]
	Wheel   *Value[int]

	state host.InputState
	get   func() host.InputState
}

// NewInput creates an input watcher reading from h.
func NewInput(h host.Context) *Input {
	in := &Input{get: h.Input}
	in.Cursor = NewValue(func() host.Point { return in.state.Cursor })
	in.Buttons = NewKeyed(func() []string { return in.state.Pressed }, func(b string) string { return b }, nil)
	in.Wheel = NewValue(func() int { return in.state.Wheel })
	return in
}

// Update captures one consistent input state for all three domains.
func (in *Input) Update() {
	s := in.get()
	s.Pressed = slices.Clone(s.Pressed)
	in.state = s
	in.Cursor.Update()
	in.Buttons.Update()
	in.Wheel.Update()
}

// IsChanged reports whether any input domain changed.
func (in *Input) IsChanged() bool {
	return in.Cursor.IsChanged() || in.Buttons.IsChanged() || in.Wheel.IsChanged()
}

// Pressed returns the buttons pressed since the baseline.
func (in *Input) Pressed() []string {
	return entryKeys(in.Buttons.Diff().Added)
}

// Released returns the buttons released since the baseline.
func (in *Input) Released() []string {
	return entryKeys(in.Buttons.Diff().Removed)
}

// Reset commits all input baselines.
func (in *Input) Reset() {
	in.Cursor.Reset()
	in.Buttons.Reset()
	in.Wheel.Reset()
}

func entryKeys[K comparable, V any](entries []diff.Entry[K, V]) []K {
	if len(entries) == 0 {
		return nil
	}
	out := make([]K, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out
}
