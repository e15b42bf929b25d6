package watcher

import "github.com/roach88/hostloop/internal/diff"

// Value watches a scalar.
type Value[T comparable] struct {
	get    func() T
	prev   T
	cur    T
	primed bool
}

// NewValue creates a watcher for a comparable scalar.
func NewValue[T comparable](get func() T) *Value[T] {
	return &Value[T]{get: get}
}

// Update captures the current value. The first capture also becomes the
// baseline, so a fresh watcher never reports a change.
func (w *Value[T]) Update() {
	w.cur = w.get()
	if !w.primed {
		w.prev = w.cur
		w.primed = true
	}
}

// IsChanged reports whether the value differs from the baseline.
func (w *Value[T]) IsChanged() bool {
	return w.primed && w.prev != w.cur
}

// Diff returns the old/new pair.
func (w *Value[T]) Diff() diff.Value[T] {
	return diff.CompareValue(w.prev, w.cur)
}

// Current returns the last captured value.
func (w *Value[T]) Current() T { return w.cur }

// Reset commits the current value.
func (w *Value[T]) Reset() { w.prev = w.cur }

// Payload returns the diff as an event payload.
func (w *Value[T]) Payload() any { return w.Diff() }
