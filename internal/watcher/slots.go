package watcher

import "github.com/roach88/hostloop/internal/diff"

// Slots watches an ordered collection compared position by position.
type Slots[K comparable, V any] struct {
	get    func() []V
	key    func(V) (K, bool)
	equal  func(a, b V) bool
	clone  func([]V) []V
	prev   []V
	cur    []V
	primed bool
}

// NewSlots creates a positional watcher. clone must return a copy that
// shares no mutable memory with the host.
func NewSlots[K comparable, V any](get func() []V, key func(V) (K, bool), equal func(a, b V) bool, clone func([]V) []V) *Slots[K, V] {
	return &Slots[K, V]{get: get, key: key, equal: equal, clone: clone}
}

// Update snapshots the slots; later host mutation does not leak in.
func (w *Slots[K, V]) Update() {
	w.cur = w.clone(w.get())
	if !w.primed {
		w.prev = w.cur
		w.primed = true
	}
}

// IsChanged reports whether any slot differs from the baseline.
func (w *Slots[K, V]) IsChanged() bool {
	return w.primed && !w.Diff().IsEmpty()
}

// Diff compares the captured slots against the baseline.
func (w *Slots[K, V]) Diff() diff.Slots[K, V] {
	return diff.CompareSlots(w.prev, w.cur, w.key, w.equal)
}

// Current returns the last captured slots. Callers must not mutate them.
func (w *Slots[K, V]) Current() []V { return w.cur }

// Reset commits the captured slots.
func (w *Slots[K, V]) Reset() { w.prev = w.cur }

// Payload returns the diff as an event payload.
func (w *Slots[K, V]) Payload() any { return w.Diff() }
