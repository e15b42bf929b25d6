package watcher

import (
	"slices"

	"github.com/roach88/hostloop/internal/diff"
)

// Keyed watches an unordered collection compared by identity key.
type Keyed[K comparable, V any] struct {
	get    func() []V
	key    func(V) K
	equal  func(a, b V) bool
	clone  func(V) V
	prev   []V
	cur    []V
	primed bool
}

// KeyedOption configures a Keyed watcher.
type KeyedOption[K comparable, V any] func(*Keyed[K, V])

// WithClone deep-copies every element on capture. Needed when elements
// themselves hold host-owned slices.
func WithClone[K comparable, V any](clone func(V) V) KeyedOption[K, V] {
	return func(w *Keyed[K, V]) { w.clone = clone }
}

// NewKeyed creates a keyed collection watcher. A nil equal reports only
// additions and removals.
func NewKeyed[K comparable, V any](get func() []V, key func(V) K, equal func(a, b V) bool, opts ...KeyedOption[K, V]) *Keyed[K, V] {
	w := &Keyed[K, V]{get: get, key: key, equal: equal}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Update snapshots the collection.
func (w *Keyed[K, V]) Update() {
	src := w.get()
	cur := slices.Clone(src)
	if w.clone != nil {
		for i := range cur {
			cur[i] = w.clone(cur[i])
		}
	}
	w.cur = cur
	if !w.primed {
		w.prev = w.cur
		w.primed = true
	}
}

// IsChanged reports whether the collection differs from the baseline.
func (w *Keyed[K, V]) IsChanged() bool {
	return w.primed && !w.Diff().IsEmpty()
}

// Diff compares the captured collection against the baseline.
func (w *Keyed[K, V]) Diff() diff.Keyed[K, V] {
	return diff.CompareKeyed(w.prev, w.cur, w.key, w.equal)
}

// Current returns the last captured collection. Callers must not mutate it.
func (w *Keyed[K, V]) Current() []V { return w.cur }

// Reset commits the captured collection.
func (w *Keyed[K, V]) Reset() { w.prev = w.cur }

// Payload returns the diff as an event payload.
func (w *Keyed[K, V]) Payload() any { return w.Diff() }
