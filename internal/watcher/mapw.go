package watcher

import (
	"cmp"
	"maps"

	"github.com/roach88/hostloop/internal/diff"
)

// Map watches a keyed map such as skill levels.
type Map[K cmp.Ordered, V comparable] struct {
	get    func() map[K]V
	prev   map[K]V
	cur    map[K]V
	primed bool
}

// NewMap creates a map watcher.
func NewMap[K cmp.Ordered, V comparable](get func() map[K]V) *Map[K, V] {
	return &Map[K, V]{get: get}
}

// Update captures a copy of the map.
func (w *Map[K, V]) Update() {
	w.cur = maps.Clone(w.get())
	if !w.primed {
		w.prev = w.cur
		w.primed = true
	}
}

// IsChanged reports whether the map differs from the baseline.
func (w *Map[K, V]) IsChanged() bool {
	return w.primed && !maps.Equal(w.prev, w.cur)
}

// Diff compares the captured map against the baseline, ordered by key.
func (w *Map[K, V]) Diff() diff.Keyed[K, V] {
	return diff.CompareKeyedMap(w.prev, w.cur, func(a, b V) bool { return a == b }, cmp.Less[K])
}

// Reset commits the captured map.
func (w *Map[K, V]) Reset() { w.prev = w.cur }

// Payload returns the diff as an event payload.
func (w *Map[K, V]) Payload() any { return w.Diff() }
