package diff

// Entry is one entity of a keyed collection.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Change records an entity present in both snapshots whose value differs.
type Change[K comparable, V any] struct {
	Key K
	Old V
	New V
}

// Keyed is the result of comparing two keyed collections.
type Keyed[K comparable, V any] struct {
	Added   []Entry[K, V]
	Removed []Entry[K, V]
	Changed []Change[K, V]
}

// IsEmpty reports whether the diff contains no changes.
func (d Keyed[K, V]) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// CompareKeyed compares prev and cur by identity key.
//
// Added follows the order of cur, Removed follows the order of prev, so the
// result is deterministic even though order is not part of the comparison.
// Duplicate keys within one snapshot collapse to the first occurrence.
// A nil equal treats every surviving key as unchanged.
func CompareKeyed[K comparable, V any](prev, cur []V, key func(V) K, equal func(a, b V) bool) Keyed[K, V] {
	var d Keyed[K, V]

	prevByKey := make(map[K]V, len(prev))
	for _, v := range prev {
		k := key(v)
		if _, dup := prevByKey[k]; !dup {
			prevByKey[k] = v
		}
	}

	seen := make(map[K]struct{}, len(cur))
	for _, v := range cur {
		k := key(v)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		old, existed := prevByKey[k]
		if !existed {
			d.Added = append(d.Added, Entry[K, V]{Key: k, Value: v})
			continue
		}
		if equal != nil && !equal(old, v) {
			d.Changed = append(d.Changed, Change[K, V]{Key: k, Old: old, New: v})
		}
	}

	reported := make(map[K]struct{}, len(prev))
	for _, v := range prev {
		k := key(v)
		if _, ok := seen[k]; ok {
			continue
		}
		if _, dup := reported[k]; dup {
			continue
		}
		reported[k] = struct{}{}
		d.Removed = append(d.Removed, Entry[K, V]{Key: k, Value: v})
	}

	return d
}

// CompareKeyedMap is CompareKeyed for map snapshots. Map iteration order is
// not stable, so results are ordered by the supplied less function.
func CompareKeyedMap[K comparable, V any](prev, cur map[K]V, equal func(a, b V) bool, less func(a, b K) bool) Keyed[K, V] {
	var d Keyed[K, V]
	for k, v := range cur {
		old, existed := prev[k]
		switch {
		case !existed:
			d.Added = append(d.Added, Entry[K, V]{Key: k, Value: v})
		case equal != nil && !equal(old, v):
			d.Changed = append(d.Changed, Change[K, V]{Key: k, Old: old, New: v})
		}
	}
	for k, v := range prev {
		if _, ok := cur[k]; !ok {
			d.Removed = append(d.Removed, Entry[K, V]{Key: k, Value: v})
		}
	}
	if less != nil {
		sortEntries(d.Added, less)
		sortEntries(d.Removed, less)
		sortChanges(d.Changed, less)
	}
	return d
}

// Value is the result of comparing two scalar snapshots.
type Value[T any] struct {
	Old     T
	New     T
	Changed bool
}

// CompareValue compares two comparable scalars by inequality.
func CompareValue[T comparable](prev, cur T) Value[T] {
	return Value[T]{Old: prev, New: cur, Changed: prev != cur}
}
