package diff

import "sort"

// Slot is one occupied position of an ordered collection.
type Slot[K comparable, V any] struct {
	Index int
	Key   K
	Value V
}

// SlotChange records an item that stayed in the same slot with a different
// value (for example a stack whose size changed).
type SlotChange[K comparable, V any] struct {
	Index int
	Key   K
	Old   V
	New   V
}

// Slots is the result of a positional comparison.
type Slots[K comparable, V any] struct {
	Added   []Slot[K, V]
	Removed []Slot[K, V]
	Changed []SlotChange[K, V]
}

// IsEmpty reports whether the diff contains no changes.
func (d Slots[K, V]) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// CompareSlots compares two ordered collections position by position.
//
// key returns the identity of the item in a slot and false for an empty
// slot. Identity of a slot entry is (index, key): a different item in the
// same slot is one removal plus one addition; the same item at another index
// is likewise a removal plus an addition at the respective indices.
func CompareSlots[K comparable, V any](prev, cur []V, key func(V) (K, bool), equal func(a, b V) bool) Slots[K, V] {
	var d Slots[K, V]

	n := len(prev)
	if len(cur) > n {
		n = len(cur)
	}

	for i := 0; i < n; i++ {
		var (
			oldVal, newVal V
			oldKey, newKey K
			hadOld, hasNew bool
		)
		if i < len(prev) {
			oldVal = prev[i]
			oldKey, hadOld = key(oldVal)
		}
		if i < len(cur) {
			newVal = cur[i]
			newKey, hasNew = key(newVal)
		}

		switch {
		case !hadOld && !hasNew:
		case hadOld && hasNew && oldKey == newKey:
			if equal != nil && !equal(oldVal, newVal) {
				d.Changed = append(d.Changed, SlotChange[K, V]{Index: i, Key: newKey, Old: oldVal, New: newVal})
			}
		default:
			if hadOld {
				d.Removed = append(d.Removed, Slot[K, V]{Index: i, Key: oldKey, Value: oldVal})
			}
			if hasNew {
				d.Added = append(d.Added, Slot[K, V]{Index: i, Key: newKey, Value: newVal})
			}
		}
	}

	return d
}

func sortEntries[K comparable, V any](entries []Entry[K, V], less func(a, b K) bool) {
	sort.SliceStable(entries, func(i, j int) bool { return less(entries[i].Key, entries[j].Key) })
}

func sortChanges[K comparable, V any](changes []Change[K, V], less func(a, b K) bool) {
	sort.SliceStable(changes, func(i, j int) bool { return less(changes[i].Key, changes[j].Key) })
}
