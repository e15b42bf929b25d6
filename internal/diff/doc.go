// Package diff provides the snapshot comparison primitives used by domain
// watchers.
//
// Three comparison policies are supported:
//
//   - Keyed: unordered collections compared by identity key. Insertion order
//     is irrelevant; an entity present in both snapshots with an unequal value
//     is reported as Changed.
//   - Slots: ordered collections where position has meaning (inventory
//     slots). Entries are identified by (index, key); an item that moves to a
//     different index is reported as a removal at the old index and an
//     addition at the new one, never as a move.
//   - Value: scalars compared by simple inequality.
//
// INVARIANT: for every computed diff, Added and Removed are disjoint by
// identity. An entity removed and re-added between two snapshots is not
// observable and is reported as unchanged (or Changed if its value differs).
package diff
