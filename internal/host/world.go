package host

import "slices"

// Entity is anything placed in a location and tracked by identity.
type Entity struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Tile Point  `json:"tile"`
}

// Item is one stack in an inventory slot.
type Item struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Stack int    `json:"stack"`
}

// Chest is a placed container with its own slots.
type Chest struct {
	ID    string  `json:"id"`
	Items []*Item `json:"items"`
}

// Location is one world location and the entity collections it holds.
type Location struct {
	Name            string   `json:"name"`
	NPCs            []Entity `json:"npcs,omitempty"`
	Objects         []Entity `json:"objects,omitempty"`
	Buildings       []Entity `json:"buildings,omitempty"`
	Debris          []Entity `json:"debris,omitempty"`
	TerrainFeatures []Entity `json:"terrain_features,omitempty"`
	Chests          []Chest  `json:"chests,omitempty"`
}

// Clone returns a deep copy of the location.
func (l Location) Clone() Location {
	out := l
	out.NPCs = slices.Clone(l.NPCs)
	out.Objects = slices.Clone(l.Objects)
	out.Buildings = slices.Clone(l.Buildings)
	out.Debris = slices.Clone(l.Debris)
	out.TerrainFeatures = slices.Clone(l.TerrainFeatures)
	if l.Chests != nil {
		out.Chests = make([]Chest, len(l.Chests))
		for i, c := range l.Chests {
			out.Chests[i] = Chest{ID: c.ID, Items: CloneItems(c.Items)}
		}
	}
	return out
}

// CloneItems copies a slot list, including the items it points to.
func CloneItems(items []*Item) []*Item {
	if items == nil {
		return nil
	}
	out := make([]*Item, len(items))
	for i, it := range items {
		if it != nil {
			cp := *it
			out[i] = &cp
		}
	}
	return out
}

// ItemKey is the slot identity function for item slots.
func ItemKey(it *Item) (string, bool) {
	if it == nil {
		return "", false
	}
	return it.ID, true
}

// ItemEqual compares two slot values.
func ItemEqual(a, b *Item) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// EntityKey is the identity function for placed entities.
func EntityKey(e Entity) string { return e.ID }

// EntityEqual compares two placed entities.
func EntityEqual(a, b Entity) bool { return a == b }
