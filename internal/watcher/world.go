package watcher

import (
	"sort"

	"github.com/roach88/hostloop/internal/diff"
	"github.com/roach88/hostloop/internal/host"
)

// EntityDiff is the diff of one per-location entity collection.
type EntityDiff = diff.Keyed[string, host.Entity]

// ChestDiff is the diff of one chest's slots.
type ChestDiff = diff.Slots[string, *host.Item]

// World watches the location list and, per location, its entity collections.
type World struct {
	hostCtx   host.Context
	locations *Keyed[string, host.Location]
	byName    map[string]*Location
}

// NewWorld creates a world watcher reading from h.
func NewWorld(h host.Context) *World {
	w := &World{hostCtx: h, byName: make(map[string]*Location)}
	w.locations = NewKeyed(
		h.Locations,
		func(l host.Location) string { return l.Name },
		nil,
		WithClone[string](host.Location.Clone),
	)
	return w
}

// Update captures the location list, then every location's collections.
// Watchers for newly added locations start primed with their current
// contents, so a new location never reports its entities as added.
func (w *World) Update() {
	w.locations.Update()

	current := make(map[string]host.Location, len(w.locations.Current()))
	for _, loc := range w.locations.Current() {
		if _, dup := current[loc.Name]; !dup {
			current[loc.Name] = loc
		}
	}

	for name := range w.byName {
		if _, ok := current[name]; !ok {
			delete(w.byName, name)
		}
	}
	for name, loc := range current {
		lw, ok := w.byName[name]
		if !ok {
			lw = newLocation(name)
			w.byName[name] = lw
		}
		lw.update(loc)
	}
}

// IsChanged reports whether the location list or any location changed.
func (w *World) IsChanged() bool {
	if w.locations.IsChanged() {
		return true
	}
	for _, lw := range w.byName {
		if lw.IsChanged() {
			return true
		}
	}
	return false
}

// LocationList returns the location list diff.
func (w *World) LocationList() diff.Keyed[string, host.Location] {
	return w.locations.Diff()
}

// Locations returns the per-location watchers in name order.
func (w *World) Locations() []*Location {
	out := make([]*Location, 0, len(w.byName))
	for _, lw := range w.byName {
		out = append(out, lw)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Reset commits every location baseline.
func (w *World) Reset() {
	w.locations.Reset()
	for _, lw := range w.byName {
		lw.Reset()
	}
}

// Location watches the entity collections of one location.
type Location struct {
	Name string

	current host.Location

	NPCs            *Keyed[string, host.Entity]
	Objects         *Keyed[string, host.Entity]
	Buildings       *Keyed[string, host.Entity]
	Debris          *Keyed[string, host.Entity]
	TerrainFeatures *Keyed[string, host.Entity]

	chests map[string]*Slots[string, *host.Item]
}

func newLocation(name string) *Location {
	lw := &Location{Name: name, chests: make(map[string]*Slots[string, *host.Item])}
	lw.NPCs = NewKeyed(func() []host.Entity { return lw.current.NPCs }, host.EntityKey, host.EntityEqual)
	lw.Objects = NewKeyed(func() []host.Entity { return lw.current.Objects }, host.EntityKey, host.EntityEqual)
	lw.Buildings = NewKeyed(func() []host.Entity { return lw.current.Buildings }, host.EntityKey, host.EntityEqual)
	lw.Debris = NewKeyed(func() []host.Entity { return lw.current.Debris }, host.EntityKey, host.EntityEqual)
	lw.TerrainFeatures = NewKeyed(func() []host.Entity { return lw.current.TerrainFeatures }, host.EntityKey, host.EntityEqual)
	return lw
}

func (lw *Location) update(loc host.Location) {
	lw.current = loc
	lw.NPCs.Update()
	lw.Objects.Update()
	lw.Buildings.Update()
	lw.Debris.Update()
	lw.TerrainFeatures.Update()

	seen := make(map[string]struct{}, len(loc.Chests))
	for _, c := range loc.Chests {
		seen[c.ID] = struct{}{}
		cw, ok := lw.chests[c.ID]
		if !ok {
			id := c.ID
			cw = NewSlots(func() []*host.Item { return lw.chestItems(id) }, host.ItemKey, host.ItemEqual, host.CloneItems)
			lw.chests[c.ID] = cw
		}
		cw.Update()
	}
	for id := range lw.chests {
		if _, ok := seen[id]; !ok {
			delete(lw.chests, id)
		}
	}
}

func (lw *Location) chestItems(id string) []*host.Item {
	for _, c := range lw.current.Chests {
		if c.ID == id {
			return c.Items
		}
	}
	return nil
}

// Chests returns the changed chest diffs keyed by chest ID, in ID order.
func (lw *Location) Chests() []ChestChange {
	ids := make([]string, 0, len(lw.chests))
	for id := range lw.chests {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []ChestChange
	for _, id := range ids {
		d := lw.chests[id].Diff()
		if !d.IsEmpty() {
			out = append(out, ChestChange{ChestID: id, Diff: d})
		}
	}
	return out
}

// ChestChange pairs a chest with its slot diff.
type ChestChange struct {
	ChestID string
	Diff    ChestDiff
}

// IsChanged reports whether any collection of the location changed.
func (lw *Location) IsChanged() bool {
	if lw.NPCs.IsChanged() || lw.Objects.IsChanged() || lw.Buildings.IsChanged() ||
		lw.Debris.IsChanged() || lw.TerrainFeatures.IsChanged() {
		return true
	}
	for _, cw := range lw.chests {
		if cw.IsChanged() {
			return true
		}
	}
	return false
}

// Reset commits all collection baselines.
func (lw *Location) Reset() {
	lw.NPCs.Reset()
	lw.Objects.Reset()
	lw.Buildings.Reset()
	lw.Debris.Reset()
	lw.TerrainFeatures.Reset()
	for _, cw := range lw.chests {
		cw.Reset()
	}
}
