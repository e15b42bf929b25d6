package watcher

import "github.com/roach88/hostloop/internal/host"

// Player watches the local player's location, skill levels and inventory.
type Player struct {
	Location  *Value[string]
	Skills    *Map[string, int]
	Inventory *Slots[string, *host.Item]
}

// NewPlayer creates a player watcher reading from h.
func NewPlayer(h host.Context) *Player {
	return &Player{
		Location:  NewValue(h.PlayerLocation),
		Skills:    NewMap(h.PlayerSkills),
		Inventory: NewSlots(h.PlayerInventory, host.ItemKey, host.ItemEqual, host.CloneItems),
	}
}

// Update captures all player domains.
func (p *Player) Update() {
	p.Location.Update()
	p.Skills.Update()
	p.Inventory.Update()
}

// IsChanged reports whether any player domain changed.
func (p *Player) IsChanged() bool {
	return p.Location.IsChanged() || p.Skills.IsChanged() || p.Inventory.IsChanged()
}

// Reset commits all player baselines.
func (p *Player) Reset() {
	p.Location.Reset()
	p.Skills.Reset()
	p.Inventory.Reset()
}
