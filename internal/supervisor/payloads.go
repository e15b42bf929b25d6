package supervisor

import (
	"github.com/roach88/hostloop/internal/host"
)

// Payload types raised by the supervisor, one per channel family.

// ButtonArgs is the button_pressed / button_released payload.
type ButtonArgs struct {
	Button string     `json:"button"`
	Cursor host.Point `json:"cursor"`
}

// CursorMovedArgs is the cursor_moved payload.
type CursorMovedArgs struct {
	Old host.Point `json:"old"`
	New host.Point `json:"new"`
}

// MouseWheelScrolledArgs is the mouse_wheel_scrolled payload.
type MouseWheelScrolledArgs struct {
	Old   int `json:"old"`
	New   int `json:"new"`
	Delta int `json:"delta"`
}

// MenuChangedArgs is the menu_changed payload. An empty name means no menu.
type MenuChangedArgs struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// WindowResizedArgs is the window_resized payload.
type WindowResizedArgs struct {
	Old host.Size `json:"old"`
	New host.Size `json:"new"`
}

// LocaleChangedArgs is the locale_changed payload.
type LocaleChangedArgs struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// LocationListChangedArgs is the location_list_changed payload.
type LocationListChangedArgs struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// EntityChange is an entity that kept its ID but changed.
type EntityChange struct {
	ID  string      `json:"id"`
	Old host.Entity `json:"old"`
	New host.Entity `json:"new"`
}

// EntityListChangedArgs is the payload of every per-location entity list
// channel (buildings, debris, NPCs, objects, terrain features).
type EntityListChangedArgs struct {
	Location string         `json:"location"`
	Added    []host.Entity  `json:"added,omitempty"`
	Removed  []host.Entity  `json:"removed,omitempty"`
	Changed  []EntityChange `json:"changed,omitempty"`
}

// SlotItem is an item at a slot index.
type SlotItem struct {
	Index int       `json:"index"`
	Item  host.Item `json:"item"`
}

// SlotItemChange is an item that stayed in its slot with a different value.
type SlotItemChange struct {
	Index int       `json:"index"`
	Old   host.Item `json:"old"`
	New   host.Item `json:"new"`
}

// InventoryChangedArgs is the inventory_changed payload.
type InventoryChangedArgs struct {
	Added   []SlotItem       `json:"added,omitempty"`
	Removed []SlotItem       `json:"removed,omitempty"`
	Changed []SlotItemChange `json:"changed,omitempty"`
}

// ChestInventoryChangedArgs is the chest_inventory_changed payload.
type ChestInventoryChangedArgs struct {
	Location string `json:"location"`
	ChestID  string `json:"chest_id"`
	InventoryChangedArgs
}

// TimeChangedArgs is the time_changed payload.
type TimeChangedArgs struct {
	Old host.GameTime `json:"old"`
	New host.GameTime `json:"new"`
}

// WarpedArgs is the warped payload.
type WarpedArgs struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// LevelChangedArgs is the level_changed payload, one per skill.
type LevelChangedArgs struct {
	Skill string `json:"skill"`
	Old   int    `json:"old"`
	New   int    `json:"new"`
}

// RenderArgs is the payload of every rendering/rendered channel.
type RenderArgs struct {
	Frame uint64           `json:"frame"`
	Phase host.RenderPhase `json:"phase,omitempty"`
}
