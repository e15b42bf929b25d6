package supervisor

import (
	"github.com/roach88/hostloop/internal/diff"
	"github.com/roach88/hostloop/internal/events"
	"github.com/roach88/hostloop/internal/host"
	"github.com/roach88/hostloop/internal/watcher"
)

// Domain names, in raise order.
const (
	domainInput  = "input"
	domainMenu   = "menu"
	domainWindow = "window"
	domainLocale = "locale"
	domainWorld  = "world"
	domainTime   = "time"
	domainPlayer = "player"
)

// domains holds the built-in watchers. Owned by the tick goroutine.
type domains struct {
	input  *watcher.Input
	menu   *watcher.Value[string]
	window *watcher.Value[host.Size]
	locale *watcher.Value[string]
	world  *watcher.World
	time   *watcher.Value[host.GameTime]
	player *watcher.Player
}

func newDomains(h host.Context) *domains {
	return &domains{
		input:  watcher.NewInput(h),
		menu:   watcher.NewValue(h.ActiveMenu),
		window: watcher.NewValue(h.WindowSize),
		locale: watcher.NewLocale(h),
		world:  watcher.NewWorld(h),
		time:   watcher.NewValue(h.Time),
		player: watcher.NewPlayer(h),
	}
}

type namedWatcher struct {
	name string
	w    watcher.Watcher
}

func (d *domains) ordered() []namedWatcher {
	return []namedWatcher{
		{domainInput, d.input},
		{domainMenu, d.menu},
		{domainWindow, d.window},
		{domainLocale, d.locale},
		{domainWorld, d.world},
		{domainTime, d.time},
		{domainPlayer, d.player},
	}
}

// worldScoped reports whether a domain only raises while the world is ready.
func worldScoped(name string) bool {
	switch name {
	case domainWorld, domainTime, domainPlayer:
		return true
	}
	return false
}

type pendingEvent struct {
	ch      events.Channel
	payload any
}

type eventBatch []pendingEvent

func (b *eventBatch) add(ch events.Channel, payload any) {
	*b = append(*b, pendingEvent{ch: ch, payload: payload})
}

// collect computes the events one built-in domain produces this tick.
func (d *domains) collect(name string, b *eventBatch) {
	switch name {
	case domainInput:
		d.collectInput(b)
	case domainMenu:
		if d.menu.IsChanged() {
			v := d.menu.Diff()
			b.add(events.MenuChanged, MenuChangedArgs{Old: v.Old, New: v.New})
		}
	case domainWindow:
		if d.window.IsChanged() {
			v := d.window.Diff()
			b.add(events.WindowResized, WindowResizedArgs{Old: v.Old, New: v.New})
		}
	case domainLocale:
		if d.locale.IsChanged() {
			v := d.locale.Diff()
			b.add(events.LocaleChanged, LocaleChangedArgs{Old: v.Old, New: v.New})
		}
	case domainWorld:
		d.collectWorld(b)
	case domainTime:
		if d.time.IsChanged() {
			v := d.time.Diff()
			b.add(events.TimeChanged, TimeChangedArgs{Old: v.Old, New: v.New})
		}
	case domainPlayer:
		d.collectPlayer(b)
	}
}

func (d *domains) collectInput(b *eventBatch) {
	cursor := d.input.Cursor.Current()
	for _, btn := range d.input.Pressed() {
		b.add(events.ButtonPressed, ButtonArgs{Button: btn, Cursor: cursor})
	}
	for _, btn := range d.input.Released() {
		b.add(events.ButtonReleased, ButtonArgs{Button: btn, Cursor: cursor})
	}
	if d.input.Cursor.IsChanged() {
		v := d.input.Cursor.Diff()
		b.add(events.CursorMoved, CursorMovedArgs{Old: v.Old, New: v.New})
	}
	if d.input.Wheel.IsChanged() {
		v := d.input.Wheel.Diff()
		b.add(events.MouseWheelScrolled, MouseWheelScrolledArgs{Old: v.Old, New: v.New, Delta: v.New - v.Old})
	}
}

func (d *domains) collectWorld(b *eventBatch) {
	list := d.world.LocationList()
	if !list.IsEmpty() {
		args := LocationListChangedArgs{}
		for _, e := range list.Added {
			args.Added = append(args.Added, e.Key)
		}
		for _, e := range list.Removed {
			args.Removed = append(args.Removed, e.Key)
		}
		b.add(events.LocationListChanged, args)
	}

	for _, loc := range d.world.Locations() {
		entityEvent(b, events.BuildingListChanged, loc.Name, loc.Buildings.Diff())
		entityEvent(b, events.DebrisListChanged, loc.Name, loc.Debris.Diff())
		entityEvent(b, events.NPCListChanged, loc.Name, loc.NPCs.Diff())
		entityEvent(b, events.ObjectListChanged, loc.Name, loc.Objects.Diff())
		entityEvent(b, events.TerrainFeatureListChanged, loc.Name, loc.TerrainFeatures.Diff())
		for _, c := range loc.Chests() {
			b.add(events.ChestInventoryChanged, ChestInventoryChangedArgs{
				Location:             loc.Name,
				ChestID:              c.ChestID,
				InventoryChangedArgs: inventoryArgs(c.Diff),
			})
		}
	}
}

func entityEvent(b *eventBatch, ch events.Channel, location string, d watcher.EntityDiff) {
	if d.IsEmpty() {
		return
	}
	args := EntityListChangedArgs{Location: location}
	for _, e := range d.Added {
		args.Added = append(args.Added, e.Value)
	}
	for _, e := range d.Removed {
		args.Removed = append(args.Removed, e.Value)
	}
	for _, c := range d.Changed {
		args.Changed = append(args.Changed, EntityChange{ID: c.Key, Old: c.Old, New: c.New})
	}
	b.add(ch, args)
}

func (d *domains) collectPlayer(b *eventBatch) {
	if d.player.Location.IsChanged() {
		v := d.player.Location.Diff()
		b.add(events.Warped, WarpedArgs{Old: v.Old, New: v.New})
	}
	if d.player.Skills.IsChanged() {
		skills := d.player.Skills.Diff()
		for _, e := range skills.Added {
			b.add(events.LevelChanged, LevelChangedArgs{Skill: e.Key, New: e.Value})
		}
		for _, c := range skills.Changed {
			b.add(events.LevelChanged, LevelChangedArgs{Skill: c.Key, Old: c.Old, New: c.New})
		}
	}
	if d.player.Inventory.IsChanged() {
		b.add(events.InventoryChanged, inventoryArgs(d.player.Inventory.Diff()))
	}
}

func inventoryArgs(d diff.Slots[string, *host.Item]) InventoryChangedArgs {
	var args InventoryChangedArgs
	for _, s := range d.Added {
		args.Added = append(args.Added, SlotItem{Index: s.Index, Item: deref(s.Value)})
	}
	for _, s := range d.Removed {
		args.Removed = append(args.Removed, SlotItem{Index: s.Index, Item: deref(s.Value)})
	}
	for _, c := range d.Changed {
		args.Changed = append(args.Changed, SlotItemChange{Index: c.Index, Old: deref(c.Old), New: deref(c.New)})
	}
	return args
}

func deref(it *host.Item) host.Item {
	if it == nil {
		return host.Item{}
	}
	return *it
}
