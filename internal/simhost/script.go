package simhost

import (
	"slices"

	"github.com/roach88/hostloop/internal/host"
)

// endOfDay is the host's background save-commit task.
type endOfDay struct {
	h       *Host
	started bool
}

func (t *endOfDay) Started() bool {
	t.h.mu.Lock()
	defer t.h.mu.Unlock()
	return t.started
}

func (t *endOfDay) Run() error {
	t.h.mu.Lock()
	defer t.h.mu.Unlock()
	t.started = true
	t.h.nextDay()
	t.h.save = host.SaveStatus{InProgress: true, NewGame: t.h.newGame}
	t.h.saveLeft = t.h.opts.SaveTicks
	t.h.newGame = false
	return nil
}

// stepLoader walks the milestones one per Step.
type stepLoader struct {
	h      *Host
	saveID string
	steps  []host.LoadMilestone
	idx    int
	fail   error
}

func (l *stepLoader) Step() (host.LoadMilestone, bool, error) {
	if l.fail != nil {
		l.h.mu.Lock()
		l.h.loader = nil
		l.h.mu.Unlock()
		return host.MilestoneNone, true, l.fail
	}
	if l.idx >= len(l.steps) {
		return host.MilestoneNone, true, nil
	}
	m := l.steps[l.idx]
	l.idx++
	if m == host.MilestoneLoaded {
		l.h.mu.Lock()
		l.h.applyLoadedWorld(l.saveID)
		l.h.loader = nil
		l.h.mu.Unlock()
		return m, true, nil
	}
	return m, false, nil
}

// StartLoad begins loading saveID. The supervisor drives the loader to
// completion on its next tick.
func (h *Host) StartLoad(saveID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loader = &stepLoader{
		h:      h,
		saveID: saveID,
		steps: []host.LoadMilestone{
			host.MilestoneSaveParsed,
			host.MilestoneBasicInfoLoaded,
			host.MilestoneLocationsLoaded,
			host.MilestonePreloaded,
			host.MilestoneLoaded,
		},
	}
}

// StartNewGame loads a fresh world whose first save creates the save file.
func (h *Host) StartNewGame(saveID string) {
	h.StartLoad(saveID)
	h.mu.Lock()
	h.newGame = true
	h.mu.Unlock()
}

// FailLoad installs a loader that fails on its first step and then drops
// itself.
func (h *Host) FailLoad(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loader = &stepLoader{h: h, fail: err}
}

// ClearLoader drops the active loader.
func (h *Host) ClearLoader() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loader = nil
}

// ReturnToTitle unloads the world.
func (h *Host) ReturnToTitle() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.saveID = ""
	h.ready = false
	h.locations = nil
	h.playerLoc = ""
	h.inventory = nil
	h.skills = map[string]int{}
	h.task = nil
	h.save = host.SaveStatus{}
}

// SetSaving forces the save-in-progress flag.
func (h *Host) SetSaving(saving, newGame bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.save = host.SaveStatus{InProgress: saving, NewGame: newGame}
	h.saveLeft = 1 << 30
}

// EndDay queues the end-of-day task.
func (h *Host) EndDay() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.task = &endOfDay{h: h}
}

// SetTask installs an arbitrary pending task.
func (h *Host) SetTask(t host.Task) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.task = t
}

// SetInventorySlot puts item into slot i, growing the inventory if needed.
func (h *Host) SetInventorySlot(i int, item *host.Item) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for len(h.inventory) <= i {
		h.inventory = append(h.inventory, nil)
	}
	h.inventory[i] = item
}

// MutateInventoryInPlace changes a stack size without replacing the item,
// the way a host mutates its own objects.
func (h *Host) MutateInventoryInPlace(i, stack int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i < len(h.inventory) && h.inventory[i] != nil {
		h.inventory[i].Stack = stack
	}
}

// SetSkill sets a skill level.
func (h *Host) SetSkill(name string, level int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.skills[name] = level
}

// Warp moves the player.
func (h *Host) Warp(location string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playerLoc = location
}

// AddLocation appends a location.
func (h *Host) AddLocation(loc host.Location) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.locations = append(h.locations, loc)
}

// RemoveLocation removes a location by name.
func (h *Host) RemoveLocation(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.locations = slices.DeleteFunc(h.locations, func(l host.Location) bool { return l.Name == name })
}

// SetLocations replaces the location list.
func (h *Host) SetLocations(locs []host.Location) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.locations = locs
}

// UpdateLocation applies fn to the named location in place.
func (h *Host) UpdateLocation(name string, fn func(*host.Location)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.locations {
		if h.locations[i].Name == name {
			fn(&h.locations[i])
			return
		}
	}
}

// SetTime sets the in-world clock.
func (h *Host) SetTime(t host.GameTime) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.time = t
}

// SetInput replaces the input state.
func (h *Host) SetInput(in host.InputState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.input = in
}

// SetWindowSize resizes the window.
func (h *Host) SetWindowSize(s host.Size) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.window = s
}

// SetMenu opens (or with "" closes) a menu.
func (h *Host) SetMenu(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.menu = name
}

// SetLocale changes the host language.
func (h *Host) SetLocale(tag string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.locale = tag
}

// FailAdvance makes the next n Advance calls fail, by panic if panics is set.
func (h *Host) FailAdvance(n int, panics bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.advanceFailures = n
	h.advancePanics = panics
}

// FailRender makes the next n Render calls fail, by panic if panics is set.
func (h *Host) FailRender(n int, panics bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.renderFailures = n
	h.renderPanics = panics
}

// Ticks returns how many successful advances the host has run.
func (h *Host) Ticks() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ticks
}

// Frames returns how many successful render passes the host has run.
func (h *Host) Frames() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frames
}
