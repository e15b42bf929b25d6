// Package simhost is a small deterministic host used by the CLI demo, the
// scenario harness, and tests. It implements host.Context and exposes
// mutators so tests can script state changes between ticks.
//
// Accessors return live slices and maps, the way a real host exposes its own
// state.
package simhost

import (
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/hostloop/internal/host"
)

// DefaultTicksPerTenMinutes matches a 60 tick/s host where ten in-world
// minutes last seven real seconds.
const DefaultTicksPerTenMinutes = 420

// ErrAdvanceFailed is returned by Advance when a failure has been scripted.
var ErrAdvanceFailed = errors.New("simhost: advance failed")

// ErrRenderFailed is returned by Render when a failure has been scripted.
var ErrRenderFailed = errors.New("simhost: render failed")

// Options configures a Host.
type Options struct {
	// TicksPerTenMinutes controls how fast in-world time passes. Zero
	// disables the clock.
	TicksPerTenMinutes int
	// SaveTicks is how many ticks an end-of-day save stays in progress.
	SaveTicks int
	// Wander moves every NPC one tile east every WanderEvery ticks.
	WanderEvery int
}

// Host is a scriptable in-process host.
type Host struct {
	mu   sync.Mutex
	opts Options

	ticks     uint64
	frames    uint64
	locations []host.Location
	saveID    string
	ready     bool
	time      host.GameTime

	playerLoc string
	skills    map[string]int
	inventory []*host.Item

	input  host.InputState
	window host.Size
	menu   string
	locale string

	save     host.SaveStatus
	saveLeft int
	task     host.Task
	loader   host.Loader
	newGame  bool

	advanceFailures int
	advancePanics   bool
	renderFailures  int
	renderPanics    bool
}

// New creates a host on the title screen.
func New(opts Options) *Host {
	if opts.SaveTicks <= 0 {
		opts.SaveTicks = 1
	}
	return &Host{
		opts:   opts,
		skills: map[string]int{},
		window: host.Size{Width: 1280, Height: 720},
		locale: "en-US",
	}
}

// NewLoaded creates a host with a world already loaded, for tests that do
// not care about the load sequence.
func NewLoaded(opts Options) *Host {
	h := New(opts)
	h.applyLoadedWorld("test-save")
	return h
}

func (h *Host) applyLoadedWorld(saveID string) {
	h.saveID = saveID
	h.ready = true
	h.time = host.GameTime{Year: 1, Season: "spring", Day: 1, TimeOfDay: 600}
	h.locations = DefaultLocations()
	h.playerLoc = "Farm"
	h.skills = map[string]int{"farming": 0, "mining": 0, "foraging": 0, "fishing": 0, "combat": 0}
	h.inventory = make([]*host.Item, 12)
	h.inventory[0] = &host.Item{ID: "axe", Name: "Axe", Stack: 1}
	h.inventory[1] = &host.Item{ID: "hoe", Name: "Hoe", Stack: 1}
	h.inventory[2] = &host.Item{ID: "parsnip_seeds", Name: "Parsnip Seeds", Stack: 15}
}

// DefaultLocations returns a fresh copy of the starting world.
func DefaultLocations() []host.Location {
	return []host.Location{
		{
			Name:      "Farm",
			Buildings: []host.Entity{{ID: "farmhouse", Kind: "building", Tile: host.Point{X: 64, Y: 15}}},
			Debris: []host.Entity{
				{ID: "stone-1", Kind: "debris", Tile: host.Point{X: 10, Y: 10}},
				{ID: "twig-1", Kind: "debris", Tile: host.Point{X: 12, Y: 9}},
			},
			TerrainFeatures: []host.Entity{{ID: "tree-1", Kind: "tree", Tile: host.Point{X: 20, Y: 30}}},
			Chests:          []host.Chest{{ID: "chest-1", Items: make([]*host.Item, 9)}},
		},
		{
			Name: "Town",
			NPCs: []host.Entity{
				{ID: "Abigail", Kind: "npc", Tile: host.Point{X: 40, Y: 60}},
				{ID: "Lewis", Kind: "npc", Tile: host.Point{X: 52, Y: 68}},
			},
			Objects: []host.Entity{{ID: "bench-1", Kind: "furniture", Tile: host.Point{X: 30, Y: 30}}},
		},
	}
}

// --- host.Context ---

// Locations returns the live location list.
func (h *Host) Locations() []host.Location {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.locations
}

// IsWorldReady reports whether a save is fully loaded.
func (h *Host) IsWorldReady() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ready
}

// SaveID returns the loaded save identity, empty on the title screen.
func (h *Host) SaveID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.saveID
}

// Time returns the in-world clock.
func (h *Host) Time() host.GameTime {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.time
}

// PlayerLocation returns the player's current location name.
func (h *Host) PlayerLocation() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playerLoc
}

// PlayerSkills returns the live skill map.
func (h *Host) PlayerSkills() map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.skills
}

// PlayerInventory returns the live inventory slots.
func (h *Host) PlayerInventory() []*host.Item {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inventory
}

// Input returns the current input state.
func (h *Host) Input() host.InputState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.input
}

// WindowSize returns the window size.
func (h *Host) WindowSize() host.Size {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.window
}

// ActiveMenu returns the open menu name, empty if none.
func (h *Host) ActiveMenu() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.menu
}

// Locale returns the host language tag.
func (h *Host) Locale() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.locale
}

// SaveStatus reports an in-progress save.
func (h *Host) SaveStatus() host.SaveStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.save
}

// PendingTask returns the pending background task, if any.
func (h *Host) PendingTask() host.Task {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.task
}

// Loader returns the active loader, if any.
func (h *Host) Loader() host.Loader {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loader
}

// Advance runs one tick of host logic.
func (h *Host) Advance(tc host.TickContext) error {
	h.mu.Lock()
	if h.advanceFailures > 0 {
		h.advanceFailures--
		panics := h.advancePanics
		h.mu.Unlock()
		if panics {
			panic(fmt.Sprintf("simhost: advance panic at tick %d", tc.Tick))
		}
		return ErrAdvanceFailed
	}
	defer h.mu.Unlock()

	h.ticks++

	if h.save.InProgress {
		h.saveLeft--
		if h.saveLeft <= 0 {
			h.save = host.SaveStatus{}
		}
		return nil
	}

	if eod, ok := h.task.(*endOfDay); ok && eod.started {
		h.task = nil
	}

	if !h.ready {
		return nil
	}

	if n := h.opts.TicksPerTenMinutes; n > 0 && h.ticks%uint64(n) == 0 && h.task == nil {
		h.time.TimeOfDay = addTenMinutes(h.time.TimeOfDay)
		if h.time.TimeOfDay >= 2600 {
			h.task = &endOfDay{h: h}
		}
	}

	if n := h.opts.WanderEvery; n > 0 && h.ticks%uint64(n) == 0 {
		for li := range h.locations {
			for ni := range h.locations[li].NPCs {
				h.locations[li].NPCs[ni].Tile.X++
			}
		}
	}

	return nil
}

// Render runs the draw pass, invoking hooks around each phase.
func (h *Host) Render(rc host.RenderContext, hooks host.RenderHooks) error {
	h.mu.Lock()
	if h.renderFailures > 0 {
		h.renderFailures--
		panics := h.renderPanics
		h.mu.Unlock()
		if panics {
			panic(fmt.Sprintf("simhost: render panic at frame %d", rc.Frame))
		}
		return ErrRenderFailed
	}
	h.frames++
	phases := []host.RenderPhase{host.PhaseWorld, host.PhaseHUD}
	if h.menu != "" {
		phases = append(phases, host.PhaseActiveMenu)
	}
	h.mu.Unlock()

	for _, p := range phases {
		hooks.Before(p)
		hooks.After(p)
	}
	return nil
}

func addTenMinutes(t int) int {
	m := t%100 + 10
	if m >= 60 {
		return (t/100+1)*100 + m - 60
	}
	return t/100*100 + m
}

// nextDay rolls the calendar forward. Called with h.mu held.
func (h *Host) nextDay() {
	seasons := []string{"spring", "summer", "fall", "winter"}
	h.time.TimeOfDay = 600
	h.time.Day++
	if h.time.Day > 28 {
		h.time.Day = 1
		idx := 0
		for i, s := range seasons {
			if s == h.time.Season {
				idx = i
			}
		}
		idx++
		if idx >= len(seasons) {
			idx = 0
			h.time.Year++
		}
		h.time.Season = seasons[idx]
	}
}
