// Package host defines the boundary between the supervision core and the
// real-time application it observes.
//
// The host owns the simulation. The core reads host state exclusively
// through Context, a narrow accessor interface the host exposes on purpose,
// and drives the host's own logic through Advance and Render. All accessors
// are called from the tick goroutine; slices and maps returned by accessors
// may alias live host state and are copied by watchers before comparison.
package host

import "fmt"

// Context is the host's deliberate adapter surface.
type Context interface {
	// World structure and content.
	Locations() []Location
	IsWorldReady() bool
	SaveID() string
	Time() GameTime

	// Player.
	PlayerLocation() string
	PlayerSkills() map[string]int
	PlayerInventory() []*Item

	// Input and display.
	Input() InputState
	WindowSize() Size
	ActiveMenu() string
	Locale() string

	// Special states.
	SaveStatus() SaveStatus
	PendingTask() Task
	Loader() Loader

	// Advance runs the host's own tick logic.
	Advance(tc TickContext) error

	// Render runs the host's draw pass. The host calls hooks.Before and
	// hooks.After around each RenderPhase it draws.
	Render(rc RenderContext, hooks RenderHooks) error
}

// TickContext is passed to the host on each advance.
type TickContext struct {
	Tick uint64
}

// RenderContext is passed to the host on each render pass.
type RenderContext struct {
	Frame uint64
}

// RenderPhase identifies one part of the host's draw pass.
type RenderPhase string

const (
	PhaseWorld      RenderPhase = "world"
	PhaseHUD        RenderPhase = "hud"
	PhaseActiveMenu RenderPhase = "active_menu"
)

// RenderHooks is implemented by the supervisor and invoked by the host.
type RenderHooks interface {
	Before(phase RenderPhase)
	After(phase RenderPhase)
}

// Point is a screen or tile coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Size is a window size in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GameTime is the host's in-world clock.
type GameTime struct {
	Year      int    `json:"year"`
	Season    string `json:"season"`
	Day       int    `json:"day"`
	TimeOfDay int    `json:"time_of_day"` // 600..2600, e.g. 1330 = 1:30pm
}

// String renders the time as "Y1 spring 3 0600".
func (t GameTime) String() string {
	return fmt.Sprintf("Y%d %s %d %04d", t.Year, t.Season, t.Day, t.TimeOfDay)
}

// SameDay reports whether both times fall on the same in-world day.
func (t GameTime) SameDay(o GameTime) bool {
	return t.Year == o.Year && t.Season == o.Season && t.Day == o.Day
}

// InputState is a snapshot of cursor, pressed buttons and wheel position.
type InputState struct {
	Cursor  Point    `json:"cursor"`
	Pressed []string `json:"pressed"`
	Wheel   int      `json:"wheel"`
}

// SaveStatus describes an in-progress save write.
type SaveStatus struct {
	InProgress bool
	// NewGame is set when the save being written creates the save file for
	// a new game.
	NewGame bool
}

// Task is host-owned background work, such as the end-of-day save commit.
type Task interface {
	Started() bool
	// Run executes the task to completion on the calling goroutine.
	Run() error
}

// LoadMilestone is a coarse loader progress signal.
type LoadMilestone int

const (
	MilestoneNone LoadMilestone = iota
	MilestoneSaveParsed
	MilestoneBasicInfoLoaded
	MilestoneLocationsLoaded
	MilestonePreloaded
	MilestoneLoaded
)

// Loader is a host-driven save loader that materializes a save in steps.
type Loader interface {
	// Step advances the loader and returns the milestone reached, if any,
	// and whether loading is complete.
	Step() (LoadMilestone, bool, error)
}
