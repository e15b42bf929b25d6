package simhost

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hostloop/internal/host"
)

type phaseRecorder struct {
	calls []string
}

func (r *phaseRecorder) Before(p host.RenderPhase) { r.calls = append(r.calls, "before:"+string(p)) }
func (r *phaseRecorder) After(p host.RenderPhase)  { r.calls = append(r.calls, "after:"+string(p)) }

func advance(t *testing.T, h *Host, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, h.Advance(host.TickContext{Tick: h.Ticks() + 1}))
	}
}

func TestNew_TitleScreen(t *testing.T) {
	h := New(Options{})

	assert.False(t, h.IsWorldReady())
	assert.Empty(t, h.SaveID())
	assert.Nil(t, h.Locations())
	assert.Nil(t, h.Loader())
	assert.Equal(t, "en-US", h.Locale())
	assert.Equal(t, host.Size{Width: 1280, Height: 720}, h.WindowSize())
}

func TestNewLoaded_DefaultWorld(t *testing.T) {
	h := NewLoaded(Options{})

	assert.True(t, h.IsWorldReady())
	assert.Equal(t, "test-save", h.SaveID())
	assert.Equal(t, "Farm", h.PlayerLocation())
	require.Len(t, h.Locations(), 2)
	assert.Equal(t, "Town", h.Locations()[1].Name)
	assert.Equal(t, host.GameTime{Year: 1, Season: "spring", Day: 1, TimeOfDay: 600}, h.Time())
	require.NotNil(t, h.PlayerInventory()[2])
	assert.Equal(t, 15, h.PlayerInventory()[2].Stack)
	assert.Contains(t, h.PlayerSkills(), "farming")
}

func TestDefaultLocations_FreshCopy(t *testing.T) {
	a := DefaultLocations()
	a[1].NPCs[0].Tile.X = 999

	b := DefaultLocations()
	assert.Equal(t, 40, b[1].NPCs[0].Tile.X)
}

func TestStartLoad_StepsThroughMilestones(t *testing.T) {
	h := New(Options{})
	h.StartLoad("slot-1")

	l := h.Loader()
	require.NotNil(t, l)

	var got []host.LoadMilestone
	for {
		m, done, err := l.Step()
		require.NoError(t, err)
		got = append(got, m)
		if done {
			break
		}
	}

	assert.Equal(t, []host.LoadMilestone{
		host.MilestoneSaveParsed,
		host.MilestoneBasicInfoLoaded,
		host.MilestoneLocationsLoaded,
		host.MilestonePreloaded,
		host.MilestoneLoaded,
	}, got)
	assert.True(t, h.IsWorldReady())
	assert.Equal(t, "slot-1", h.SaveID())
	assert.Nil(t, h.Loader())
}

func TestFailLoad(t *testing.T) {
	h := New(Options{})
	boom := errors.New("corrupt save")
	h.FailLoad(boom)

	m, done, err := h.Loader().Step()
	assert.ErrorIs(t, err, boom)
	assert.True(t, done)
	assert.Equal(t, host.MilestoneNone, m)
	assert.Nil(t, h.Loader())
	assert.False(t, h.IsWorldReady())
}

func TestAdvance_ClockAndEndOfDay(t *testing.T) {
	h := NewLoaded(Options{TicksPerTenMinutes: 2, SaveTicks: 2})
	h.SetTime(host.GameTime{Year: 1, Season: "spring", Day: 3, TimeOfDay: 2540})

	advance(t, h, 2)
	assert.Equal(t, 2550, h.Time().TimeOfDay)
	assert.Nil(t, h.PendingTask())

	advance(t, h, 2)
	assert.Equal(t, 2600, h.Time().TimeOfDay)
	task := h.PendingTask()
	require.NotNil(t, task)
	assert.False(t, task.Started())

	require.NoError(t, task.Run())
	assert.True(t, task.Started())
	assert.Equal(t, host.GameTime{Year: 1, Season: "spring", Day: 4, TimeOfDay: 600}, h.Time())
	assert.True(t, h.SaveStatus().InProgress)

	advance(t, h, 1)
	assert.True(t, h.SaveStatus().InProgress)
	advance(t, h, 1)
	assert.False(t, h.SaveStatus().InProgress)
	assert.NotNil(t, h.PendingTask())

	advance(t, h, 1)
	assert.Nil(t, h.PendingTask())
}

func TestEndDay_SeasonAndYearRollover(t *testing.T) {
	h := NewLoaded(Options{})
	h.SetTime(host.GameTime{Year: 1, Season: "winter", Day: 28, TimeOfDay: 2200})
	h.StartNewGame("ignored")
	h.ClearLoader()
	h.EndDay()

	require.NoError(t, h.PendingTask().Run())
	assert.Equal(t, host.GameTime{Year: 2, Season: "spring", Day: 1, TimeOfDay: 600}, h.Time())
	assert.Equal(t, host.SaveStatus{InProgress: true, NewGame: true}, h.SaveStatus())
}

func TestAddTenMinutes(t *testing.T) {
	assert.Equal(t, 610, addTenMinutes(600))
	assert.Equal(t, 700, addTenMinutes(650))
	assert.Equal(t, 1300, addTenMinutes(1250))
	assert.Equal(t, 2600, addTenMinutes(2550))
}

func TestAdvance_Wander(t *testing.T) {
	h := NewLoaded(Options{WanderEvery: 3})

	advance(t, h, 2)
	assert.Equal(t, 40, h.Locations()[1].NPCs[0].Tile.X)
	advance(t, h, 1)
	assert.Equal(t, 41, h.Locations()[1].NPCs[0].Tile.X)
	assert.Equal(t, 53, h.Locations()[1].NPCs[1].Tile.X)
}

func TestAdvance_NotReadyDoesNothing(t *testing.T) {
	h := New(Options{TicksPerTenMinutes: 1})

	advance(t, h, 5)
	assert.Equal(t, uint64(5), h.Ticks())
	assert.Zero(t, h.Time().TimeOfDay)
}

func TestFailAdvance(t *testing.T) {
	h := NewLoaded(Options{})
	h.FailAdvance(2, false)

	assert.ErrorIs(t, h.Advance(host.TickContext{Tick: 1}), ErrAdvanceFailed)
	assert.ErrorIs(t, h.Advance(host.TickContext{Tick: 2}), ErrAdvanceFailed)
	assert.NoError(t, h.Advance(host.TickContext{Tick: 3}))
	assert.Equal(t, uint64(1), h.Ticks())

	h.FailAdvance(1, true)
	assert.Panics(t, func() { _ = h.Advance(host.TickContext{Tick: 4}) })
	assert.NoError(t, h.Advance(host.TickContext{Tick: 5}))
}

func TestRender_Phases(t *testing.T) {
	h := NewLoaded(Options{})

	rec := &phaseRecorder{}
	require.NoError(t, h.Render(host.RenderContext{Frame: 1}, rec))
	assert.Equal(t, []string{"before:world", "after:world", "before:hud", "after:hud"}, rec.calls)

	h.SetMenu("inventory")
	rec = &phaseRecorder{}
	require.NoError(t, h.Render(host.RenderContext{Frame: 2}, rec))
	assert.Len(t, rec.calls, 6)
	assert.Equal(t, "after:active_menu", rec.calls[5])
	assert.Equal(t, uint64(2), h.Frames())
}

func TestFailRender(t *testing.T) {
	h := NewLoaded(Options{})
	h.FailRender(1, false)

	rec := &phaseRecorder{}
	assert.ErrorIs(t, h.Render(host.RenderContext{Frame: 1}, rec), ErrRenderFailed)
	assert.Empty(t, rec.calls)
	assert.Zero(t, h.Frames())

	h.FailRender(1, true)
	assert.Panics(t, func() { _ = h.Render(host.RenderContext{Frame: 2}, rec) })
}

func TestReturnToTitle(t *testing.T) {
	h := NewLoaded(Options{})
	h.EndDay()
	h.ReturnToTitle()

	assert.False(t, h.IsWorldReady())
	assert.Empty(t, h.SaveID())
	assert.Nil(t, h.Locations())
	assert.Nil(t, h.PendingTask())
	assert.Empty(t, h.PlayerSkills())
}

func TestMutators(t *testing.T) {
	h := NewLoaded(Options{})

	h.SetInventorySlot(20, &host.Item{ID: "wood", Name: "Wood", Stack: 5})
	require.Len(t, h.PlayerInventory(), 21)
	assert.Equal(t, "wood", h.PlayerInventory()[20].ID)

	h.MutateInventoryInPlace(20, 9)
	assert.Equal(t, 9, h.PlayerInventory()[20].Stack)

	h.SetSkill("mining", 3)
	assert.Equal(t, 3, h.PlayerSkills()["mining"])

	h.Warp("Town")
	assert.Equal(t, "Town", h.PlayerLocation())

	h.AddLocation(host.Location{Name: "Mine"})
	h.RemoveLocation("Farm")
	names := []string{}
	for _, l := range h.Locations() {
		names = append(names, l.Name)
	}
	assert.Equal(t, []string{"Town", "Mine"}, names)

	h.UpdateLocation("Mine", func(l *host.Location) {
		l.Objects = append(l.Objects, host.Entity{ID: "ladder"})
	})
	assert.Equal(t, "ladder", h.Locations()[1].Objects[0].ID)

	h.SetInput(host.InputState{Pressed: []string{"MouseLeft"}})
	assert.Equal(t, []string{"MouseLeft"}, h.Input().Pressed)

	h.SetWindowSize(host.Size{Width: 800, Height: 600})
	assert.Equal(t, host.Size{Width: 800, Height: 600}, h.WindowSize())

	h.SetLocale("fr-FR")
	assert.Equal(t, "fr-FR", h.Locale())
}
