package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hostloop/internal/events"
	"github.com/roach88/hostloop/internal/lifecycle"
	"github.com/roach88/hostloop/internal/testutil"
)

func openTest(t *testing.T, opts ...Option) (*Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path, append([]Option{WithRunID("run-1")}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j, path
}

func TestOpen_CreatesDatabase(t *testing.T) {
	_, path := openTest(t)

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_Pragmas(t *testing.T) {
	j, _ := openTest(t)

	var mode string
	require.NoError(t, j.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var version int
	require.NoError(t, j.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpen_GeneratesRunID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	require.NoError(t, err)
	defer j.Close()

	assert.Len(t, j.RunID(), 36)
}

func TestRecord_AndEvents(t *testing.T) {
	j, _ := openTest(t)
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, events.Event{Channel: events.UpdateTicking, Tick: 1, Seq: 1}, events.Outcome{}))
	require.NoError(t, j.Record(ctx, events.Event{
		Channel: events.LoadStageChanged,
		Tick:    1,
		Seq:     2,
		Payload: lifecycle.Change{Old: lifecycle.Unloaded, New: lifecycle.Ready},
	}, events.Outcome{Invoked: 2, Failed: 1}))

	got, err := j.Events(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "game_loop.update_ticking", got[0].Channel)
	assert.Equal(t, "null", got[0].Payload)

	assert.Equal(t, "specialized.load_stage_changed", got[1].Channel)
	assert.Equal(t, `{"new":"ready","old":"unloaded"}`, got[1].Payload)
	assert.Equal(t, 2, got[1].Invoked)
	assert.Equal(t, 1, got[1].Failed)
	assert.Equal(t, Digest([]byte(got[1].Payload)), got[1].PayloadHash)
	assert.Equal(t, "run-1", got[1].RunID)
}

func TestRecord_DuplicateSeqIgnored(t *testing.T) {
	j, _ := openTest(t)
	ctx := context.Background()
	ev := events.Event{Channel: events.Saved, Tick: 3, Seq: 7}

	require.NoError(t, j.Record(ctx, ev, events.Outcome{}))
	require.NoError(t, j.Record(ctx, ev, events.Outcome{}))

	got, err := j.Events(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestEvents_Filter(t *testing.T) {
	j, _ := openTest(t)
	ctx := context.Background()

	seq := int64(0)
	for tick := uint64(1); tick <= 5; tick++ {
		for _, ch := range []events.Channel{events.UpdateTicking, events.UpdateTicked} {
			seq++
			require.NoError(t, j.Record(ctx, events.Event{Channel: ch, Tick: tick, Seq: seq}, events.Outcome{}))
		}
	}

	got, err := j.Events(ctx, Filter{Channel: string(events.UpdateTicked)})
	require.NoError(t, err)
	assert.Len(t, got, 5)

	got, err = j.Events(ctx, Filter{FromTick: 2, ToTick: 3})
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, uint64(2), got[0].Tick)
	assert.Equal(t, uint64(3), got[3].Tick)

	got, err = j.Events(ctx, Filter{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = j.Events(ctx, Filter{RunID: "other"})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTap_RecordsRaisedEvents(t *testing.T) {
	j, _ := openTest(t)
	m := events.NewManager(events.WithTokenGenerator(testutil.NewSequentialTokens("")))
	m.AddTap(j.Tap())

	m.SetTick(4)
	m.RaiseEmpty(events.UpdateTicking)
	m.Raise(events.MenuChanged, map[string]string{"new": "inventory", "old": ""})

	require.NoError(t, j.Sync(context.Background()))

	got, err := j.Events(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "display.menu_changed", got[1].Channel)
	assert.Equal(t, uint64(4), got[1].Tick)
	assert.Equal(t, `{"new":"inventory","old":""}`, got[1].Payload)
	assert.Zero(t, j.Dropped())
}

func TestTap_DrainedOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path, WithRunID("run-close"))
	require.NoError(t, err)

	tap := j.Tap()
	for i := int64(1); i <= 20; i++ {
		tap(events.Event{Channel: events.UpdateTicked, Tick: uint64(i), Seq: i}, events.Outcome{})
	}
	require.NoError(t, j.Close())

	r, err := OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	got, err := r.Events(context.Background(), Filter{RunID: "run-close"})
	require.NoError(t, err)
	assert.Len(t, got, 20)
}

func TestClosed_RejectsWrites(t *testing.T) {
	j, _ := openTest(t)
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	err := j.Record(context.Background(), events.Event{Channel: events.Saved, Seq: 1}, events.Outcome{})
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, j.Sync(context.Background()), ErrClosed)

	// Tapping a closed journal is a no-op.
	j.Tap()(events.Event{Channel: events.Saved, Seq: 2}, events.Outcome{})
}

func TestOpenReader_MissingFile(t *testing.T) {
	_, err := OpenReader(filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal not found")
}

func TestOpenReader_ReadOnly(t *testing.T) {
	j, path := openTest(t)
	require.NoError(t, j.Close())

	r, err := OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	err = r.Record(context.Background(), events.Event{Channel: events.Saved, Seq: 1}, events.Outcome{})
	assert.ErrorIs(t, err, ErrReadOnly)

	runs, err := r.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
}

func TestRuns_OrderedByStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for i, id := range []string{"b", "a"} {
		at := base.Add(time.Duration(i) * time.Minute)
		j, err := Open(path, WithRunID(id), WithClock(func() time.Time { return at }))
		require.NoError(t, err)
		require.NoError(t, j.Close())
	}

	r, err := OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	runs, err := r.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].ID)
	assert.Equal(t, base, runs[0].StartedAt)
	assert.Equal(t, "a", runs[1].ID)
}
