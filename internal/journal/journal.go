package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/hostloop/internal/events"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added idx_events_tick for per-run tick range scans
const currentSchemaVersion = 1

// DefaultBuffer is the number of events the tap buffers before dropping.
const DefaultBuffer = 4096

// ErrClosed is returned when writing to a closed journal.
var ErrClosed = errors.New("journal closed")

// ErrReadOnly is returned when writing to a journal opened with OpenReader.
var ErrReadOnly = errors.New("journal opened read-only")

// Entry is one journaled event.
type Entry struct {
	RunID       string `json:"run_id"`
	Seq         int64  `json:"seq"`
	Tick        uint64 `json:"tick"`
	Channel     string `json:"channel"`
	Payload     string `json:"payload"`
	PayloadHash string `json:"payload_hash"`
	Invoked     int    `json:"invoked"`
	Failed      int    `json:"failed"`
}

// Run is one supervisor session recorded in the journal.
type Run struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
}

// Filter narrows Events. Zero fields match everything; ToTick 0 means no
// upper bound.
type Filter struct {
	RunID    string
	Channel  string
	FromTick uint64
	ToTick   uint64
	Limit    int
}

// Option configures a Journal.
type Option func(*Journal)

// WithRunID fixes the run ID instead of generating a UUIDv7.
func WithRunID(id string) Option {
	return func(j *Journal) { j.runID = id }
}

// WithLogger sets the logger used for background write failures.
func WithLogger(l *slog.Logger) Option {
	return func(j *Journal) { j.logger = l }
}

// WithBuffer sets the tap buffer size.
func WithBuffer(n int) Option {
	return func(j *Journal) {
		if n > 0 {
			j.buffer = n
		}
	}
}

// WithClock overrides the time source for run start stamps.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) { j.now = now }
}

type pending struct {
	entry Entry
	ack   chan struct{}
}

// Journal is a SQLite-backed event log.
//
// Thread-safety: Record, Events, Runs, and the tap are safe for concurrent
// use. Close is idempotent and should run after the supervisor stopped.
type Journal struct {
	db     *sql.DB
	runID  string
	logger *slog.Logger
	buffer int
	now    func() time.Time

	mu       sync.RWMutex // guards closed and sends on queue
	closed   bool
	readOnly bool
	queue    chan pending
	done     chan struct{}
	dropped  atomic.Int64
	once     sync.Once
}

// Open creates or opens a journal at path and starts a new run.
func Open(path string, opts ...Option) (*Journal, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	j := &Journal{
		db:     db,
		logger: slog.Default(),
		buffer: DefaultBuffer,
		now:    time.Now,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(j)
	}
	if j.runID == "" {
		j.runID = uuid.Must(uuid.NewV7()).String()
	}
	if _, err := db.Exec(`INSERT INTO runs (id, started_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
		j.runID, j.now().UnixMilli()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to start run: %w", err)
	}

	j.queue = make(chan pending, j.buffer)
	go j.writer()
	return j, nil
}

// OpenReader opens an existing journal for Events and Runs only. No run is
// started and writes return ErrReadOnly.
func OpenReader(path string) (*Journal, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("journal not found: %w", err)
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	return &Journal{db: db, logger: slog.Default(), readOnly: true}, nil
}

// openDB opens the database file, creating it if needed.
//
// The database is configured with:
//   - WAL mode so `hostloop trace` can read while a run is writing
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return db, nil
}

// RunID returns the ID of the run this journal writes to.
func (j *Journal) RunID() string { return j.runID }

// Dropped returns how many tapped events were discarded because the buffer
// was full.
func (j *Journal) Dropped() int64 { return j.dropped.Load() }

// Record writes ev synchronously.
func (j *Journal) Record(ctx context.Context, ev events.Event, out events.Outcome) error {
	if err := j.writable(); err != nil {
		return err
	}
	entry, err := j.entryFor(ev, out)
	if err != nil {
		return err
	}
	return j.insert(ctx, entry)
}

// Tap returns an events.Tap that journals every raise without blocking the
// raising goroutine. Events that do not fit in the buffer are dropped and
// counted.
func (j *Journal) Tap() events.Tap {
	return func(ev events.Event, out events.Outcome) {
		entry, err := j.entryFor(ev, out)
		if err != nil {
			j.logger.Warn("journal: payload not encodable", "channel", ev.Channel, "seq", ev.Seq, "error", err)
			return
		}

		j.mu.RLock()
		defer j.mu.RUnlock()
		if j.closed || j.readOnly {
			return
		}
		select {
		case j.queue <- pending{entry: entry}:
		default:
			j.dropped.Add(1)
		}
	}
}

// Sync blocks until every event tapped so far has been written.
func (j *Journal) Sync(ctx context.Context) error {
	ack := make(chan struct{})
	if err := j.send(ctx, pending{ack: ack}); err != nil {
		return err
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains buffered events and closes the database.
func (j *Journal) Close() error {
	var err error
	j.once.Do(func() {
		j.mu.Lock()
		j.closed = true
		if j.queue != nil {
			close(j.queue)
		}
		j.mu.Unlock()

		if j.queue != nil {
			<-j.done
		}
		err = j.db.Close()
	})
	return err
}

func (j *Journal) writable() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	switch {
	case j.readOnly:
		return ErrReadOnly
	case j.closed:
		return ErrClosed
	}
	return nil
}

func (j *Journal) send(ctx context.Context, p pending) error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	switch {
	case j.readOnly:
		return ErrReadOnly
	case j.closed:
		return ErrClosed
	}
	select {
	case j.queue <- p:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Journal) writer() {
	defer close(j.done)
	for p := range j.queue {
		if p.ack != nil {
			close(p.ack)
			continue
		}
		if err := j.insert(context.Background(), p.entry); err != nil {
			j.logger.Error("journal: write failed", "channel", p.entry.Channel, "seq", p.entry.Seq, "error", err)
		}
	}
}

func (j *Journal) entryFor(ev events.Event, out events.Outcome) (Entry, error) {
	payload, err := Canonical(ev.Payload)
	if err != nil {
		return Entry{}, fmt.Errorf("journal %s: %w", ev.Channel, err)
	}
	return Entry{
		RunID:       j.runID,
		Seq:         ev.Seq,
		Tick:        ev.Tick,
		Channel:     string(ev.Channel),
		Payload:     string(payload),
		PayloadHash: Digest(payload),
		Invoked:     out.Invoked,
		Failed:      out.Failed,
	}, nil
}

// insert uses ON CONFLICT DO NOTHING so a replayed write is harmless.
func (j *Journal) insert(ctx context.Context, e Entry) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO events
		(run_id, seq, tick, channel, payload, payload_hash, invoked, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		e.RunID,
		e.Seq,
		int64(e.Tick),
		e.Channel,
		e.Payload,
		e.PayloadHash,
		e.Invoked,
		e.Failed,
	)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV1 adds the per-run tick index to journals created before it
// existed in schema.sql.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_events_tick ON events(run_id, tick)`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}
