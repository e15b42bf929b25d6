// Package logging configures slog for the process and provides the deferred
// record buffer the supervisor flushes at the top of every tick.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// New builds a logger writing to w. level is one of debug, info, warn,
// error; format is text or json.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid log format %q: must be text or json", format)
	}
	return slog.New(h), nil
}

// ParseLevel maps a level name to a slog.Level. Empty means info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", name)
	}
}

type record struct {
	level slog.Level
	msg   string
	args  []any
}

// Deferred buffers log records produced off the tick goroutine (command
// readers, extension background work) so they are emitted in order by the
// tick goroutine.
//
// Thread-safety: Log and Flush are safe for concurrent use.
type Deferred struct {
	mu      sync.Mutex
	records []record
}

// NewDeferred creates an empty buffer.
func NewDeferred() *Deferred {
	return &Deferred{}
}

// Log queues a record.
func (d *Deferred) Log(level slog.Level, msg string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records = append(d.records, record{level: level, msg: msg, args: args})
}

// Info queues an info record.
func (d *Deferred) Info(msg string, args ...any) { d.Log(slog.LevelInfo, msg, args...) }

// Warn queues a warning record.
func (d *Deferred) Warn(msg string, args ...any) { d.Log(slog.LevelWarn, msg, args...) }

// Error queues an error record.
func (d *Deferred) Error(msg string, args ...any) { d.Log(slog.LevelError, msg, args...) }

// Len returns the number of queued records.
func (d *Deferred) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.records)
}

// Flush emits queued records to logger in FIFO order and returns how many
// were emitted.
func (d *Deferred) Flush(ctx context.Context, logger *slog.Logger) int {
	d.mu.Lock()
	pending := d.records
	d.records = nil
	d.mu.Unlock()

	for _, r := range pending {
		logger.Log(ctx, r.level, r.msg, r.args...)
	}
	return len(pending)
}
