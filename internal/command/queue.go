package command

import (
	"errors"
	"fmt"
	"sync"
)

// ErrQueueClosed is returned by Submit after the queue was closed.
var ErrQueueClosed = errors.New("command queue closed")

// Queue is a thread-safe FIFO of raw console lines.
//
// Any goroutine may Enqueue (typically a stdin reader); only the supervisor
// dequeues, once per tick, the lines present when the drain starts.
//
// The signal channel lets a producer-side consumer wait with select instead
// of polling:
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-q.Wait():
//	    // TryDequeue
//	}
type Queue struct {
	mu       sync.Mutex
	lines    []string
	capacity int
	closed   bool
	dropped  int
	signal   chan struct{} // buffered, size 1
}

// NewQueue creates a queue. A capacity of 0 means unbounded.
func NewQueue(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{
		lines:    make([]string, 0, 16),
		capacity: capacity,
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue appends a raw command line.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed or full.
func (q *Queue) Enqueue(raw string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	if q.capacity > 0 && len(q.lines) >= q.capacity {
		q.dropped++
		return false
	}

	q.lines = append(q.lines, raw)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front line without blocking.
// Returns ("", false) if the queue is empty.
func (q *Queue) TryDequeue() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.lines) == 0 {
		return "", false
	}

	line := q.lines[0]
	q.lines[0] = ""
	if len(q.lines) == 1 {
		q.lines = q.lines[:0]
	} else {
		q.lines = q.lines[1:]
	}
	return line, true
}

// Wait returns a channel that signals when lines may be available. The
// channel is closed by Close.
func (q *Queue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued lines.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lines)
}

// Dropped returns how many lines were rejected because the queue was full.
func (q *Queue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Close rejects further lines. Lines already queued can still be dequeued.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Submit enqueues raw on q, reporting ErrQueueClosed or a full queue as an
// error.
func Submit(q *Queue, raw string) error {
	if q.Enqueue(raw) {
		return nil
	}
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return ErrQueueClosed
	}
	return fmt.Errorf("command queue full (capacity %d)", q.capacity)
}
