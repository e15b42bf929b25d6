// Package crashguard bounds how many consecutive host-call failures the
// supervisor tolerates before shutting down.
package crashguard

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// DefaultCeiling is roughly one second of ticks at 60 ticks per second.
const DefaultCeiling = 60

// Phase identifies the host call a counter guards.
type Phase string

const (
	PhaseAdvance Phase = "advance"
	PhaseRender  Phase = "render"
)

// Counter is a bounded failure counter.
//
// It starts at its ceiling, is decremented on each failure and restored to
// the ceiling on success. Not safe for concurrent use; each counter belongs
// to one call site on the tick goroutine.
type Counter struct {
	ceiling   int
	remaining int
}

// NewCounter creates a counter. A ceiling below 1 is treated as 1.
func NewCounter(ceiling int) *Counter {
	if ceiling < 1 {
		ceiling = 1
	}
	return &Counter{ceiling: ceiling, remaining: ceiling}
}

// Decrement records a failure and reports whether the floor was reached.
func (c *Counter) Decrement() bool {
	if c.remaining > 0 {
		c.remaining--
	}
	return c.remaining == 0
}

// Reset restores the ceiling.
func (c *Counter) Reset() {
	c.remaining = c.ceiling
}

// Remaining returns failures left before the floor.
func (c *Counter) Remaining() int {
	return c.remaining
}

// Ceiling returns the configured ceiling.
func (c *Counter) Ceiling() int {
	return c.ceiling
}

// FatalError is the cause recorded when a counter is exhausted.
type FatalError struct {
	Phase Phase
	Last  error
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	msg := "crashed while updating"
	if e.Phase == PhaseRender {
		msg = "crashed while rendering"
	}
	if e.Last != nil {
		return fmt.Sprintf("%s: %v", msg, e.Last)
	}
	return msg
}

// Unwrap returns the last host failure.
func (e *FatalError) Unwrap() error { return e.Last }

// IsFatalError returns true if err is a FatalError.
// Uses errors.As to handle wrapped errors.
func IsFatalError(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// Guard owns the advance and render counters and the process-wide
// cancellation signal they trip.
//
// Thread-safety: Fail and Succeed are called from the tick goroutine;
// Cancel, Done, Cancelled and Err are safe from any goroutine.
type Guard struct {
	Advance *Counter
	Render  *Counter

	ctx     context.Context
	cancel  context.CancelCauseFunc
	once    sync.Once
	onFatal func(*FatalError)
}

// Option configures a Guard.
type Option func(*Guard)

// WithOnFatal registers a callback invoked once when a counter is exhausted.
func WithOnFatal(fn func(*FatalError)) Option {
	return func(g *Guard) { g.onFatal = fn }
}

// New creates a guard whose cancellation derives from parent.
func New(parent context.Context, advanceCeiling, renderCeiling int, opts ...Option) *Guard {
	ctx, cancel := context.WithCancelCause(parent)
	g := &Guard{
		Advance: NewCounter(advanceCeiling),
		Render:  NewCounter(renderCeiling),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Guard) counter(p Phase) *Counter {
	if p == PhaseRender {
		return g.Render
	}
	return g.Advance
}

// Succeed resets the counter for p.
func (g *Guard) Succeed(p Phase) {
	g.counter(p).Reset()
}

// Fail records a failure for p. It returns a *FatalError the first time any
// counter reaches its floor, and nil otherwise.
func (g *Guard) Fail(p Phase, err error) *FatalError {
	if !g.counter(p).Decrement() {
		return nil
	}
	var fatal *FatalError
	g.once.Do(func() {
		fatal = &FatalError{Phase: p, Last: err}
		g.cancel(fatal)
		if g.onFatal != nil {
			g.onFatal(fatal)
		}
	})
	return fatal
}

// Cancel requests shutdown from outside the guard. It does not count as a
// fatal crash.
func (g *Guard) Cancel(cause error) {
	g.cancel(cause)
}

// Cancelled reports whether cancellation has been signaled.
func (g *Guard) Cancelled() bool {
	return g.ctx.Err() != nil
}

// Done returns a channel closed on cancellation.
func (g *Guard) Done() <-chan struct{} {
	return g.ctx.Done()
}

// Err returns the cancellation cause: a *FatalError after a crash, the
// cause passed to Cancel, or nil while running.
func (g *Guard) Err() error {
	if g.ctx.Err() == nil {
		return nil
	}
	return context.Cause(g.ctx)
}

// Fatal returns the *FatalError that cancelled the guard, if any.
func (g *Guard) Fatal() *FatalError {
	var fe *FatalError
	if errors.As(g.Err(), &fe) {
		return fe
	}
	return nil
}
