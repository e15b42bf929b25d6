// Package watcher implements the domain watchers that own one state domain's
// baseline and current snapshot.
//
// Every watcher follows the same three-step protocol, driven by the
// supervisor once per tick and in this order:
//
//	w.Update() // capture the current value from the host
//	w.Diff()   // pure comparison against the committed baseline
//	w.Reset()  // commit current as the new baseline
//
// Watchers copy collections before storing them because the host does not
// pause while the comparison runs. Watchers are not safe for concurrent use;
// only the tick goroutine touches them.
package watcher

import (
	"fmt"
	"runtime/debug"
)

// Watcher is the type-erased protocol shared by all watchers.
type Watcher interface {
	// Update captures the current value.
	Update()
	// IsChanged reports whether current differs from the baseline.
	IsChanged() bool
	// Reset commits the current value as the new baseline.
	Reset()
}

// Payloader is implemented by watchers whose diff can be published as an
// event payload. Custom watchers registered by extensions implement it.
type Payloader interface {
	Watcher
	Payload() any
}

// UpdateError wraps a panic raised while capturing or comparing a domain.
type UpdateError struct {
	Domain string
	Value  any
	Stack  []byte
}

// Error implements the error interface.
func (e *UpdateError) Error() string {
	return fmt.Sprintf("watcher %s: panic: %v", e.Domain, e.Value)
}

// Safe runs fn and converts a panic into an *UpdateError.
func Safe(domain string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &UpdateError{Domain: domain, Value: r, Stack: debug.Stack()}
		}
	}()
	fn()
	return nil
}
