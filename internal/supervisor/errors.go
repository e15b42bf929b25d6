package supervisor

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// ErrUnknownWatcher is returned by RemoveWatcher for an unknown ID.
var ErrUnknownWatcher = errors.New("unknown watcher")

// HostPanicError wraps a panic recovered from a host call.
type HostPanicError struct {
	Call  string
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *HostPanicError) Error() string {
	return fmt.Sprintf("host %s panicked: %v", e.Call, e.Value)
}

// IsHostPanic returns true if err is a HostPanicError.
// Uses errors.As to handle wrapped errors.
func IsHostPanic(err error) bool {
	var hp *HostPanicError
	return errors.As(err, &hp)
}

// callHost runs fn, converting a panic into a *HostPanicError.
func callHost(call string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HostPanicError{Call: call, Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}
