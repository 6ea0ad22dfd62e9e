package asynccore

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrOutOfRange is returned when an id (context, worker slot, or group
	// index) does not refer to an existing entry.
	ErrOutOfRange = errors.New("asynccore: out of range")

	// ErrNotJoinable is returned by [Core.Join] when the core is not running,
	// or when another joiner already claimed the current running session.
	ErrNotJoinable = errors.New("asynccore: core is not joinable")

	// ErrCoroutineExpired indicates an attempt to resume, or obtain a caller
	// for, a coroutine whose shared state has been released.
	ErrCoroutineExpired = errors.New("asynccore: coroutine expired")

	// ErrPromiseSatisfied is returned by [Promise.SetValue] and
	// [Promise.SetError] when the promise has already been satisfied.
	ErrPromiseSatisfied = errors.New("asynccore: promise already satisfied")

	// ErrNoFutureState is reported by operations on a zero-value [Future],
	// which shares no state with any promise.
	ErrNoFutureState = errors.New("asynccore: future has no shared state")
)

// PanicError wraps a value recovered from a panicking task or coroutine body,
// preserving it for error matching and handler delivery.
type PanicError struct {
	// Value is the recovered panic value.
	Value any
}

// Error implements the error interface.
func (e PanicError) Error() string {
	return fmt.Sprintf("asynccore: panic: %v", e.Value)
}

// Unwrap returns the underlying error if the panic value is an error type.
// This enables use with [errors.Is] and [errors.As] through the cause chain.
// If the panic value is not an error (e.g. a string), returns nil.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// asError normalizes a recovered panic value to an error, wrapping non-error
// values in [PanicError].
func asError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return PanicError{Value: r}
}
