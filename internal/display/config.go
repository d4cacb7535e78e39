// Package display controls an external monitor's power state over DDC/CI
// and reports how long the local desktop session has been idle.
package display

import (
	"errors"
	"time"
)

var (
	// ErrQuery is returned when the idle service cannot be queried.
	ErrQuery = errors.New("idle query failed")

	// ErrUnexpectedValue is returned when the power register holds a value
	// that is neither the configured on nor off value.
	ErrUnexpectedValue = errors.New("unexpected power register value")

	// ErrWriteFailed is returned when the display did not accept a power write.
	ErrWriteFailed = errors.New("power write failed")

	// ErrTimeout is returned when a bounded operation did not finish in time.
	ErrTimeout = errors.New("operation timed out")

	// ErrClosed is returned for hardware calls made after Close.
	ErrClosed = errors.New("hardware worker closed")
)

// PowerConfig describes how to reach the display and which power register
// values mean on and off. It is set once at startup and never mutated.
type PowerConfig struct {
	Path    string
	Address uint16
	On      uint16
	Off     uint16
}

// RetryPolicy bounds the power-on write. Attempts counts every write,
// including the first one.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryPolicy matches how long typical monitors take to come out of standby.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 20, Delay: 100 * time.Millisecond}
}
