package ports

import (
	"errors"
	"fmt"
)

// Load and query error kinds. Resolution misses are not errors; they surface
// as resolver.Outcome values.
var (
	// ErrLoadTransport: fetching the table failed at the network/status level.
	// Retryable by the caller.
	ErrLoadTransport = errors.New("load transport failure")
	// ErrLoadShape: the source answered but the payload is not a usable row
	// array. Not retryable without fixing the source.
	ErrLoadShape = errors.New("load shape failure")
	// ErrNotReady: no generation has been loaded yet.
	ErrNotReady = errors.New("data not loaded")
	// ErrUnknownBuilding: the drill-down named a building the Group Index
	// does not hold.
	ErrUnknownBuilding = errors.New("unknown building")
)

// TransportError describes a fetch that never produced a payload.
// Status is the HTTP status code when one was received, 0 otherwise.
type TransportError struct {
	Source string
	Status int
	Reason string
	Err    error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Source, e.Reason)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s: status %d: %s", e.Source, e.Status, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches ErrLoadTransport.
func (e *TransportError) Is(target error) bool { return target == ErrLoadTransport }

// Unwrap exposes the underlying cause.
func (e *TransportError) Unwrap() error { return e.Err }

// ShapeError describes a payload that could not be turned into rows.
type ShapeError struct {
	Source string
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: unusable response: %s", e.Source, e.Reason)
}

// Is matches ErrLoadShape.
func (e *ShapeError) Is(target error) bool { return target == ErrLoadShape }

// Retryable reports whether a load error may succeed on a plain retry.
func Retryable(err error) bool {
	return errors.Is(err, ErrLoadTransport)
}
