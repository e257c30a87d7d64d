// Package backend defines the session backend consumed by the session
// registry, and provides the local pty implementation. A backend spawns a
// shell, streams its output as events, and accepts input, resize, and kill
// requests for the lifetime of one handle.
package backend

import (
	"context"
	"errors"
)

// Common errors for backend handles.
var (
	// ErrHandleClosed indicates an operation on a killed or exited handle.
	ErrHandleClosed = errors.New("backend handle is closed")
	// ErrCwdUnavailable indicates the working directory could not be
	// determined for a handle's process.
	ErrCwdUnavailable = errors.New("working directory unavailable")
)

// EventKind discriminates handle events.
type EventKind int

const (
	// EventOutput carries a chunk of raw output bytes.
	EventOutput EventKind = iota
	// EventExit signals the session process exited; it is the final event.
	EventExit
	// EventError carries a stream error message.
	EventError
)

// Event is one entry in a handle's output stream.
type Event struct {
	Kind EventKind
	// Data holds output bytes for EventOutput.
	Data []byte
	// Message holds the error text for EventError.
	Message string
}

// Handle is one live session process. Events must be drained by exactly
// one consumer; the channel closes after EventExit.
type Handle interface {
	// Write sends input bytes to the session.
	Write(data []byte) error
	// Resize updates the session's terminal dimensions.
	Resize(rows, cols int) error
	// Kill terminates the session process. Idempotent.
	Kill() error
	// Cwd queries the working directory of the session's foreground
	// process. Fallible and potentially slow; honor the context.
	Cwd(ctx context.Context) (string, error)
	// Events returns the handle's event stream.
	Events() <-chan Event
}

// Backend creates session handles. Creation is fallible and may be slow;
// callers invoke it asynchronously.
type Backend interface {
	Create(ctx context.Context, rows, cols int, cwd string) (Handle, error)
}
