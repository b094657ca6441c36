package hooks

import (
	"errors"
	"fmt"
)

// Sentinel errors for binding operations.
var (
	// ErrNotAttached is returned when binding an element that is not part of
	// its document.
	ErrNotAttached = errors.New("hooks: element not attached")

	// ErrNoChannel is returned by PushEventTo when no remote channel is set.
	ErrNoChannel = errors.New("hooks: no remote channel")

	// ErrUnknownHook is returned by a Registry for an undefined hook name.
	ErrUnknownHook = errors.New("hooks: unknown hook")

	// ErrBadCommand is returned by Exec for a malformed command.
	ErrBadCommand = errors.New("hooks: bad command")
)

// BindError wraps a binding failure with the element it concerns.
type BindError struct {
	Hook    string
	Element string
	Err     error
}

// Error returns the error message with binding context.
func (e *BindError) Error() string {
	if e.Hook == "" {
		return fmt.Sprintf("hooks: bind %s: %v", e.Element, e.Err)
	}
	return fmt.Sprintf("hooks: bind %s on %s: %v", e.Hook, e.Element, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *BindError) Unwrap() error {
	return e.Err
}
