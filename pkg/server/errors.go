package server

import (
	"errors"
	"fmt"
)

// Sentinel errors for session and server conditions.
var (
	// ErrSessionClosed is returned when writing to a closed session.
	ErrSessionClosed = errors.New("server: session closed")

	// ErrHandlerNotFound is returned when no handler is registered for an event.
	ErrHandlerNotFound = errors.New("server: handler not found")

	// ErrMaxSessionsReached is returned when the session limit is reached.
	ErrMaxSessionsReached = errors.New("server: max sessions reached")

	// ErrNoConnection is returned when a session has no connection.
	ErrNoConnection = errors.New("server: no connection")

	// ErrMissingParam is returned by handlers when a required payload key
	// is absent.
	ErrMissingParam = errors.New("server: missing parameter")

	// ErrInvalidConfig is returned by Run and Serve when the server was
	// built with a config that fails Validate.
	ErrInvalidConfig = errors.New("server: invalid config")
)

// SessionError wraps an error with session context.
type SessionError struct {
	SessionID string
	Op        string
	Err       error
}

// Error returns the error message with session context.
func (e *SessionError) Error() string {
	if e.SessionID == "" {
		return fmt.Sprintf("server: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("server: session %s: %s: %v", e.SessionID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *SessionError) Unwrap() error {
	return e.Err
}

// NewSessionError creates a new SessionError.
func NewSessionError(sessionID, op string, err error) *SessionError {
	return &SessionError{SessionID: sessionID, Op: op, Err: err}
}

// HandlerError wraps a panic that occurred in a push handler.
type HandlerError struct {
	SessionID string
	Event     string
	Panic     any
	Stack     []byte
}

// Error returns the error message.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("server: handler panic in session %s, event %s: %v", e.SessionID, e.Event, e.Panic)
}
