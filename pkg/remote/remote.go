package remote

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// Releaser is the handle a pushed command carries back to its issuer.
// Release must be idempotent: only the first call has an effect.
type Releaser interface {
	Release() bool
}

// ReleaseFunc adapts a function to Releaser. It is not idempotent on its
// own; wrap it with Once when the caller needs that.
type ReleaseFunc func()

// Release implements Releaser.
func (f ReleaseFunc) Release() bool {
	f()
	return true
}

// Channel delivers commands to the server.
//
// A channel invokes releaser at most once, on the document loop, and only
// after the server applied the command. When the command fails or the
// connection is lost, releaser is never invoked.
type Channel interface {
	PushEventTo(ctx context.Context, target, event string, payload map[string]any, releaser Releaser) error
}

// ListTargetPrefix prefixes push targets that address a list.
const ListTargetPrefix = "lists/"

// ListTarget returns the push target for the list with element id name.
func ListTarget(name string) string { return ListTargetPrefix + name }

// Poster runs functions on a document loop. *dom.Document implements it.
type Poster interface {
	Post(fn func())
}

// Sentinel errors for channel operations.
var (
	// ErrClosed is returned when pushing on a closed channel.
	ErrClosed = errors.New("remote: channel closed")

	// ErrNotConnected is returned when a client has no live connection.
	ErrNotConnected = errors.New("remote: not connected")

	// ErrNoHandler is returned when the server side has no handler.
	ErrNoHandler = errors.New("remote: no handler for event")
)

// PushError describes a push the server rejected.
type PushError struct {
	Ref    uint64
	Target string
	Event  string
	Reason string
}

// Error implements error.
func (e *PushError) Error() string {
	return fmt.Sprintf("remote: push %d %s/%s rejected: %s", e.Ref, e.Target, e.Event, e.Reason)
}

// StringPayload flattens a payload into strings for the wire.
func StringPayload(payload map[string]any) map[string]string {
	if len(payload) == 0 {
		return nil
	}
	out := make(map[string]string, len(payload))
	for k, v := range payload {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
			out[k] = ""
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}

// Once wraps r so that only the first Release reaches it.
func Once(r Releaser) Releaser {
	if r == nil {
		return nil
	}
	if o, ok := r.(*once); ok {
		return o
	}
	return &once{r: r}
}

type once struct {
	r    Releaser
	done atomic.Bool
}

func (o *once) Release() bool {
	if !o.done.CompareAndSwap(false, true) {
		return false
	}
	return o.r.Release()
}
