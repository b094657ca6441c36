package remote

import (
	"context"
	"log/slog"
	"sync"
)

// Call is a command pushed on a Loopback.
type Call struct {
	Ref     uint64
	Target  string
	Event   string
	Payload map[string]any

	releaser Releaser
}

// Handler applies a call. It runs on the document loop; a nil error lets
// the call's releaser run.
type Handler func(ctx context.Context, call Call) error

// Loopback is an in-process Channel. Calls wait until Ack, AckAll or Fail,
// or are acknowledged on the next turn when auto-ack is on.
type Loopback struct {
	poster  Poster
	handler Handler
	auto    bool
	logger  *slog.Logger

	mu       sync.Mutex
	ref      uint64
	inflight []Call
	closed   bool
}

// LoopbackOption configures a Loopback.
type LoopbackOption func(*Loopback)

// WithHandler sets the handler that applies acknowledged calls.
func WithHandler(h Handler) LoopbackOption {
	return func(l *Loopback) { l.handler = h }
}

// WithAutoAck acknowledges every call on the turn after it was pushed.
func WithAutoAck() LoopbackOption {
	return func(l *Loopback) { l.auto = true }
}

// WithLoopbackLogger sets the logger.
func WithLoopbackLogger(logger *slog.Logger) LoopbackOption {
	return func(l *Loopback) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoopback creates a loopback channel that posts acknowledgements to p.
func NewLoopback(p Poster, opts ...LoopbackOption) *Loopback {
	l := &Loopback{
		poster: p,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "remote.loopback")
	return l
}

// PushEventTo implements Channel.
func (l *Loopback) PushEventTo(ctx context.Context, target, event string, payload map[string]any, releaser Releaser) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.ref++
	call := Call{
		Ref:      l.ref,
		Target:   target,
		Event:    event,
		Payload:  payload,
		releaser: Once(releaser),
	}
	l.inflight = append(l.inflight, call)
	l.mu.Unlock()

	l.logger.Debug("push", "ref", call.Ref, "target", target, "event", event)
	if l.auto {
		l.Ack(call.Ref)
	}
	return nil
}

// Calls returns the calls still waiting, oldest first.
func (l *Loopback) Calls() []Call {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Call, len(l.inflight))
	copy(out, l.inflight)
	return out
}

// Ack acknowledges the call with ref. The handler and the release run on
// the next turn of the document loop. It reports whether ref was waiting.
func (l *Loopback) Ack(ref uint64) bool {
	call, ok := l.take(ref)
	if !ok {
		return false
	}
	l.poster.Post(func() { l.apply(call) })
	return true
}

// AckAll acknowledges every waiting call in push order.
func (l *Loopback) AckAll() int {
	n := 0
	for _, c := range l.Calls() {
		if l.Ack(c.Ref) {
			n++
		}
	}
	return n
}

// Fail drops the call with ref without releasing it, as a server error
// would.
func (l *Loopback) Fail(ref uint64, reason string) bool {
	call, ok := l.take(ref)
	if ok {
		l.logger.Warn("push failed", "ref", call.Ref, "target", call.Target, "event", call.Event, "reason", reason)
	}
	return ok
}

// Close rejects further pushes. Waiting calls are never released.
func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.inflight = nil
	return nil
}

func (l *Loopback) take(ref uint64) (Call, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, c := range l.inflight {
		if c.Ref == ref {
			l.inflight = append(l.inflight[:i:i], l.inflight[i+1:]...)
			return c, true
		}
	}
	return Call{}, false
}

func (l *Loopback) apply(call Call) {
	if l.handler != nil {
		if err := l.handler(context.Background(), call); err != nil {
			l.logger.Warn("handler failed", "ref", call.Ref, "event", call.Event, "error", err)
			return
		}
	}
	if call.releaser != nil {
		call.releaser.Release()
	}
}
