package server

import (
	"context"
	"strings"

	"github.com/vango-dev/optilist/pkg/protocol"
	"github.com/vango-dev/optilist/pkg/remote"
)

// ListTargetPrefix prefixes push targets that address a list.
const ListTargetPrefix = remote.ListTargetPrefix

// Ctx carries one push through the middleware chain and its handler.
// It is used by a single goroutine.
type Ctx struct {
	std     context.Context
	session *Session
	push    *protocol.Push
	values  map[any]any
	patches []protocol.Patch
}

// NewCtx creates the context for push. session may be nil outside a
// connection, for example in tests.
func NewCtx(std context.Context, session *Session, push *protocol.Push) *Ctx {
	if std == nil {
		std = context.Background()
	}
	if push == nil {
		push = &protocol.Push{}
	}
	return &Ctx{std: std, session: session, push: push}
}

// StdContext returns the standard context for downstream calls.
func (c *Ctx) StdContext() context.Context { return c.std }

// WithStdContext replaces the standard context, for example with one that
// carries a trace span.
func (c *Ctx) WithStdContext(ctx context.Context) {
	if ctx != nil {
		c.std = ctx
	}
}

// Session returns the connection the push arrived on, or nil.
func (c *Ctx) Session() *Session { return c.session }

// Push returns the push being handled.
func (c *Ctx) Push() *protocol.Push { return c.push }

// Event returns the push event name.
func (c *Ctx) Event() string { return c.push.Event }

// Target returns the push target.
func (c *Ctx) Target() string { return c.push.Target }

// List returns the list a target addresses: "lists/groceries" and
// "groceries" both name the list "groceries".
func (c *Ctx) List() string {
	return strings.TrimPrefix(c.push.Target, ListTargetPrefix)
}

// Param returns a payload value.
func (c *Ctx) Param(key string) string { return c.push.Payload[key] }

// Value returns a value stored with SetValue.
func (c *Ctx) Value(key any) any { return c.values[key] }

// SetValue stores a request-scoped value.
func (c *Ctx) SetValue(key, value any) {
	if c.values == nil {
		c.values = make(map[any]any)
	}
	c.values[key] = value
}

// Emit queues patches. They are sent before the reply, and only when the
// handler succeeds.
func (c *Ctx) Emit(patches ...protocol.Patch) {
	c.patches = append(c.patches, patches...)
}

// Patches returns the queued patches.
func (c *Ctx) Patches() []protocol.Patch { return c.patches }

// PatchCount returns the number of queued patches.
func (c *Ctx) PatchCount() int { return len(c.patches) }
