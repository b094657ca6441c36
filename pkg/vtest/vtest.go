package vtest

import (
	"context"
	"strings"
	"testing"

	"github.com/vango-dev/optilist/pkg/dom"
	"github.com/vango-dev/optilist/pkg/protocol"
	"github.com/vango-dev/optilist/pkg/server"
	"github.com/vango-dev/optilist/pkg/vdom"
)

// CtxBuilder allows fluent construction of handler contexts.
type CtxBuilder struct {
	std    context.Context
	push   protocol.Push
	values map[any]any
}

// NewCtx creates a context builder for a "create" push with no target.
//
// Example:
//
//	ctx := vtest.NewCtx().
//	    WithTarget("lists/groceries").
//	    WithParam("title", "Eggs").
//	    Build()
func NewCtx() *CtxBuilder {
	return &CtxBuilder{
		std:  context.Background(),
		push: protocol.Push{Event: server.EventCreate, Payload: map[string]string{}},
	}
}

// WithContext sets the standard context.
func (b *CtxBuilder) WithContext(ctx context.Context) *CtxBuilder {
	b.std = ctx
	return b
}

// WithRef sets the push ref.
func (b *CtxBuilder) WithRef(ref uint64) *CtxBuilder {
	b.push.Ref = ref
	return b
}

// WithTarget sets the push target.
func (b *CtxBuilder) WithTarget(target string) *CtxBuilder {
	b.push.Target = target
	return b
}

// WithEvent sets the push event.
func (b *CtxBuilder) WithEvent(event string) *CtxBuilder {
	b.push.Event = event
	return b
}

// WithParam sets a payload value.
func (b *CtxBuilder) WithParam(key, value string) *CtxBuilder {
	b.push.Payload[key] = value
	return b
}

// WithValue stores a request-scoped value.
func (b *CtxBuilder) WithValue(key, value any) *CtxBuilder {
	if b.values == nil {
		b.values = make(map[any]any)
	}
	b.values[key] = value
	return b
}

// Build returns the context. Each call returns a fresh Ctx.
func (b *CtxBuilder) Build() *server.Ctx {
	push := b.push
	push.Payload = make(map[string]string, len(b.push.Payload))
	for k, v := range b.push.Payload {
		push.Payload[k] = v
	}
	ctx := server.NewCtx(b.std, nil, &push)
	for k, v := range b.values {
		ctx.SetValue(k, v)
	}
	return ctx
}

// CreateCtx is a shorthand for a create push of title into list.
func CreateCtx(list, title string) *server.Ctx {
	return NewCtx().WithTarget(server.ListTargetPrefix + list).WithParam("title", title).Build()
}

// RenderToString renders a VNode on a scratch document and returns its
// HTML.
func RenderToString(node *vdom.VNode) string {
	if node == nil {
		return ""
	}
	doc := dom.NewDocument()
	defer doc.Close()
	return doc.Render(node).OuterHTML()
}

// ExpectContains asserts that rendered output contains expected.
func ExpectContains(t testing.TB, node *vdom.VNode, expected string) {
	t.Helper()
	html := RenderToString(node)
	if !strings.Contains(html, expected) {
		t.Errorf("expected rendered output to contain %q, got:\n%s", expected, truncate(html, 500))
	}
}

// ExpectNotContains asserts that rendered output does not contain
// unexpected.
func ExpectNotContains(t testing.TB, node *vdom.VNode, unexpected string) {
	t.Helper()
	html := RenderToString(node)
	if strings.Contains(html, unexpected) {
		t.Errorf("expected rendered output to NOT contain %q, got:\n%s", unexpected, truncate(html, 500))
	}
}

// ExpectAttribute asserts that rendered output contains attr="value".
func ExpectAttribute(t testing.TB, node *vdom.VNode, attr, value string) {
	t.Helper()
	html := RenderToString(node)
	needle := attr + `="` + value + `"`
	if !strings.Contains(html, needle) {
		t.Errorf("expected attribute %s=%q not found, got:\n%s", attr, value, truncate(html, 500))
	}
}

// ExpectPatches asserts the patches a handler emitted.
func ExpectPatches(t testing.TB, ctx *server.Ctx, want ...protocol.Patch) {
	t.Helper()
	got := ctx.Patches()
	if len(got) != len(want) {
		t.Fatalf("patches = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("patch %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
