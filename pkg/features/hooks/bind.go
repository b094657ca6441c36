package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vango-dev/optilist/pkg/dom"
	"github.com/vango-dev/optilist/pkg/remote"
	"github.com/vango-dev/optilist/pkg/vdom"
)

// CallHookEvent is the delegated event that invokes a named callback.
const CallHookEvent = "hook:call"

// CallDetail is the detail of a CallHookEvent.
type CallDetail struct {
	Method string
	Extra  map[string]any
}

// Callback handles a call. e is the event that triggered it: the
// CallHookEvent for delegated calls, or the DOM event a caller forwards.
type Callback func(e *dom.Event, ev HookEvent)

// Callbacks maps method names to callbacks.
type Callbacks map[string]Callback

// Refs is an immutable snapshot of tagged descendants keyed by tag value.
type Refs map[string]*dom.Element

// Get returns the element tagged name, or nil.
func (r Refs) Get(name string) *dom.Element { return r[name] }

// Binding is an element bound to behaviour.
type Binding struct {
	El *dom.Element
	JS *Commands

	name      string
	refs      Refs
	callbacks Callbacks
	channel   remote.Channel
	logger    *slog.Logger
	remove    func()
}

// Option configures Bind.
type Option func(*bindConfig)

type bindConfig struct {
	name    string
	channel remote.Channel
	logger  *slog.Logger
}

// WithChannel sets the remote channel used by PushEventTo.
func WithChannel(ch remote.Channel) Option {
	return func(c *bindConfig) { c.channel = ch }
}

// WithLogger sets the binding logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *bindConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithName names the binding in logs and errors.
func WithName(name string) Option {
	return func(c *bindConfig) { c.name = name }
}

// Bind binds callbacks to el. el must be connected to its document.
func Bind(el *dom.Element, callbacks Callbacks, opts ...Option) (*Binding, error) {
	cfg := bindConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if el == nil || !el.IsConnected() {
		return nil, &BindError{Hook: cfg.name, Element: el.String(), Err: ErrNotAttached}
	}

	logger := cfg.logger.With("component", "hooks", "element", el.String())
	if cfg.name != "" {
		logger = logger.With("hook", cfg.name)
	}

	b := &Binding{
		El:        el,
		JS:        newCommands(el.Document(), logger),
		name:      cfg.name,
		callbacks: make(Callbacks, len(callbacks)),
		channel:   cfg.channel,
		logger:    logger,
	}
	for k, v := range callbacks {
		b.callbacks[k] = v
	}
	b.refs = scanRefs(el)
	b.remove = el.AddEventListener(CallHookEvent, b.handleCall)
	return b, nil
}

// scanRefs indexes descendants carrying the ref attribute. A duplicate tag
// overwrites the earlier element.
func scanRefs(el *dom.Element) Refs {
	refs := make(Refs)
	for _, n := range el.QueryAttr(vdom.RefAttr) {
		refs[n.GetAttribute(vdom.RefAttr)] = n
	}
	return refs
}

// Name returns the hook name given at bind time.
func (b *Binding) Name() string { return b.name }

// Logger returns the binding logger.
func (b *Binding) Logger() *slog.Logger { return b.logger }

// Refs returns a copy of the ref snapshot taken at bind time.
func (b *Binding) Refs() Refs {
	out := make(Refs, len(b.refs))
	for k, v := range b.refs {
		out[k] = v
	}
	return out
}

// Ref returns the element tagged name in the snapshot, or nil.
func (b *Binding) Ref(name string) *dom.Element { return b.refs[name] }

// Rebind rescans the ref index after the element's children changed.
func (b *Binding) Rebind() error {
	if !b.El.IsConnected() {
		return &BindError{Hook: b.name, Element: b.El.String(), Err: ErrNotAttached}
	}
	b.refs = scanRefs(b.El)
	return nil
}

// On registers or replaces a callback.
func (b *Binding) On(method string, cb Callback) {
	b.callbacks[method] = cb
}

// Has reports whether a callback is registered for method.
func (b *Binding) Has(method string) bool {
	_, ok := b.callbacks[method]
	return ok
}

// Invoke runs a callback directly with the triggering event.
func (b *Binding) Invoke(method string, e *dom.Event, extra map[string]any) bool {
	cb, ok := b.callbacks[method]
	if !ok {
		b.logger.Warn("unknown hook method", "method", method)
		return false
	}
	cb(e, HookEvent{Name: method, Data: extra})
	return true
}

// Call dispatches a CallHookEvent for method on the bound element.
func (b *Binding) Call(method string, extra map[string]any) {
	b.El.DispatchEvent(dom.NewCustomEvent(CallHookEvent, CallDetail{Method: method, Extra: extra}))
}

func (b *Binding) handleCall(e *dom.Event) {
	e.StopPropagation()
	var d CallDetail
	switch v := e.Detail.(type) {
	case CallDetail:
		d = v
	case *CallDetail:
		if v != nil {
			d = *v
		}
	default:
		b.logger.Warn("hook call without detail", "detail", fmt.Sprintf("%T", e.Detail))
		return
	}
	b.Invoke(d.Method, e, d.Extra)
}

// PushEventTo sends event with payload to target over the binding's remote
// channel. The channel invokes releaser once the server applied it.
func (b *Binding) PushEventTo(ctx context.Context, target, event string, payload map[string]any, releaser remote.Releaser) error {
	if b.channel == nil {
		return ErrNoChannel
	}
	return b.channel.PushEventTo(ctx, target, event, payload, releaser)
}

// Unbind removes the delegated listener.
func (b *Binding) Unbind() {
	if b.remove != nil {
		b.remove()
		b.remove = nil
	}
}

// Exec runs a command string against the document. Commands are separated
// by ";" and have the form "op:selector", where op is show, hide, focus or
// blur and selector is "#id" or "$ref" (a ref in this binding's snapshot):
//
//	hide:$form;show:$button;focus:#search
func (b *Binding) Exec(cmd string) error {
	for _, part := range strings.Split(cmd, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		op, sel, ok := strings.Cut(part, ":")
		if !ok {
			return fmt.Errorf("%w: %q", ErrBadCommand, part)
		}
		el := b.resolve(strings.TrimSpace(sel))
		if el == nil {
			b.logger.Warn("command target not found", "selector", sel)
			continue
		}
		switch strings.TrimSpace(op) {
		case "show":
			b.JS.Show(el)
		case "hide":
			b.JS.Hide(el)
		case "focus":
			el.Focus()
		case "blur":
			el.Blur()
		default:
			return fmt.Errorf("%w: unknown op %q", ErrBadCommand, op)
		}
	}
	return nil
}

func (b *Binding) resolve(sel string) *dom.Element {
	switch {
	case strings.HasPrefix(sel, "$"):
		return b.refs[sel[1:]]
	case strings.HasPrefix(sel, "#"):
		return b.El.Document().GetElementByID(sel[1:])
	}
	return nil
}
