package optimistic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vango-dev/optilist/pkg/dom"
	"github.com/vango-dev/optilist/pkg/features/hooks"
	"github.com/vango-dev/optilist/pkg/remote"
)

// HookName is the hook name Markup declares and Mounter handles.
const HookName = "ItemAdd"

// Callback names registered on the coordinator's binding.
const (
	CallOpen    = "addItemClicked"
	CallDismiss = "hideItemForm"
	CallSubmit  = "itemFormSubmitted"
)

// State is the coordinator state.
type State int

const (
	Idle State = iota
	FormOpen
	Submitting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case FormOpen:
		return "form-open"
	case Submitting:
		return "submitting"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Coordinator drives one add-item form and the pending items it creates.
// All methods must be called on the document loop.
type Coordinator struct {
	b         *hooks.Binding
	doc       *dom.Document
	form      *dom.Element
	input     *dom.Element
	button    *dom.Element
	template  *dom.Element
	container *dom.Element

	target     string
	event      string
	onDismiss  string
	staleAfter time.Duration

	state   State
	guard   SubmissionGuard
	factory *PendingItemFactory
	pending []*pendingItem

	metrics *metrics
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	removes []func()
	closed  bool
}

type pendingItem struct {
	el        *dom.Element
	text      string
	token     *hooks.LockToken
	stopStale func() bool
}

// New binds a coordinator to root. root must be connected and contain a
// form with a text input and a template, tagged form, input and template
// (untagged, the first <form>, its first <input> and the first <template>
// are used). An element tagged button is the add affordance.
//
// Settings declared in root's hook attribute (insertInto, submitTo, event,
// onDismiss, staleAfter) apply before opts.
func New(root *dom.Element, opts ...Option) (*Coordinator, error) {
	cfg := defaultConfig()
	for _, opt := range append(hookConfig(root), opts...) {
		opt(&cfg)
	}

	hookOpts := append([]hooks.Option{
		hooks.WithName(HookName),
		hooks.WithLogger(cfg.logger),
		hooks.WithChannel(cfg.channel),
	}, cfg.hookOpts...)
	b, err := hooks.Bind(root, nil, hookOpts...)
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		b:          b,
		doc:        root.Document(),
		target:     cfg.target,
		event:      cfg.event,
		onDismiss:  cfg.onDismiss,
		staleAfter: cfg.staleAfter,
		metrics:    newMetrics(cfg.registerer),
		logger:     cfg.logger.With("component", "optimistic", "element", root.String()),
	}
	c.factory = NewPendingItemFactory(c.logger)
	if err := c.resolve(root, cfg); err != nil {
		b.Unbind()
		return nil, err
	}
	if c.target == "" {
		if id := c.container.ID(); id != "" {
			c.target = remote.ListTarget(id)
		} else {
			c.target = root.ID()
		}
	}
	if c.form.Hidden() {
		c.state = Idle
	} else {
		c.state = FormOpen
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.listen(root)

	c.logger.Debug("coordinator bound",
		"form", c.form.String(),
		"container", c.container.String(),
		"target", c.target,
		"state", c.state)
	return c, nil
}

func (c *Coordinator) resolve(root *dom.Element, cfg config) error {
	missing := func(part string) error {
		return &hooks.BindError{Hook: HookName, Element: root.String(), Err: fmt.Errorf("%w: %s", ErrMissingPart, part)}
	}

	c.form = c.b.Ref("form")
	if c.form == nil {
		c.form = root.QueryTag("form")
	}
	if c.form == nil {
		return missing("form")
	}
	c.input = c.b.Ref("input")
	if c.input == nil {
		c.input = c.form.QueryTag("input")
	}
	if c.input == nil {
		return missing("input")
	}
	c.template = c.b.Ref("template")
	if c.template == nil {
		c.template = root.QueryTag("template")
	}
	if c.template == nil {
		return missing("template")
	}
	c.button = c.b.Ref("button")

	c.container = cfg.container
	if c.container == nil && cfg.insertInto != "" {
		c.container = c.doc.GetElementByID(cfg.insertInto)
	}
	if c.container == nil {
		return &hooks.BindError{Hook: HookName, Element: root.String(), Err: fmt.Errorf("%w: %q", ErrNoContainer, cfg.insertInto)}
	}
	return nil
}

func (c *Coordinator) listen(root *dom.Element) {
	c.removes = append(c.removes,
		c.form.AddEventListener(dom.EventSubmit, c.onSubmit),
		root.AddEventListener(dom.EventKeyDown, func(e *dom.Event) {
			if e.Key == "Escape" {
				c.Dismiss()
			}
		}),
		root.AddEventListener(dom.EventBlur, func(*dom.Event) { c.Dismiss() }, dom.Capture()),
	)
	if c.button != nil {
		c.removes = append(c.removes, c.button.AddEventListener(dom.EventClick, func(*dom.Event) { c.Open() }))
	}

	c.b.On(CallOpen, func(*dom.Event, hooks.HookEvent) { c.Open() })
	c.b.On(CallDismiss, func(*dom.Event, hooks.HookEvent) { c.Dismiss() })
	c.b.On(CallSubmit, func(e *dom.Event, _ hooks.HookEvent) {
		if e != nil {
			e.PreventDefault()
		}
		if _, err := c.Submit(); err != nil {
			c.logger.Error("submit failed", "error", err)
		}
	})
}

// Binding returns the coordinator's hook binding.
func (c *Coordinator) Binding() *hooks.Binding { return c.b }

// State returns the current state.
func (c *Coordinator) State() State { return c.state }

// Guard returns the coordinator's submission guard.
func (c *Coordinator) Guard() *SubmissionGuard { return &c.guard }

// Input returns the form's text input.
func (c *Coordinator) Input() *dom.Element { return c.input }

// Form returns the form element.
func (c *Coordinator) Form() *dom.Element { return c.form }

// Container returns the list pending items are appended to.
func (c *Coordinator) Container() *dom.Element { return c.container }

// Pending returns the pending items that have not been released and are
// still in the document, in insertion order. An item removed by other
// means is left out; its token still releases cleanly.
func (c *Coordinator) Pending() []*dom.Element {
	out := make([]*dom.Element, 0, len(c.pending))
	for _, p := range c.pending {
		if p.el.IsConnected() {
			out = append(out, p.el)
		}
	}
	return out
}

// Open clears the input, reveals the form, hides the add affordance and
// focuses the input on the next turn.
func (c *Coordinator) Open() {
	if c.closed {
		return
	}
	c.input.SetValue("")
	c.b.JS.Show(c.form)
	c.b.JS.Hide(c.button)
	c.state = FormOpen
	c.doc.Defer(c.focusInput)
	c.logger.Debug("form opened")
}

func (c *Coordinator) focusInput() {
	if c.closed || c.state == Idle {
		return
	}
	c.input.Focus()
}

// Dismiss closes the form unless the guard consumes the attempt as the
// side effect of a submit. It reports whether the form was closed.
func (c *Coordinator) Dismiss() bool {
	if c.closed || c.state == Idle {
		return false
	}
	if !c.guard.TryDismiss() {
		c.metrics.dismissals.WithLabelValues(resultSuppressed).Inc()
		c.logger.Debug("dismiss suppressed by submit")
		return false
	}

	c.state = Idle
	c.b.JS.Hide(c.form)
	c.b.JS.Show(c.button)
	if c.onDismiss != "" {
		if err := c.b.Exec(c.onDismiss); err != nil {
			c.logger.Warn("on-dismiss command failed", "command", c.onDismiss, "error", err)
		}
	}
	c.metrics.dismissals.WithLabelValues(resultClosed).Inc()
	c.logger.Debug("form dismissed")
	return true
}

func (c *Coordinator) onSubmit(e *dom.Event) {
	if strings.TrimSpace(c.input.Value()) == "" {
		e.PreventDefault()
		e.StopImmediatePropagation()
		c.metrics.submissions.WithLabelValues(resultEmpty).Inc()
		return
	}
	e.PreventDefault()
	if _, err := c.Submit(); err != nil {
		c.logger.Error("submit failed", "error", err)
	}
}

// Submit creates a pending item from the input text and pushes the create
// command. It returns the pending item, or nil when the form is closed or
// the trimmed text is empty, in which case nothing changes.
//
// The item stays locked until the channel releases its token; release
// removes it. A push error is logged and leaves the item pending.
func (c *Coordinator) Submit() (*dom.Element, error) {
	if c.closed {
		return nil, nil
	}
	if c.state == Idle {
		c.logger.Debug("submit ignored; form is closed")
		return nil, nil
	}
	text := c.input.Value()
	if strings.TrimSpace(text) == "" {
		c.metrics.submissions.WithLabelValues(resultEmpty).Inc()
		return nil, nil
	}

	var (
		item *dom.Element
		err  error
	)
	c.doc.Turn(func() {
		item, err = c.submit(text)
	})
	return item, err
}

func (c *Coordinator) submit(text string) (*dom.Element, error) {
	c.state = Submitting
	c.guard.MarkSubmitting()
	c.doc.AfterTurn(c.guard.Reset)

	// The form is busy while the item is built; locking it blurs the input.
	busy := c.b.JS.Lock([]*dom.Element{c.form, c.input}, nil)
	item, err := c.factory.Insert(c.container, c.template, text)
	c.b.JS.Unlock(busy.Elements())
	if err != nil {
		c.state = FormOpen
		return nil, err
	}

	p := &pendingItem{el: item, text: text}
	p.token = c.b.JS.Lock([]*dom.Element{item}, func() { c.release(p) })
	c.pending = append(c.pending, p)
	c.metrics.pendingItems.Inc()
	c.metrics.submissions.WithLabelValues(resultAccepted).Inc()

	if err := c.b.PushEventTo(c.ctx, c.target, c.event, map[string]any{"title": text}, p.token); err != nil {
		c.logger.Warn("create not sent; item stays pending", "title", text, "error", err)
	}
	if c.staleAfter > 0 && !p.token.Released() {
		p.stopStale = c.doc.AfterFunc(c.staleAfter, func() { c.markStale(p) })
	}

	c.input.SetValue("")
	c.state = FormOpen
	c.doc.Defer(c.focusInput)
	c.logger.Debug("item pending", "title", text, "ref", p.token.Ref())
	return item, nil
}

func (c *Coordinator) release(p *pendingItem) {
	p.el.Remove()
	if p.stopStale != nil {
		p.stopStale()
	}
	for i, x := range c.pending {
		if x == p {
			c.pending = append(c.pending[:i:i], c.pending[i+1:]...)
			break
		}
	}
	c.metrics.pendingItems.Dec()
	c.metrics.releases.Inc()
	c.logger.Debug("item released", "title", p.text, "ref", p.token.Ref())
}

func (c *Coordinator) markStale(p *pendingItem) {
	if p.token.Released() || !p.el.IsConnected() {
		return
	}
	p.el.SetAttribute(PendingStateAttr, StateStale)
	c.metrics.staleItems.Inc()
	c.logger.Warn("item still pending", "title", p.text, "after", c.staleAfter)
}

// Close removes the coordinator's listeners and cancels in-flight pushes.
// Pending items stay in the list and are still removed if released.
func (c *Coordinator) Close() {
	if c.closed {
		return
	}
	c.closed = true
	for _, remove := range c.removes {
		remove()
	}
	c.removes = nil
	c.b.Unbind()
	c.cancel()
	for _, p := range c.pending {
		if p.stopStale != nil {
			p.stopStale()
		}
	}
}

// Mounter returns a hooks.MountFunc that creates coordinators with opts.
func Mounter(opts ...Option) hooks.MountFunc {
	return func(el *dom.Element, _ map[string]any, hookOpts ...hooks.Option) (hooks.Instance, error) {
		all := append(append([]Option{}, opts...), WithHookOptions(hookOpts...))
		return New(el, all...)
	}
}

// hookConfig turns the settings in el's hook attribute into options.
func hookConfig(el *dom.Element) []Option {
	if el == nil {
		return nil
	}
	v, ok := el.Attr(hooks.HookAttr)
	if !ok {
		return nil
	}
	name, cfg, err := hooks.ParseHook(v)
	if err != nil || name != HookName {
		return nil
	}
	ev := hooks.HookEvent{Name: name, Data: cfg}
	var opts []Option
	if s := ev.String("insertInto"); s != "" {
		opts = append(opts, WithInsertInto(s))
	}
	if s := ev.String("submitTo"); s != "" {
		opts = append(opts, WithTarget(s))
	}
	if s := ev.String("event"); s != "" {
		opts = append(opts, WithEvent(s))
	}
	if s := ev.String("onDismiss"); s != "" {
		opts = append(opts, WithOnDismiss(s))
	}
	if s := ev.String("staleAfter"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			opts = append(opts, WithStaleAfter(d))
		}
	}
	return opts
}

// Mounted returns the coordinator r mounted on root, if any.
func Mounted(r *hooks.Registry, root *dom.Element) (*Coordinator, bool) {
	inst, ok := r.Mounted(root)
	if !ok {
		return nil, false
	}
	c, ok := inst.(*Coordinator)
	return c, ok
}
