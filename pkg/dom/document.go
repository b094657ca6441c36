package dom

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

// Document owns an element tree, focus state and the event loop.
type Document struct {
	body   *Element
	active *Element
	logger *slog.Logger

	navigations []*Element

	inTurn    bool
	afterTurn []func()

	mu     sync.Mutex
	tasks  []func()
	wake   chan struct{}
	closed bool
}

// Option configures a Document.
type Option func(*Document)

// WithLogger sets the document logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Document) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDocument creates an empty document with a <body> root.
func NewDocument(opts ...Option) *Document {
	d := &Document{
		logger: slog.Default().With("component", "dom"),
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.body = d.CreateElement("body")
	return d
}

// Logger returns the document logger.
func (d *Document) Logger() *slog.Logger { return d.logger }

// Body returns the root element.
func (d *Document) Body() *Element { return d.body }

// ActiveElement returns the focused element or nil.
func (d *Document) ActiveElement() *Element { return d.active }

// CreateElement creates a detached element.
func (d *Document) CreateElement(tag string) *Element {
	e := &Element{doc: d, nodeType: ElementNode, tag: strings.ToLower(tag)}
	if e.tag == "template" {
		e.content = d.CreateFragment()
	}
	return e
}

// CreateTextNode creates a detached text node.
func (d *Document) CreateTextNode(s string) *Element {
	return &Element{doc: d, nodeType: TextNode, data: s}
}

// CreateFragment creates an empty document fragment.
func (d *Document) CreateFragment() *Element {
	return &Element{doc: d, nodeType: FragmentNode}
}

// GetElementByID returns the first connected element with the id.
func (d *Document) GetElementByID(id string) *Element {
	if id == "" {
		return nil
	}
	return d.body.Query(func(n *Element) bool { return n.ID() == id })
}

// Navigations returns the forms whose submit default action ran, in order.
// A prevented submit never appears here.
func (d *Document) Navigations() []*Element {
	out := make([]*Element, len(d.navigations))
	copy(out, d.navigations)
	return out
}

func (d *Document) navigate(form *Element) {
	d.navigations = append(d.navigations, form)
	d.logger.Debug("form navigated", "form", describe(form))
}

// Turn runs fn as one event-processing turn, then the callbacks registered
// with AfterTurn. Nested calls join the enclosing turn.
func (d *Document) Turn(fn func()) {
	if d.inTurn {
		fn()
		return
	}
	d.inTurn = true
	defer func() {
		for len(d.afterTurn) > 0 {
			cbs := d.afterTurn
			d.afterTurn = nil
			for _, cb := range cbs {
				d.safeRun(cb)
			}
		}
		d.inTurn = false
	}()
	d.safeRun(fn)
}

// InTurn reports whether a turn is in progress.
func (d *Document) InTurn() bool { return d.inTurn }

// AfterTurn registers fn to run when the current turn ends. Outside a turn
// fn runs immediately.
func (d *Document) AfterTurn(fn func()) {
	if !d.inTurn {
		d.safeRun(fn)
		return
	}
	d.afterTurn = append(d.afterTurn, fn)
}

// Post queues fn to run as its own turn on the document loop. It is safe to
// call from any goroutine. Posts after Close are discarded.
func (d *Document) Post(fn func()) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.tasks = append(d.tasks, fn)
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Defer runs fn in a later turn. It stands in for an animation-frame
// callback.
func (d *Document) Defer(fn func()) { d.Post(fn) }

// AfterFunc posts fn to the loop once dur has elapsed. The returned stop
// function cancels it if it has not fired yet.
func (d *Document) AfterFunc(dur time.Duration, fn func()) (stop func() bool) {
	t := time.AfterFunc(dur, func() { d.Post(fn) })
	return t.Stop
}

// RunPending runs queued tasks until the queue is empty and returns how
// many ran. Tests use it in place of Run.
func (d *Document) RunPending() int {
	n := 0
	for {
		task := d.pop()
		if task == nil {
			return n
		}
		d.Turn(task)
		n++
	}
}

// Run processes queued tasks until ctx is done or Close is called.
func (d *Document) Run(ctx context.Context) error {
	for {
		d.RunPending()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.wake:
			d.mu.Lock()
			closed := d.closed
			d.mu.Unlock()
			if closed {
				return nil
			}
		}
	}
}

// Close stops Run and discards further posts.
func (d *Document) Close() {
	d.mu.Lock()
	d.closed = true
	d.tasks = nil
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Document) pop() func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.tasks) == 0 {
		return nil
	}
	t := d.tasks[0]
	d.tasks[0] = nil
	d.tasks = d.tasks[1:]
	return t
}

// safeRun executes fn with panic recovery.
func (d *Document) safeRun(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("task panic",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}
