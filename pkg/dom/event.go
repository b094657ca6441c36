package dom

import (
	"fmt"
	"runtime/debug"
)

// Phase is the dispatch phase an event is in.
type Phase uint8

const (
	PhaseNone Phase = iota
	PhaseCapturing
	PhaseAtTarget
	PhaseBubbling
)

// Standard event types used by the document itself.
const (
	EventClick   = "click"
	EventSubmit  = "submit"
	EventKeyDown = "keydown"
	EventFocus   = "focus"
	EventBlur    = "blur"
	EventInput   = "input"
)

// Event is dispatched through the tree by DispatchEvent.
type Event struct {
	Type       string
	Bubbles    bool
	Cancelable bool

	// Key is set for keyboard events ("Escape", "Enter").
	Key string

	// Detail carries the payload of custom events.
	Detail any

	// Submitter is the button that triggered a submit event, if any.
	Submitter *Element

	Target        *Element
	CurrentTarget *Element
	Phase         Phase

	defaultPrevented bool
	stopped          bool
	stoppedNow       bool
}

// NewEvent creates an event.
func NewEvent(typ string, bubbles, cancelable bool) *Event {
	return &Event{Type: typ, Bubbles: bubbles, Cancelable: cancelable}
}

// NewKeyboardEvent creates a bubbling, cancelable keyboard event.
func NewKeyboardEvent(typ, key string) *Event {
	return &Event{Type: typ, Bubbles: true, Cancelable: true, Key: key}
}

// NewCustomEvent creates a bubbling custom event carrying detail.
func NewCustomEvent(typ string, detail any) *Event {
	return &Event{Type: typ, Bubbles: true, Cancelable: true, Detail: detail}
}

// PreventDefault cancels the default action of a cancelable event.
func (e *Event) PreventDefault() {
	if e.Cancelable {
		e.defaultPrevented = true
	}
}

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// StopPropagation stops the event from reaching further nodes.
func (e *Event) StopPropagation() { e.stopped = true }

// StopImmediatePropagation also skips remaining listeners on the current node.
func (e *Event) StopImmediatePropagation() {
	e.stopped = true
	e.stoppedNow = true
}

// PropagationStopped reports whether propagation was stopped.
func (e *Event) PropagationStopped() bool { return e.stopped }

// Listener handles an event.
type Listener func(e *Event)

type listener struct {
	fn      Listener
	capture bool
	once    bool
	removed bool
}

// ListenerOption configures AddEventListener.
type ListenerOption func(*listener)

// Capture registers the listener for the capture phase.
func Capture() ListenerOption { return func(l *listener) { l.capture = true } }

// Once removes the listener after its first invocation.
func Once() ListenerOption { return func(l *listener) { l.once = true } }

// AddEventListener registers fn for events of typ and returns a function
// that removes it.
func (e *Element) AddEventListener(typ string, fn Listener, opts ...ListenerOption) (remove func()) {
	l := &listener{fn: fn}
	for _, opt := range opts {
		opt(l)
	}
	if e.listeners == nil {
		e.listeners = make(map[string][]*listener)
	}
	e.listeners[typ] = append(e.listeners[typ], l)
	return func() { e.removeListener(typ, l) }
}

func (e *Element) removeListener(typ string, l *listener) {
	l.removed = true
	ls := e.listeners[typ]
	for i, x := range ls {
		if x == l {
			e.listeners[typ] = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}

// DispatchEvent dispatches ev with e as target. It reports false when the
// default action was prevented. A call outside a turn is its own turn.
func (e *Element) DispatchEvent(ev *Event) bool {
	if e.doc == nil {
		return true
	}
	ok := true
	e.doc.Turn(func() { ok = e.dispatch(ev) })
	return ok
}

func (e *Element) dispatch(ev *Event) bool {
	ev.Target = e
	path := e.path()

	ev.Phase = PhaseCapturing
	for _, n := range path {
		if ev.stopped {
			break
		}
		n.invoke(ev, true)
	}

	if !ev.stopped {
		ev.Phase = PhaseAtTarget
		e.invoke(ev, true)
		if !ev.stopped {
			e.invoke(ev, false)
		}
	}

	if ev.Bubbles {
		ev.Phase = PhaseBubbling
		for i := len(path) - 1; i >= 0 && !ev.stopped; i-- {
			path[i].invoke(ev, false)
		}
	}

	ev.Phase = PhaseNone
	ev.CurrentTarget = nil
	return !ev.defaultPrevented
}

// invoke runs listeners registered on e for ev with the given capture flag.
func (e *Element) invoke(ev *Event, capture bool) {
	ls := e.listeners[ev.Type]
	if len(ls) == 0 {
		return
	}
	snapshot := make([]*listener, len(ls))
	copy(snapshot, ls)

	ev.CurrentTarget = e
	for _, l := range snapshot {
		if ev.stoppedNow {
			return
		}
		if l.removed || l.capture != capture {
			continue
		}
		if l.once {
			e.removeListener(ev.Type, l)
		}
		e.doc.safeCall(ev, l.fn)
	}
}

// safeCall runs a listener with panic recovery.
func (d *Document) safeCall(ev *Event, fn Listener) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("listener panic",
				"panic", fmt.Sprint(r),
				"event", ev.Type,
				"target", describe(ev.Target),
				"stack", string(debug.Stack()))
		}
	}()
	fn(ev)
}

// Click dispatches a click. When not prevented, a submit button (a <button>
// without type="button", or an input of type submit) submits its form.
func (e *Element) Click() {
	if e.Disabled() {
		return
	}
	e.doc.Turn(func() {
		if !e.dispatch(NewEvent(EventClick, true, true)) {
			return
		}
		if isSubmitButton(e) {
			if form := e.Closest("form"); form != nil {
				form.requestSubmit(e)
			}
		}
	})
}

// RequestSubmit fires a cancelable submit event at a form. When not
// prevented, the document records the form's default navigation.
func (e *Element) RequestSubmit() {
	e.doc.Turn(func() { e.requestSubmit(nil) })
}

func (e *Element) requestSubmit(submitter *Element) {
	ev := NewEvent(EventSubmit, true, true)
	ev.Submitter = submitter
	if e.dispatch(ev) {
		e.doc.navigate(e)
	}
}

// Focus moves focus to e, blurring the previously focused element.
// Detached, hidden or disabled elements cannot take focus.
func (e *Element) Focus() {
	if e.nodeType != ElementNode || !e.IsConnected() || e.Disabled() || e.Hidden() {
		return
	}
	d := e.doc
	if d.active == e {
		return
	}
	d.Turn(func() {
		if prev := d.active; prev != nil {
			d.active = nil
			prev.dispatch(NewEvent(EventBlur, false, false))
		}
		d.active = e
		e.dispatch(NewEvent(EventFocus, false, false))
	})
}

// Blur removes focus from e if it has it.
func (e *Element) Blur() {
	d := e.doc
	if d == nil || d.active != e {
		return
	}
	d.Turn(func() {
		d.active = nil
		e.dispatch(NewEvent(EventBlur, false, false))
	})
}

// KeyDown dispatches a keydown event for key.
func (e *Element) KeyDown(key string) bool {
	return e.DispatchEvent(NewKeyboardEvent(EventKeyDown, key))
}

// TypeText sets the value of a form control and fires an input event.
func (e *Element) TypeText(s string) {
	e.value = s
	e.DispatchEvent(NewEvent(EventInput, true, false))
}

func isSubmitButton(e *Element) bool {
	switch e.tag {
	case "button":
		t := e.GetAttribute("type")
		return t == "" || t == "submit"
	case "input":
		return e.GetAttribute("type") == "submit"
	}
	return false
}

func describe(e *Element) string {
	if e == nil {
		return ""
	}
	switch e.nodeType {
	case TextNode:
		return "#text"
	case FragmentNode:
		return "#fragment"
	}
	if id := e.ID(); id != "" {
		return e.tag + "#" + id
	}
	return e.tag
}
