package server

import (
	"fmt"
	"runtime/debug"
	"sort"
	"strconv"
	"sync"

	"github.com/vango-dev/optilist/internal/store"
	"github.com/vango-dev/optilist/pkg/protocol"
)

// HandlerFunc handles one push. A nil error replies OK after the emitted
// patches; an error replies with its message and drops the patches.
type HandlerFunc func(ctx *Ctx) error

// Middleware wraps push handling.
type Middleware interface {
	Handle(ctx *Ctx, next func() error) error
}

// MiddlewareFunc adapts a function to Middleware.
type MiddlewareFunc func(ctx *Ctx, next func() error) error

// Handle implements Middleware.
func (f MiddlewareFunc) Handle(ctx *Ctx, next func() error) error {
	return f(ctx, next)
}

// EventCreate is the push event that creates a list item.
const EventCreate = "create"

// handlers is the event registry shared by all sessions.
type handlers struct {
	mu         sync.RWMutex
	byEvent    map[string]HandlerFunc
	middleware []Middleware
}

func (h *handlers) set(event string, fn HandlerFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.byEvent == nil {
		h.byEvent = make(map[string]HandlerFunc)
	}
	if fn == nil {
		delete(h.byEvent, event)
		return
	}
	h.byEvent[event] = fn
}

func (h *handlers) use(mw ...Middleware) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.middleware = append(h.middleware, mw...)
}

func (h *handlers) events() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.byEvent))
	for e := range h.byEvent {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// dispatch runs the handler for ctx's event through the middleware chain,
// outermost first. Handler panics become *HandlerError.
func (h *handlers) dispatch(ctx *Ctx) (err error) {
	h.mu.RLock()
	fn := h.byEvent[ctx.Event()]
	chain := h.middleware
	h.mu.RUnlock()

	final := func() (err error) {
		if fn == nil {
			return fmt.Errorf("%w: %q", ErrHandlerNotFound, ctx.Event())
		}
		defer func() {
			if r := recover(); r != nil {
				sid := ""
				if s := ctx.Session(); s != nil {
					sid = s.ID
				}
				err = &HandlerError{SessionID: sid, Event: ctx.Event(), Panic: r, Stack: debug.Stack()}
			}
		}()
		return fn(ctx)
	}

	next := final
	for i := len(chain) - 1; i >= 0; i-- {
		mw, inner := chain[i], next
		next = func() error { return mw.Handle(ctx, inner) }
	}
	return next()
}

// ItemID is the DOM id of a stored item.
func ItemID(item store.Item) string {
	return "item-" + strconv.FormatInt(item.ID, 10)
}

// CreateHandler returns the handler for EventCreate: it stores the
// "title" param in the list the target names and emits an insert patch
// into the container containerID returns for that list.
func CreateHandler(items store.ItemStore, containerID func(list string) string) HandlerFunc {
	if containerID == nil {
		containerID = func(list string) string { return list }
	}
	return func(ctx *Ctx) error {
		if _, ok := ctx.Push().Payload["title"]; !ok {
			return fmt.Errorf("%w: title", ErrMissingParam)
		}
		item, err := items.Create(ctx.StdContext(), ctx.List(), ctx.Param("title"))
		if err != nil {
			return err
		}
		ctx.Emit(protocol.Patch{
			Op:        protocol.PatchInsert,
			Container: containerID(item.List),
			ID:        ItemID(item),
			Text:      item.Title,
		})
		return nil
	}
}
