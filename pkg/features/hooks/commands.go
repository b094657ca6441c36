package hooks

import (
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/vango-dev/optilist/pkg/dom"
)

// Attributes written by lock commands.
const (
	LockAttr = "data-lock"
	BusyAttr = "aria-busy"
	// InertAttr makes the locked subtree non-interactive.
	InertAttr = "inert"
)

// Commands issues imperative UI commands against one document.
// Commands are not safe for concurrent use; call them on the document loop.
type Commands struct {
	doc    *dom.Document
	logger *slog.Logger
	locks  map[*dom.Element][]*LockToken
	ref    uint64
}

func newCommands(doc *dom.Document, logger *slog.Logger) *Commands {
	return &Commands{
		doc:    doc,
		logger: logger,
		locks:  make(map[*dom.Element][]*LockToken),
	}
}

// Show reveals el.
func (c *Commands) Show(el *dom.Element) {
	if el == nil {
		return
	}
	el.RemoveAttribute("hidden")
}

// Hide hides el, blurring a focused element inside it.
func (c *Commands) Hide(el *dom.Element) {
	if el == nil {
		return
	}
	el.SetAttribute("hidden", "")
	c.blurWithin(el)
}

// Lock marks els busy and non-interactive and returns the token that
// releases them. onRelease runs exactly once, on the first of token.Release
// or Unlock of any of els. Lock accepts zero elements.
func (c *Commands) Lock(els []*dom.Element, onRelease func()) *LockToken {
	c.ref++
	t := &LockToken{
		ref:       c.ref,
		cmds:      c,
		onRelease: onRelease,
	}
	ref := strconv.FormatUint(t.ref, 10)
	for _, el := range els {
		if el == nil {
			continue
		}
		t.els = append(t.els, el)
		el.SetAttribute(LockAttr, ref)
		el.SetAttribute(BusyAttr, "true")
		el.SetAttribute(InertAttr, "")
		c.locks[el] = append(c.locks[el], t)
		c.blurWithin(el)
	}
	c.logger.Debug("lock", "ref", t.ref, "elements", len(t.els))
	return t
}

// Unlock makes els interactive again and releases every token that
// covers one of them.
func (c *Commands) Unlock(els []*dom.Element) {
	for _, el := range els {
		if el == nil {
			continue
		}
		tokens := c.locks[el]
		for _, t := range tokens {
			t.Release()
		}
		c.clear(el)
	}
}

// Locked reports whether el is covered by an unreleased token.
func (c *Commands) Locked(el *dom.Element) bool {
	return len(c.locks[el]) > 0
}

func (c *Commands) drop(t *LockToken) {
	for _, el := range t.els {
		tokens := c.locks[el]
		for i, x := range tokens {
			if x == t {
				tokens = append(tokens[:i:i], tokens[i+1:]...)
				break
			}
		}
		if len(tokens) == 0 {
			delete(c.locks, el)
			c.clear(el)
		} else {
			c.locks[el] = tokens
			el.SetAttribute(LockAttr, strconv.FormatUint(tokens[len(tokens)-1].ref, 10))
		}
	}
}

func (c *Commands) clear(el *dom.Element) {
	el.RemoveAttribute(LockAttr)
	el.RemoveAttribute(BusyAttr)
	el.RemoveAttribute(InertAttr)
}

func (c *Commands) blurWithin(el *dom.Element) {
	if active := c.doc.ActiveElement(); active != nil && el.Contains(active) {
		active.Blur()
	}
}

// LockToken is the handle for one Lock call.
type LockToken struct {
	ref       uint64
	els       []*dom.Element
	cmds      *Commands
	onRelease func()
	released  atomic.Bool
}

// Ref returns the token's reference number, unique per Commands.
func (t *LockToken) Ref() uint64 { return t.ref }

// Elements returns the elements the token covers.
func (t *LockToken) Elements() []*dom.Element {
	out := make([]*dom.Element, len(t.els))
	copy(out, t.els)
	return out
}

// Released reports whether Release has run.
func (t *LockToken) Released() bool { return t.released.Load() }

// Release unlocks the token's elements and runs the release callback. Only
// the first call has an effect; it reports whether this call was that one.
// Call it on the document loop.
func (t *LockToken) Release() bool {
	if !t.released.CompareAndSwap(false, true) {
		return false
	}
	t.cmds.drop(t)
	t.cmds.logger.Debug("release", "ref", t.ref)
	if t.onRelease != nil {
		t.onRelease()
	}
	return true
}
