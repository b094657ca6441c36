package optimistic

import (
	"log/slog"

	"github.com/vango-dev/optilist/pkg/dom"
	"github.com/vango-dev/optilist/pkg/vdom"
)

// Pending item markers.
const (
	// PendingStateAttr is set on every inserted pending item.
	PendingStateAttr = "data-pending-state"

	StatePending = "pending"
	StateStale   = "stale"
)

// TextSlotRef is the ref value that marks where an item's text goes.
const TextSlotRef = "input"

// PendingItemFactory instantiates pending items from a template.
type PendingItemFactory struct {
	logger *slog.Logger
}

// NewPendingItemFactory creates a factory. A nil logger uses slog.Default.
func NewPendingItemFactory(logger *slog.Logger) *PendingItemFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &PendingItemFactory{logger: logger}
}

// Insert instantiates template, writes text into its text slot and appends
// the new element to container. The returned element is the container's
// last element child.
//
// template is either a <template>, whose content must hold exactly one
// element, or any other element, which is cloned whole. The text slot is
// the descendant tagged data-ref="input" if there is one, else the first
// <input>. A template without a slot is inserted with no text.
func (f *PendingItemFactory) Insert(container, template *dom.Element, text string) (*dom.Element, error) {
	if container == nil || !container.IsConnected() {
		return nil, ErrContainerDetached
	}
	item, err := instantiate(template)
	if err != nil {
		return nil, err
	}

	if slot := textSlot(item); slot != nil {
		switch slot.Tag() {
		case "input", "textarea":
			slot.SetValue(text)
		default:
			slot.SetTextContent(text)
		}
	} else {
		f.logger.Debug("template has no text slot", "template", template.String())
	}

	item.SetAttribute(PendingStateAttr, StatePending)
	if err := container.AppendChild(item); err != nil {
		return nil, err
	}
	return item, nil
}

func instantiate(template *dom.Element) (*dom.Element, error) {
	if template == nil {
		return nil, ErrTemplateShape
	}
	content := template.Content()
	if content == nil {
		return template.CloneNode(true), nil
	}
	children := content.Children()
	if len(children) != 1 {
		return nil, ErrTemplateShape
	}
	return children[0].CloneNode(true), nil
}

func textSlot(item *dom.Element) *dom.Element {
	if item.GetAttribute(vdom.RefAttr) == TextSlotRef {
		return item
	}
	if slot := item.Query(func(n *dom.Element) bool {
		return n.GetAttribute(vdom.RefAttr) == TextSlotRef
	}); slot != nil {
		return slot
	}
	if item.Tag() == "input" {
		return item
	}
	return item.QueryTag("input")
}
