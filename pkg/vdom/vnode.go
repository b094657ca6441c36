package vdom

import (
	"sort"
	"strings"
)

// VKind is the node type discriminator.
type VKind uint8

const (
	KindElement  VKind = iota // <div>, <button>, etc.
	KindText                  // Plain text node
	KindFragment              // Grouping without wrapper
)

// String returns the string representation of the VKind.
func (k VKind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindFragment:
		return "Fragment"
	default:
		return "Unknown"
	}
}

// VNode is the virtual DOM node.
type VNode struct {
	Kind     VKind    // Node type
	Tag      string   // Element tag name (e.g., "div")
	Props    Props    // Attributes and event handlers
	Children []*VNode // Child nodes
	Key      string   // Reconciliation key
	Text     string   // For KindText
}

// Props holds attributes and event handlers.
type Props map[string]any

// IsInteractive returns true if this node has event handlers.
func (v *VNode) IsInteractive() bool {
	if v == nil || v.Kind != KindElement {
		return false
	}
	for key := range v.Props {
		if strings.HasPrefix(key, "on") {
			return true
		}
	}
	return false
}

// Attrs returns the non-handler props in a stable order.
func (v *VNode) Attrs() []Attr {
	if v == nil {
		return nil
	}
	keys := make([]string, 0, len(v.Props))
	for key := range v.Props {
		if strings.HasPrefix(key, "on") {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]Attr, 0, len(keys))
	for _, k := range keys {
		out = append(out, Attr{Key: k, Value: v.Props[k]})
	}
	return out
}

// Handlers returns the event handlers keyed by event name without the "on"
// prefix ("click", "submit").
func (v *VNode) Handlers() map[string]any {
	if v == nil {
		return nil
	}
	var out map[string]any
	for key, val := range v.Props {
		if !strings.HasPrefix(key, "on") {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[strings.TrimPrefix(key, "on")] = val
	}
	return out
}

// Attr represents a single attribute.
type Attr struct {
	Key   string
	Value any
}

// IsEmpty returns true if this is an empty/nil attribute.
func (a Attr) IsEmpty() bool {
	return a.Key == ""
}

// EventHandler represents an event handler.
type EventHandler struct {
	Event   string // "onclick", "onsubmit", etc.
	Handler any    // Function to call
}
