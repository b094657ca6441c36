package dom

import (
	"errors"
	"sort"
	"strings"
)

// NodeType discriminates element, text and fragment nodes.
type NodeType uint8

const (
	ElementNode NodeType = iota
	TextNode
	FragmentNode
)

// String returns the string representation of the NodeType.
func (t NodeType) String() string {
	switch t {
	case ElementNode:
		return "Element"
	case TextNode:
		return "Text"
	case FragmentNode:
		return "Fragment"
	default:
		return "Unknown"
	}
}

// ErrHierarchy is returned when an insertion would create a cycle or put a
// child under a text node.
var ErrHierarchy = errors.New("dom: hierarchy request error")

// Element is a node of a Document. Text nodes and fragments share the type;
// use Type to tell them apart.
type Element struct {
	doc       *Document
	nodeType  NodeType
	tag       string
	attrs     map[string]string
	data      string
	value     string
	parent    *Element
	children  []*Element
	content   *Element // <template> content, detached
	listeners map[string][]*listener
}

// Document returns the owning document.
func (e *Element) Document() *Document { return e.doc }

// Type returns the node type.
func (e *Element) Type() NodeType { return e.nodeType }

// Tag returns the lower-case tag name, or "" for text and fragment nodes.
func (e *Element) Tag() string { return e.tag }

// ID returns the id attribute.
func (e *Element) ID() string { return e.attrs["id"] }

// Attr returns an attribute value and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

// GetAttribute returns the attribute value or "".
func (e *Element) GetAttribute(name string) string { return e.attrs[name] }

// HasAttribute reports whether the attribute is present.
func (e *Element) HasAttribute(name string) bool {
	_, ok := e.attrs[name]
	return ok
}

// SetAttribute sets an attribute.
func (e *Element) SetAttribute(name, value string) {
	if e.nodeType != ElementNode {
		return
	}
	if e.attrs == nil {
		e.attrs = make(map[string]string)
	}
	e.attrs[name] = value
	if name == "value" && e.tag == "input" && e.value == "" {
		e.value = value
	}
}

// RemoveAttribute removes an attribute. Removing a missing attribute is a no-op.
func (e *Element) RemoveAttribute(name string) {
	delete(e.attrs, name)
}

// ToggleAttribute sets a boolean attribute when on and removes it otherwise.
func (e *Element) ToggleAttribute(name string, on bool) {
	if on {
		e.SetAttribute(name, "")
	} else {
		e.RemoveAttribute(name)
	}
}

// Attributes returns attribute names in sorted order.
func (e *Element) Attributes() []string {
	names := make([]string, 0, len(e.attrs))
	for k := range e.attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Hidden reports whether the hidden attribute is set.
func (e *Element) Hidden() bool { return e.HasAttribute("hidden") }

// Disabled reports whether the element or an enclosing element is disabled
// or inert.
func (e *Element) Disabled() bool {
	for n := e; n != nil; n = n.parent {
		if n.HasAttribute("disabled") || n.HasAttribute("inert") {
			return true
		}
	}
	return false
}

// Value returns the current value of a form control.
func (e *Element) Value() string { return e.value }

// SetValue sets the current value of a form control without firing events.
func (e *Element) SetValue(v string) { e.value = v }

// Data returns the character data of a text node.
func (e *Element) Data() string { return e.data }

// TextContent returns the concatenated text of all descendant text nodes.
func (e *Element) TextContent() string {
	if e.nodeType == TextNode {
		return e.data
	}
	var b strings.Builder
	e.walk(func(n *Element) bool {
		if n.nodeType == TextNode {
			b.WriteString(n.data)
		}
		return true
	})
	return b.String()
}

// SetTextContent replaces all children with a single text node.
func (e *Element) SetTextContent(s string) {
	if e.nodeType == TextNode {
		e.data = s
		return
	}
	for _, c := range e.children {
		c.parent = nil
	}
	e.children = nil
	if s != "" {
		e.AppendChild(e.doc.CreateTextNode(s))
	}
}

// Parent returns the parent node, or nil when detached.
func (e *Element) Parent() *Element { return e.parent }

// ChildNodes returns all child nodes, including text.
func (e *Element) ChildNodes() []*Element {
	out := make([]*Element, len(e.children))
	copy(out, e.children)
	return out
}

// Children returns the element children.
func (e *Element) Children() []*Element {
	var out []*Element
	for _, c := range e.children {
		if c.nodeType == ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// FirstElementChild returns the first element child or nil.
func (e *Element) FirstElementChild() *Element {
	for _, c := range e.children {
		if c.nodeType == ElementNode {
			return c
		}
	}
	return nil
}

// LastElementChild returns the last element child or nil.
func (e *Element) LastElementChild() *Element {
	for i := len(e.children) - 1; i >= 0; i-- {
		if e.children[i].nodeType == ElementNode {
			return e.children[i]
		}
	}
	return nil
}

// Content returns the detached content fragment of a <template>.
func (e *Element) Content() *Element { return e.content }

// AppendChild appends child, detaching it from any previous parent.
// Appending a fragment moves the fragment's children and leaves it empty.
func (e *Element) AppendChild(child *Element) error {
	if child == nil {
		return nil
	}
	if e.nodeType == TextNode || child.Contains(e) {
		return ErrHierarchy
	}
	if child.nodeType == FragmentNode {
		moved := child.children
		child.children = nil
		for _, c := range moved {
			c.parent = e
		}
		e.children = append(e.children, moved...)
		return nil
	}
	child.Remove()
	child.parent = e
	e.children = append(e.children, child)
	return nil
}

// Remove detaches the node from its parent. It reports whether the node was
// attached; removing a detached node is a no-op.
func (e *Element) Remove() bool {
	p := e.parent
	if p == nil {
		return false
	}
	for i, c := range p.children {
		if c == e {
			p.children = append(p.children[:i:i], p.children[i+1:]...)
			break
		}
	}
	e.parent = nil
	if e.doc != nil && e.doc.active != nil && e.Contains(e.doc.active) {
		e.doc.active = nil
	}
	return true
}

// Contains reports whether other is e or one of its descendants.
func (e *Element) Contains(other *Element) bool {
	for n := other; n != nil; n = n.parent {
		if n == e {
			return true
		}
	}
	return false
}

// IsConnected reports whether the node is part of its document's tree.
func (e *Element) IsConnected() bool {
	if e.doc == nil {
		return false
	}
	return e.doc.body.Contains(e)
}

// Closest returns the nearest ancestor-or-self element with the given tag.
func (e *Element) Closest(tag string) *Element {
	for n := e; n != nil; n = n.parent {
		if n.nodeType == ElementNode && n.tag == tag {
			return n
		}
	}
	return nil
}

// Query returns the first descendant (document order, excluding e) that
// matches fn.
func (e *Element) Query(fn func(*Element) bool) *Element {
	var found *Element
	for _, c := range e.children {
		c.walk(func(n *Element) bool {
			if found != nil {
				return false
			}
			if n.nodeType == ElementNode && fn(n) {
				found = n
				return false
			}
			return true
		})
		if found != nil {
			break
		}
	}
	return found
}

// QueryAll returns all descendants (document order, excluding e) that match fn.
func (e *Element) QueryAll(fn func(*Element) bool) []*Element {
	var out []*Element
	for _, c := range e.children {
		c.walk(func(n *Element) bool {
			if n.nodeType == ElementNode && fn(n) {
				out = append(out, n)
			}
			return true
		})
	}
	return out
}

// QueryTag returns the first descendant with the given tag.
func (e *Element) QueryTag(tag string) *Element {
	return e.Query(func(n *Element) bool { return n.tag == tag })
}

// QueryAttr returns all descendants carrying the attribute.
func (e *Element) QueryAttr(name string) []*Element {
	return e.QueryAll(func(n *Element) bool { return n.HasAttribute(name) })
}

// CloneNode copies the node. Listeners are never copied.
func (e *Element) CloneNode(deep bool) *Element {
	c := &Element{
		doc:      e.doc,
		nodeType: e.nodeType,
		tag:      e.tag,
		data:     e.data,
		value:    e.value,
	}
	if len(e.attrs) > 0 {
		c.attrs = make(map[string]string, len(e.attrs))
		for k, v := range e.attrs {
			c.attrs[k] = v
		}
	}
	if e.content != nil {
		c.content = e.content.CloneNode(true)
	}
	if deep {
		for _, child := range e.children {
			cc := child.CloneNode(true)
			cc.parent = c
			c.children = append(c.children, cc)
		}
	}
	return c
}

// walk visits n and its descendants in document order. Returning false from
// fn skips the node's children.
func (e *Element) walk(fn func(*Element) bool) {
	if !fn(e) {
		return
	}
	for _, c := range e.children {
		c.walk(fn)
	}
}

// path returns the ancestors of e from the root down, excluding e.
func (e *Element) path() []*Element {
	var rev []*Element
	for n := e.parent; n != nil; n = n.parent {
		rev = append(rev, n)
	}
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev
}

// String returns a short description such as "li#item-3" or "#text".
func (e *Element) String() string { return describe(e) }
