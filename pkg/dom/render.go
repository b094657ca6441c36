package dom

import (
	"html"
	"strings"

	"github.com/vango-dev/optilist/pkg/vdom"
)

// Render materializes a vdom tree as detached nodes. Fragments render as
// fragment nodes; the children of a <template> go to its Content.
// Handler props of type Listener, func(*Event) or func() become listeners.
func (d *Document) Render(node *vdom.VNode) *Element {
	if node == nil {
		return nil
	}
	switch node.Kind {
	case vdom.KindText:
		return d.CreateTextNode(node.Text)
	case vdom.KindFragment:
		frag := d.CreateFragment()
		for _, c := range node.Children {
			frag.AppendChild(d.Render(c))
		}
		return frag
	}

	el := d.CreateElement(node.Tag)
	for _, a := range node.Attrs() {
		if a.Key == "key" {
			continue
		}
		if s, ok := vdom.FormatValue(a.Value); ok {
			el.SetAttribute(a.Key, s)
		}
	}
	for name, h := range node.Handlers() {
		if fn := asListener(h); fn != nil {
			el.AddEventListener(name, fn)
		}
	}
	parent := el
	if el.content != nil {
		parent = el.content
	}
	for _, c := range node.Children {
		parent.AppendChild(d.Render(c))
	}
	return el
}

// Mount renders node and appends it to parent. For a fragment, the returned
// element is the first element child that was inserted.
func (d *Document) Mount(parent *Element, node *vdom.VNode) (*Element, error) {
	el := d.Render(node)
	if el == nil {
		return nil, nil
	}
	first := el
	if el.nodeType == FragmentNode {
		first = el.FirstElementChild()
	}
	if err := parent.AppendChild(el); err != nil {
		return nil, err
	}
	return first, nil
}

func asListener(h any) Listener {
	switch fn := h.(type) {
	case Listener:
		return fn
	case func(*Event):
		return fn
	case func():
		return func(*Event) { fn() }
	}
	return nil
}

// OuterHTML serializes the node. Input values are written as the value
// attribute so pending text is visible in the output.
func (e *Element) OuterHTML() string {
	var b strings.Builder
	e.writeHTML(&b)
	return b.String()
}

// InnerHTML serializes the children of the node.
func (e *Element) InnerHTML() string {
	var b strings.Builder
	for _, c := range e.children {
		c.writeHTML(&b)
	}
	return b.String()
}

func (e *Element) writeHTML(b *strings.Builder) {
	switch e.nodeType {
	case TextNode:
		b.WriteString(html.EscapeString(e.data))
		return
	case FragmentNode:
		for _, c := range e.children {
			c.writeHTML(b)
		}
		return
	}
	b.WriteByte('<')
	b.WriteString(e.tag)
	for _, name := range e.Attributes() {
		if name == "value" && e.tag == "input" {
			continue
		}
		b.WriteByte(' ')
		b.WriteString(name)
		if v := e.attrs[name]; v != "" {
			b.WriteString(`="`)
			b.WriteString(html.EscapeString(v))
			b.WriteByte('"')
		}
	}
	if e.tag == "input" && e.value != "" {
		b.WriteString(` value="`)
		b.WriteString(html.EscapeString(e.value))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	if vdom.IsVoidElement(e.tag) {
		return
	}
	kids := e.children
	if e.content != nil {
		kids = e.content.children
	}
	for _, c := range kids {
		c.writeHTML(b)
	}
	b.WriteString("</")
	b.WriteString(e.tag)
	b.WriteByte('>')
}
