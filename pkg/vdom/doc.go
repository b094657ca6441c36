// Package vdom provides declarative node trees for optilist markup.
//
// A VNode tree describes elements, text and fragments. It carries no live
// state: pkg/dom materializes a tree into a document, and the optimistic
// package uses trees to describe add-item forms and pending-item templates.
//
// # Element API
//
// Elements are created using variadic factory functions:
//
//	Form(Ref("form"),
//	    Input(Type("text"), Ref("input")),
//	    Button(Type("submit"), Text("Add")),
//	)
//
// Arguments may be Attr, []Attr, *VNode, []*VNode, string (text child),
// EventHandler or nil (ignored, which allows conditional attributes).
package vdom
