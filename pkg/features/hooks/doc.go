// Package hooks binds behaviour to elements of a live document.
//
// Bind wraps an element and a set of named callbacks into a Binding that
// exposes:
//   - JS, a command surface for showing, hiding, locking and unlocking
//     elements
//   - Refs, a snapshot of the descendants tagged with data-ref, built once
//     at bind time (Rebind rescans)
//   - a delegated CallHookEvent listener, so other code can invoke any named
//     callback by dispatching that event with a CallDetail
//
// Usage:
//
//	b, err := hooks.Bind(el, hooks.Callbacks{
//	    "refresh": func(e *dom.Event, ev hooks.HookEvent) { ... },
//	})
//	tok := b.JS.Lock([]*dom.Element{item}, func() { item.Remove() })
//	// later, exactly once in effect:
//	tok.Release()
//
// Elements declare their behaviour with the Hook attribute and a Registry
// binds every declared element under a root:
//
//	Div(hooks.Hook("ItemAdd", map[string]any{"insertInto": "items"}))
package hooks
