// Package dom is a headless, single-threaded live document.
//
// It models the parts of a browser DOM that optimistic list forms depend on:
// an element tree with attributes and text, form control values, focus and
// blur, template content, and event dispatch with capture, target and bubble
// phases.
//
// # Event Loop
//
// A Document is not safe for concurrent mutation. All mutation happens on
// the document loop: a goroutine running Run, or a test calling RunPending.
// Other goroutines hand work to the loop with Post.
//
// Every top-level DispatchEvent call is one turn. Callbacks registered with
// AfterTurn run once the current turn's handlers have all completed, which
// lets a handler leave state that is visible to later events of the same
// turn and is cleared before the next one:
//
//	doc.Turn(func() {
//	    form.RequestSubmit() // handler sets a latch, registers AfterTurn reset
//	    input.Blur()         // blur handler still sees the latch
//	})                       // latch reset here
//
// Listener panics are recovered and logged. They never escape DispatchEvent.
package dom
