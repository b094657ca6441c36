// Package optimistic shows a created item in its list before the server
// confirms it.
//
// A Coordinator owns one add-item form. On submit it inserts a pending copy
// of the item into the target list, locks it, and pushes a create command
// over a remote.Channel. The lock token travels with the command; when the
// server has applied the create the channel releases the token and the
// pending copy is removed, leaving the server-rendered item in place.
//
// The form is declared with Markup and mounted with New (or through a
// hooks.Registry using Mounter):
//
//	root, _ := doc.Mount(doc.Body(), optimistic.Markup(optimistic.MarkupConfig{
//	    ID:         "item-add",
//	    InsertInto: "items",
//	}))
//	c, err := optimistic.New(root, optimistic.WithChannel(ch))
//
// # States
//
// The coordinator is Idle (form hidden), FormOpen, or Submitting. Submitting
// lasts only for the handling of one submit: the form stays open so the user
// can type the next item while earlier ones are still pending.
//
// # Submit and dismiss
//
// A submit usually makes the input lose focus, which would read as the user
// dismissing the form. The SubmissionGuard turns exactly one dismiss after a
// submit into a no-op. The latch is also cleared when the turn that set it
// ends, so it never outlives the interaction that caused it.
//
// # Failure
//
// An item whose create is never acknowledged stays pending. WithStaleAfter
// marks such items with data-pending-state="stale" after a delay; it never
// removes them.
package optimistic
