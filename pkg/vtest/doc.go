// Package vtest provides testing helpers for list forms and push handlers.
//
// # Form Fixture
//
// NewForm mounts a list and an optimistic add-item form on a headless
// document, wired to an in-process channel:
//
//	f := vtest.NewForm(t, vtest.WithList("groceries"))
//	f.Add("Buy milk")
//	f.ExpectPending(1)
//	f.AckAll()
//	f.ExpectItems("Buy milk")
//
// # Handler Contexts
//
// The context builder creates a server.Ctx for calling handlers and
// middleware directly:
//
//	ctx := vtest.NewCtx().
//	    WithTarget("lists/groceries").
//	    WithParam("title", "Eggs").
//	    Build()
//	err := server.CreateHandler(items, nil)(ctx)
//
// # Render Assertions
//
//	vtest.ExpectContains(t, optimistic.Item("item-1", "Eggs"), "Eggs")
//	vtest.ExpectAttribute(t, node, "class", "item")
package vtest
