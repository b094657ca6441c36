// Package server is the acknowledgement side of optimistic list updates.
//
// Clients connect to /live over WebSocket and send push frames such as
// "create" for a list target. Each connection gets a Session whose ReadLoop
// handles pushes one at a time: the registered HandlerFunc runs through the
// middleware chain, emitted patches are sent, and then the push is replied
// to. Because patches always precede the reply on the same connection, a
// client that removes its pending item on the reply never shows an empty
// gap.
//
// # Routes
//
//	GET /live                       WebSocket endpoint
//	GET /api/lists/{list}/items     items of a list as JSON
//	GET /healthz                    liveness probe
//	GET /metrics                    Prometheus metrics, when enabled
//
// # Handlers
//
//	srv := server.New(store.NewMemoryStore())
//	srv.Use(middleware.Prometheus(), middleware.OpenTelemetry())
//	srv.Handle("rename", func(ctx *server.Ctx) error {
//	    ctx.Emit(protocol.Patch{Op: protocol.PatchSetText, ID: ctx.Param("id"), Text: ctx.Param("title")})
//	    return nil
//	})
//	log.Fatal(srv.Run(ctx))
package server
