// Package middleware provides observability middleware for push handlers.
//
// # Prometheus Metrics
//
// Prometheus collects metrics about handled pushes and open sessions:
//   - optilist_pushes_total: pushes by event and status
//   - optilist_push_duration_seconds: handling duration by event
//   - optilist_push_errors_total: failed pushes by event and error type
//   - optilist_patches_sent_total: patches emitted by successful pushes
//   - optilist_active_sessions: open WebSocket sessions
//
//	reg := prometheus.NewRegistry()
//	m := middleware.Prometheus(middleware.WithRegistry(reg))
//	srv := server.New(items,
//	    server.WithMiddleware(m),
//	    server.WithSessionObserver(m),
//	    server.WithMetrics(reg),
//	)
//
// # OpenTelemetry
//
// OpenTelemetry starts a server span per push and replaces the push
// context with one carrying the span, so store calls inherit the trace:
//
//	srv.Use(middleware.OpenTelemetry(middleware.WithTracerName("optilist")))
//
// The tracer comes from the global provider; configure it with
// otel.SetTracerProvider before starting the server.
package middleware
