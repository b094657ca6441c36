package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/optilist/pkg/server"
)

const defaultTracerName = "optilist"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "optilist").
	TracerName string

	// TracerProvider overrides the global provider.
	TracerProvider trace.TracerProvider

	// IncludePayloadKeys adds the push payload keys (not values) to spans.
	IncludePayloadKeys bool

	// Filter determines which pushes to trace. If nil, all are traced.
	Filter func(ctx *server.Ctx) bool

	// AttributeExtractor adds custom attributes for each traced push.
	AttributeExtractor func(ctx *server.Ctx) []attribute.KeyValue

	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) { c.TracerName = name }
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) { c.TracerProvider = tp }
}

// WithIncludePayloadKeys records payload keys on spans.
func WithIncludePayloadKeys(include bool) OTelOption {
	return func(c *OTelConfig) { c.IncludePayloadKeys = include }
}

// WithPushFilter sets a filter function for pushes.
func WithPushFilter(filter func(ctx *server.Ctx) bool) OTelOption {
	return func(c *OTelConfig) { c.Filter = filter }
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(ctx *server.Ctx) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) { c.AttributeExtractor = extractor }
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{TracerName: defaultTracerName}
}

// OpenTelemetry creates middleware that traces every push.
func OpenTelemetry(opts ...OTelOption) server.Middleware {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.TracerProvider != nil {
		config.tracer = config.TracerProvider.Tracer(config.TracerName)
	} else {
		config.tracer = otel.Tracer(config.TracerName)
	}

	return server.MiddlewareFunc(func(ctx *server.Ctx, next func() error) error {
		if config.Filter != nil && !config.Filter(ctx) {
			return next()
		}

		push := ctx.Push()
		attrs := []attribute.KeyValue{
			attribute.String("optilist.event", push.Event),
			attribute.String("optilist.target", push.Target),
			attribute.Int64("optilist.ref", int64(push.Ref)),
		}
		if session := ctx.Session(); session != nil {
			attrs = append(attrs, attribute.String("optilist.session_id", session.ID))
		}
		if config.IncludePayloadKeys {
			keys := make([]string, 0, len(push.Payload))
			for k := range push.Payload {
				keys = append(keys, k)
			}
			attrs = append(attrs, attribute.StringSlice("optilist.payload_keys", keys))
		}
		if config.AttributeExtractor != nil {
			attrs = append(attrs, config.AttributeExtractor(ctx)...)
		}

		spanCtx, span := config.tracer.Start(
			ctx.StdContext(),
			formatSpanName(ctx),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attrs...),
			trace.WithTimestamp(time.Now()),
		)
		defer span.End()

		ctx.SetValue(spanContextKey{}, spanCtx)
		ctx.WithStdContext(spanCtx)

		err := next()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.SetAttributes(attribute.Int("optilist.patch_count", ctx.PatchCount()))
		return err
	})
}

type spanContextKey struct{}

// SpanFromContext returns the span of the push being handled, or nil
// outside the middleware.
func SpanFromContext(ctx *server.Ctx) trace.Span {
	if spanCtx, ok := ctx.Value(spanContextKey{}).(context.Context); ok {
		return trace.SpanFromContext(spanCtx)
	}
	return nil
}

func formatSpanName(ctx *server.Ctx) string {
	event := ctx.Event()
	if event == "" {
		event = "push"
	}
	return "optilist." + event
}
