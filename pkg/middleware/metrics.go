package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/optilist/internal/store"
	"github.com/vango-dev/optilist/pkg/server"
)

// MetricsConfig configures the Prometheus middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "optilist").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for push duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use. Collectors already
	// registered there under the same name are reused.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) { c.Namespace = namespace }
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) { c.Subsystem = subsystem }
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) { c.ConstLabels = labels }
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) { c.Buckets = buckets }
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) { c.Registry = registry }
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "optilist",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics is the Prometheus middleware. It implements server.Middleware
// and server.SessionObserver.
type Metrics struct {
	pushesTotal    *prometheus.CounterVec
	pushDuration   *prometheus.HistogramVec
	pushErrors     *prometheus.CounterVec
	patchesSent    prometheus.Counter
	activeSessions prometheus.Gauge
}

// Prometheus creates the metrics middleware.
//
//	m := middleware.Prometheus(middleware.WithNamespace("myapp"))
//	srv := server.New(items, server.WithMiddleware(m), server.WithSessionObserver(m))
func Prometheus(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	reg := config.Registry

	return &Metrics{
		pushesTotal: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pushes_total",
			Help:        "Total number of pushes handled",
			ConstLabels: config.ConstLabels,
		}, []string{"event", "status"})),

		pushDuration: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "push_duration_seconds",
			Help:        "Push handling duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"event"})),

		pushErrors: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "push_errors_total",
			Help:        "Total number of failed pushes",
			ConstLabels: config.ConstLabels,
		}, []string{"event", "error_type"})),

		patchesSent: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "patches_sent_total",
			Help:        "Total number of patches sent to clients",
			ConstLabels: config.ConstLabels,
		})),

		activeSessions: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of open WebSocket sessions",
			ConstLabels: config.ConstLabels,
		})),
	}
}

// register registers c with reg, returning the collector already
// registered under the same descriptor if there is one.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if reg == nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// Handle implements server.Middleware.
func (m *Metrics) Handle(ctx *server.Ctx, next func() error) error {
	event := ctx.Event()
	if event == "" {
		event = "unknown"
	}

	start := time.Now()
	err := next()
	m.pushDuration.WithLabelValues(event).Observe(time.Since(start).Seconds())

	status := "success"
	if err != nil {
		status = "error"
		m.pushErrors.WithLabelValues(event, categorizeError(err)).Inc()
	} else {
		m.patchesSent.Add(float64(ctx.PatchCount()))
	}
	m.pushesTotal.WithLabelValues(event, status).Inc()
	return err
}

// SessionOpened implements server.SessionObserver.
func (m *Metrics) SessionOpened(*server.Session) { m.activeSessions.Inc() }

// SessionClosed implements server.SessionObserver.
func (m *Metrics) SessionClosed(*server.Session) { m.activeSessions.Dec() }

// categorizeError returns a low-cardinality label for err.
func categorizeError(err error) string {
	var handlerErr *server.HandlerError
	switch {
	case errors.As(err, &handlerErr):
		return "panic"
	case errors.Is(err, server.ErrHandlerNotFound):
		return "not_found"
	case errors.Is(err, store.ErrEmptyTitle),
		errors.Is(err, store.ErrEmptyList),
		errors.Is(err, store.ErrTitleTooLong),
		errors.Is(err, server.ErrMissingParam):
		return "validation"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "rate limit"):
		return "rate_limit"
	case strings.Contains(msg, "not found"):
		return "not_found"
	case strings.Contains(msg, "validation"):
		return "validation"
	default:
		return "internal"
	}
}
