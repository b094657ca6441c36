package optimistic

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric label values.
const (
	resultAccepted   = "accepted"
	resultEmpty      = "empty"
	resultClosed     = "closed"
	resultSuppressed = "suppressed"
)

// metrics holds the coordinator's Prometheus collectors. Coordinators that
// share a registerer share the collectors.
type metrics struct {
	pendingItems prometheus.Gauge
	submissions  *prometheus.CounterVec
	dismissals   *prometheus.CounterVec
	releases     prometheus.Counter
	staleItems   prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	const ns, sub = "optilist", "optimistic"
	return &metrics{
		pendingItems: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "pending_items",
			Help:      "Pending items waiting for server acknowledgement",
		})),
		submissions: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "submissions_total",
			Help:      "Form submissions by result",
		}, []string{"result"})),
		dismissals: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "dismissals_total",
			Help:      "Dismiss attempts by result",
		}, []string{"result"})),
		releases: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "releases_total",
			Help:      "Pending items released",
		})),
		staleItems: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "stale_items_total",
			Help:      "Pending items marked stale",
		})),
	}
}

// register adds c to reg. When an equal collector is already registered the
// existing one is returned. A nil reg leaves c unregistered.
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
	}
	return c
}
