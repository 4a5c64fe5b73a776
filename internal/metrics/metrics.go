// Package metrics exposes Prometheus instruments for plan resolution and
// gated data access.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Route label values.
const (
	RouteSample  = "sample"
	RouteLive    = "live"
	RouteBlocked = "blocked"
)

// Metrics holds the gateway instruments. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	resolutions     *prometheus.CounterVec
	lookupAttempts  *prometheus.CounterVec
	resolveDuration prometheus.Histogram
	requests        *prometheus.CounterVec
	storeErrors     *prometheus.CounterVec
}

// New registers the instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		resolutions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "muniops",
				Subsystem: "gateway",
				Name:      "plan_resolutions_total",
				Help:      "Settled plan resolutions by plan and outcome",
			},
			[]string{"plan", "outcome"},
		),
		lookupAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "muniops",
				Subsystem: "gateway",
				Name:      "tenant_lookups_total",
				Help:      "Tenant lookup attempts by result",
			},
			[]string{"result"},
		),
		resolveDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "muniops",
				Subsystem: "gateway",
				Name:      "plan_resolution_duration_seconds",
				Help:      "Time from starting a plan resolution to settling it",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "muniops",
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Gated requests by entity, operation and route",
			},
			[]string{"entity", "operation", "route"},
		),
		storeErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "muniops",
				Subsystem: "gateway",
				Name:      "store_errors_total",
				Help:      "Live store failures surfaced to callers",
			},
			[]string{"entity", "operation"},
		),
	}
}

// ObserveResolution records a settled plan resolution.
func (m *Metrics) ObserveResolution(plan string, defaulted bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "resolved"
	if defaulted {
		outcome = "defaulted"
	}
	m.resolutions.WithLabelValues(plan, outcome).Inc()
	m.resolveDuration.Observe(d.Seconds())
}

// ObserveLookup records one tenant lookup attempt.
func (m *Metrics) ObserveLookup(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.lookupAttempts.WithLabelValues(result).Inc()
}

// ObserveRequest records the routing decision for one request.
func (m *Metrics) ObserveRequest(entity, operation, route string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(entity, operation, route).Inc()
}

// ObserveStoreError records a live store failure.
func (m *Metrics) ObserveStoreError(entity, operation string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(entity, operation).Inc()
}
