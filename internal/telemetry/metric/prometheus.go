package metric

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ssess"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Session metrics
	SessionOperations *prometheus.CounterVec
	LockWait          prometheus.Histogram
	FixationRejected  prometheus.Counter
	DecryptFailures   prometheus.Counter
	MintRateLimited   prometheus.Counter

	// Storage metrics
	GCRemoved prometheus.Counter

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with every ssess metric plus the Go and
// process collectors registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		SessionOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "operations_total",
			Help:      "Session handler operations by operation and result.",
		}, []string{"op", "result"}),

		LockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "lock_wait_seconds",
			Help:      "Time spent acquiring the per-session lock in Open.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5, 10},
		}),

		FixationRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "fixation_rejected_total",
			Help:      "Presented session ids replaced because no stored session existed.",
		}),

		DecryptFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "decrypt_failures_total",
			Help:      "Stored session data that failed to decrypt.",
		}),

		MintRateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "mint_rate_limited_total",
			Help:      "Requests rejected because the client exceeded the id mint rate.",
		}),

		GCRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "gc_removed_total",
			Help:      "Records removed by garbage collection.",
		}),

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.SessionOperations,
		r.LockWait,
		r.FixationRejected,
		r.DecryptFailures,
		r.MintRateLimited,
		r.GCRemoved,
		r.RequestsTotal,
		r.RequestDuration,
	)
	return r
}

var (
	globalOnce     sync.Once
	globalRegistry *Registry
)

// Global returns the process-wide registry, creating it on first use.
func Global() *Registry {
	globalOnce.Do(func() {
		globalRegistry = NewRegistry()
	})
	return globalRegistry
}

// Registerer exposes the underlying registry for components that register
// their own collectors (the badger backend).
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Gatherer exposes the underlying registry for tests and exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Handler returns the /metrics handler of the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// ObserveOperation implements session.Metrics.
func (r *Registry) ObserveOperation(op, result string) {
	r.SessionOperations.WithLabelValues(op, result).Inc()
}

// ObserveLockWait implements session.Metrics.
func (r *Registry) ObserveLockWait(d time.Duration) {
	r.LockWait.Observe(d.Seconds())
}

// IncFixationRejected implements session.Metrics.
func (r *Registry) IncFixationRejected() {
	r.FixationRejected.Inc()
}

// IncDecryptFailure implements session.Metrics.
func (r *Registry) IncDecryptFailure() {
	r.DecryptFailures.Inc()
}

// AddGCRemoved implements session.Metrics.
func (r *Registry) AddGCRemoved(n int) {
	if n > 0 {
		r.GCRemoved.Add(float64(n))
	}
}

// IncMintRateLimited counts a request rejected by the mint limiter.
func (r *Registry) IncMintRateLimited() {
	r.MintRateLimited.Inc()
}

// ObserveRequest records one HTTP request.
func (r *Registry) ObserveRequest(method, route, status string, d time.Duration) {
	r.RequestsTotal.WithLabelValues(method, route, status).Inc()
	r.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
