package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for backend self-monitoring.
// It uses a custom registry to avoid polluting the global default.
type Metrics struct {
	Registry *prometheus.Registry

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	SessionsTotal *prometheus.CounterVec

	// Collaborator metrics
	UpstreamCallDuration *prometheus.HistogramVec

	// Scale metrics
	ScaleWritesTotal *prometheus.CounterVec
}

// Request outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Scale write result label values.
const (
	WritePersisted = "persisted"
	WriteNoop      = "noop"
	WriteRejected  = "rejected"
)

// Collaborator label values for upstream call timings.
const (
	CollaboratorIdentity  = "identity"
	CollaboratorPolicy    = "policy"
	CollaboratorDirectory = "directory"
	CollaboratorTopology  = "topology"
)

// NewMetrics creates a new Metrics instance with all Prometheus metrics
// registered on a custom registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "opscale_backend_requests_total",
			Help: "Total number of backend operations by outcome.",
		}, []string{"operation", "outcome"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "opscale_backend_request_duration_seconds",
			Help:    "Duration of backend operations in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),

		SessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "opscale_backend_sessions_total",
			Help: "Total number of request sessions by authentication outcome.",
		}, []string{"outcome"}),

		UpstreamCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "opscale_backend_upstream_call_duration_seconds",
			Help:    "Duration of collaborator calls in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"collaborator"}),

		ScaleWritesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "opscale_backend_scale_writes_total",
			Help: "Scale request outcomes: persisted, noop, or rejected.",
		}, []string{"result"}),
	}

	// Register all metrics with the custom registry.
	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.SessionsTotal,
		m.UpstreamCallDuration,
		m.ScaleWritesTotal,
	)

	return m
}

// ObserveUpstream records the elapsed time of one collaborator call.
// Safe on a nil receiver so callers need no metrics guard.
func (m *Metrics) ObserveUpstream(collaborator string, start time.Time) {
	if m == nil {
		return
	}
	m.UpstreamCallDuration.WithLabelValues(collaborator).Observe(time.Since(start).Seconds())
}
