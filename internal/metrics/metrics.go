package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission and approval outcomes.
const (
	ResultAccepted  = "accepted"
	ResultApproved  = "approved"
	ResultDuplicate = "duplicate"
	ResultInvalid   = "invalid"
	ResultNotFound  = "not_found"
	ResultError     = "error"
)

// Metrics holds the registry's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Submissions     *prometheus.CounterVec
	Approvals       *prometheus.CounterVec
	StorageDuration *prometheus.HistogramVec
	StorageFailures *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "acp_registry_submissions_total",
			Help: "Registration submissions by result",
		}, []string{"result"}),
		Approvals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "acp_registry_approvals_total",
			Help: "Approval requests by result",
		}, []string{"result"}),
		StorageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "acp_registry_storage_duration_seconds",
			Help:    "Duration of registry document reads and writes",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"op"}),
		StorageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "acp_registry_storage_failures_total",
			Help: "Failed registry document reads and writes",
		}, []string{"op"}),
	}
}

// ObserveSubmission counts one submission with the given result.
func (m *Metrics) ObserveSubmission(result string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(result).Inc()
}

// ObserveApproval counts one approval with the given result.
func (m *Metrics) ObserveApproval(result string) {
	if m == nil {
		return
	}
	m.Approvals.WithLabelValues(result).Inc()
}

// ObserveStorage records a storage operation that started at start.
func (m *Metrics) ObserveStorage(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.StorageDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		m.StorageFailures.WithLabelValues(op).Inc()
	}
}
