package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for access evaluation.
type Metrics struct {
	// Outcomes by result and denial reason ("" when allowed)
	Outcomes *prometheus.CounterVec

	AuditFailures  prometheus.Counter
	LookupFailures prometheus.Counter

	EvaluateLatency prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "consentledger_access_decisions_total",
			Help: "Access decisions by result and reason",
		}, []string{"result", "reason"}),
		AuditFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "consentledger_access_audit_failures_total",
			Help: "Evaluations aborted because the access log write failed",
		}),
		LookupFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "consentledger_access_lookup_failures_total",
			Help: "Evaluations aborted because the consent lookup failed",
		}),
		EvaluateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "consentledger_access_evaluate_duration_seconds",
			Help:    "Duration of a full evaluation including the log write",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

func (m *Metrics) IncrementOutcome(result, reason string) {
	if m != nil {
		m.Outcomes.WithLabelValues(result, reason).Inc()
	}
}

func (m *Metrics) IncrementAuditFailure() {
	if m != nil {
		m.AuditFailures.Inc()
	}
}

func (m *Metrics) IncrementLookupFailure() {
	if m != nil {
		m.LookupFailures.Inc()
	}
}

func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}
