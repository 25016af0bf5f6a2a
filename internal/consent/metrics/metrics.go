package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the consent module.
// A nil *Metrics is valid and records nothing, so tests can skip registration.
type Metrics struct {
	ConsentsGranted prometheus.Counter
	ConsentsRevoked prometheus.Counter
	StoreDuration   *prometheus.HistogramVec
}

// New creates a new Metrics instance with all consent module metrics registered.
func New() *Metrics {
	return &Metrics{
		ConsentsGranted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "consentledger_consents_granted_total",
			Help: "Total number of consents granted",
		}),
		ConsentsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "consentledger_consents_revoked_total",
			Help: "Total number of consents moved from active to revoked",
		}),
		StoreDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "consentledger_consent_store_duration_seconds",
			Help:    "Duration of consent store operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
		}, []string{"op"}),
	}
}

func (m *Metrics) IncrementGranted() {
	if m == nil {
		return
	}
	m.ConsentsGranted.Inc()
}

func (m *Metrics) IncrementRevoked() {
	if m == nil {
		return
	}
	m.ConsentsRevoked.Inc()
}

// ObserveStore records the duration of one store operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveStore(op string, start time.Time) {
	if m == nil {
		return
	}
	m.StoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
