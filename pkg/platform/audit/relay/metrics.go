package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts relay throughput. A nil *Metrics records nothing.
type Metrics struct {
	Published prometheus.Counter
	Failures  prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Published: promauto.NewCounter(prometheus.CounterOpts{
			Name: "consentledger_outbox_published_total",
			Help: "Total number of outbox rows published to Kafka",
		}),
		Failures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "consentledger_outbox_relay_failures_total",
			Help: "Total number of failed outbox relay passes",
		}),
	}
}

func (m *Metrics) AddPublished(n int) {
	if m == nil {
		return
	}
	m.Published.Add(float64(n))
}

func (m *Metrics) IncFailures() {
	if m == nil {
		return
	}
	m.Failures.Inc()
}
