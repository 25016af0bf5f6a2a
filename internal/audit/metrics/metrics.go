package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks access trail writes. A nil *Metrics records nothing.
type Metrics struct {
	EntriesWritten *prometheus.CounterVec
	WriteFailures  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		EntriesWritten: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "consentledger_access_logs_written_total",
			Help: "Access log entries appended, by result",
		}, []string{"result"}),
		WriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "consentledger_access_log_write_failures_total",
			Help: "Access log appends that failed",
		}),
	}
}

func (m *Metrics) IncrementWritten(result string) {
	if m == nil {
		return
	}
	m.EntriesWritten.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementFailure() {
	if m == nil {
		return
	}
	m.WriteFailures.Inc()
}
