package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers the application gate. A nil *Metrics records nothing.
type Metrics struct {
	AuthOutcomes *prometheus.CounterVec
	CacheLookups *prometheus.CounterVec
	RateLimited  *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		AuthOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "consentledger_app_auth_total",
			Help: "Application authentications by outcome",
		}, []string{"outcome"}), // outcome: "ok", "missing", "invalid", "error"
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "consentledger_credential_cache_lookups_total",
			Help: "Credential cache lookups by result",
		}, []string{"result"}), // result: "hit", "miss", "error"
		RateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "consentledger_app_rate_limited_total",
			Help: "Requests rejected by the per-application rate limiter",
		}, []string{"app_id"}),
	}
}

func (m *Metrics) IncrementAuth(outcome string) {
	if m != nil {
		m.AuthOutcomes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementCache(result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncrementRateLimited(appID string) {
	if m != nil {
		m.RateLimited.WithLabelValues(appID).Inc()
	}
}
