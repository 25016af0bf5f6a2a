package main

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"consentledger/internal/access"
	accessmetrics "consentledger/internal/access/metrics"
	accesslog "consentledger/internal/audit"
	accesslogmetrics "consentledger/internal/audit/metrics"
	"consentledger/internal/application"
	"consentledger/internal/application/cache"
	appmetrics "consentledger/internal/application/metrics"
	appmiddleware "consentledger/internal/application/middleware"
	"consentledger/internal/application/secrets"
	consentmetrics "consentledger/internal/consent/metrics"
	consentservice "consentledger/internal/consent/service"
	"consentledger/internal/platform/config"
	httpmetrics "consentledger/internal/platform/metrics"
	"consentledger/pkg/platform/audit/publishers/compliance"
	"consentledger/pkg/platform/audit/publishers/security"
	"consentledger/pkg/platform/circuit"
)

const securityBufferSize = 10000

// components is the fully wired service graph behind the HTTP router.
type components struct {
	consents    *consentservice.Service
	accessLogs  *accesslog.Service
	evaluator   *access.Service
	gate        *application.Gate
	security    *security.Publisher
	limiter     *appmiddleware.RateLimiter
	httpMetrics *httpmetrics.Metrics
}

// registry groups the Prometheus collectors. A zero registry records nothing,
// which keeps repeated wiring in tests off the global registerer.
type registry struct {
	http       *httpmetrics.Metrics
	consent    *consentmetrics.Metrics
	access     *accessmetrics.Metrics
	accessLogs *accesslogmetrics.Metrics
	apps       *appmetrics.Metrics
	compliance *compliance.Metrics
}

func newRegistry() registry {
	return registry{
		http:       httpmetrics.New(),
		consent:    consentmetrics.New(),
		access:     accessmetrics.New(),
		accessLogs: accesslogmetrics.New(),
		apps:       appmetrics.New(),
		compliance: compliance.NewMetrics(),
	}
}

// credentialCache picks where resolved digests are cached. Redis is shared by
// every process, so a deactivation from the CLI evicts for the server too. A
// process-local cache is only safe when this process is the only writer,
// which holds for the memory driver. Postgres without Redis skips caching.
func credentialCache(cfg config.Server, log *slog.Logger, d *deps) application.CredentialCache {
	switch {
	case d.redis != nil:
		return cache.NewGuarded(cache.NewRedis(d.redis.Client),
			circuit.New("redis-credential-cache", circuit.WithCooldown(5*time.Second)), log)
	case cfg.StoreDriver == config.DriverMemory:
		return cache.NewMemory(cfg.Auth.CredentialCacheTTL)
	default:
		log.Info("credential cache disabled: REDIS_URL is not set and the store is shared")
		return nil
	}
}

func newGate(cfg config.Server, log *slog.Logger, d *deps, reg registry, publisher *compliance.Publisher) *application.Gate {
	credCache := credentialCache(cfg, log, d)

	return application.NewGate(d.apps, secrets.NewDigester(cfg.Auth.SecretPepper),
		application.WithCache(credCache, cfg.Auth.CredentialCacheTTL),
		application.WithTxRunner(d.tx),
		application.WithAuditPublisher(publisher),
		application.WithLogger(log),
		application.WithMetrics(reg.apps),
		application.WithStoreTimeout(cfg.StoreTimeout),
	)
}

func newCompliancePublisher(log *slog.Logger, d *deps, reg registry) *compliance.Publisher {
	return compliance.New(d.events,
		compliance.WithLogger(log),
		compliance.WithMetrics(reg.compliance),
	)
}

func newComponents(cfg config.Server, log *slog.Logger, d *deps, reg registry) *components {
	publisher := newCompliancePublisher(log, d, reg)

	consents := consentservice.New(d.consents,
		consentservice.WithTxRunner(d.tx),
		consentservice.WithAuditPublisher(publisher),
		consentservice.WithLogger(log),
		consentservice.WithMetrics(reg.consent),
		consentservice.WithStoreTimeout(cfg.StoreTimeout),
	)
	accessLogs := accesslog.NewService(d.accessLogs,
		accesslog.WithLogger(log),
		accesslog.WithMetrics(reg.accessLogs),
		accesslog.WithStoreTimeout(cfg.StoreTimeout),
	)
	evaluator := access.NewService(consents, accessLogs,
		access.WithLogger(log),
		access.WithMetrics(reg.access),
	)

	events := security.New(d.events, securityBufferSize, log)
	limiter := appmiddleware.NewRateLimiter(appmiddleware.RateLimiterConfig{
		Rate:            rate.Limit(cfg.Limits.PerSecond),
		Burst:           cfg.Limits.Burst,
		CleanupInterval: 5 * time.Minute,
	}, events, log, reg.apps)

	return &components{
		consents:    consents,
		accessLogs:  accessLogs,
		evaluator:   evaluator,
		gate:        newGate(cfg, log, d, reg, publisher),
		security:    events,
		limiter:     limiter,
		httpMetrics: reg.http,
	}
}

// Close stops background work owned by the components.
func (c *components) Close(ctx context.Context) {
	c.limiter.Stop()
	c.security.Flush(ctx)
}
