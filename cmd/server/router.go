package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	accesshandler "consentledger/internal/access/handler"
	appmiddleware "consentledger/internal/application/middleware"
	audithandler "consentledger/internal/audit/handler"
	consenthandler "consentledger/internal/consent/handler"
	httpmetrics "consentledger/internal/platform/metrics"
	"consentledger/pkg/platform/httputil"
	"consentledger/pkg/platform/middleware/metadata"
	"consentledger/pkg/platform/middleware/request"
	"consentledger/pkg/platform/middleware/requesttime"
)

const (
	requestTimeout = 15 * time.Second
	healthTimeout  = 2 * time.Second
	banner         = "consentledger: consent management API\n"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func newRouter(c *components, health pinger, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Recovery(log))
	r.Use(request.Logger(log))
	r.Use(request.Timeout(requestTimeout))
	r.Use(request.ContentTypeJSON)
	r.Use(httpmetrics.LatencyMiddleware(c.httpMetrics))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(banner))
	})
	r.Get("/health", healthHandler(health, log))
	r.Handle("/metrics", promhttp.Handler())

	consenthandler.New(c.consents, log).Register(r)
	audithandler.New(c.accessLogs, log).Register(r)

	r.Group(func(r chi.Router) {
		r.Use(appmiddleware.RequireApplication(c.gate, c.security, log))
		r.Use(c.limiter.Middleware)
		accesshandler.New(c.evaluator, log).Register(r)
	})

	return r
}

func healthHandler(health pinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := health.Ping(ctx); err != nil {
			log.WarnContext(ctx, "health check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
