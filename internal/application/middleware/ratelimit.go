package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"consentledger/internal/application/metrics"
	dErrors "consentledger/pkg/domain-errors"
	audit "consentledger/pkg/platform/audit"
	"consentledger/pkg/platform/httputil"
	"consentledger/pkg/requestcontext"
)

// RateLimiterConfig holds the per-application token bucket settings.
type RateLimiterConfig struct {
	Rate            rate.Limit
	Burst           int
	CleanupInterval time.Duration
}

type appLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter keeps one token bucket per authenticated application.
type RateLimiter struct {
	config  RateLimiterConfig
	events  SecurityEmitter
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	limiters map[string]*appLimiter

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimiter starts a background sweep of idle buckets; call Stop to end it.
func NewRateLimiter(config RateLimiterConfig, events SecurityEmitter, logger *slog.Logger, m *metrics.Metrics) *RateLimiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	rl := &RateLimiter{
		config:   config,
		events:   events,
		logger:   logger,
		metrics:  m,
		limiters: make(map[string]*appLimiter),
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Middleware must run after RequireApplication.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		appID := requestcontext.AppID(ctx)
		if appID == "" {
			httputil.WriteError(w, dErrors.New(dErrors.CodeMissingCredential, "application credential required"))
			return
		}

		if !rl.limiterFor(appID).Allow() {
			rl.metrics.IncrementRateLimited(appID)
			rl.logger.WarnContext(ctx, "rate limit exceeded",
				"app_id", appID,
				"request_id", requestcontext.RequestID(ctx),
			)
			if rl.events != nil {
				rl.events.Emit(ctx, audit.SecurityEvent{
					Timestamp: requestcontext.Now(ctx),
					Action:    audit.EventRateLimitExceeded,
					AppID:     appID,
					IP:        requestcontext.ClientIP(ctx),
					RequestID: requestcontext.RequestID(ctx),
				})
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(rl.config.Rate)))
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests, retry later"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LimiterCount reports the number of tracked applications.
func (rl *RateLimiter) LimiterCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) limiterFor(appID string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if al, ok := rl.limiters[appID]; ok {
		al.lastAccess = time.Now()
		return al.limiter
	}
	al := &appLimiter{
		limiter:    rate.NewLimiter(rl.config.Rate, rl.config.Burst),
		lastAccess: time.Now(),
	}
	rl.limiters[appID] = al
	return al.limiter
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup drops buckets idle for more than two sweep intervals.
func (rl *RateLimiter) cleanup(now time.Time) {
	ttl := rl.config.CleanupInterval * 2
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for appID, al := range rl.limiters {
		if now.Sub(al.lastAccess) > ttl {
			delete(rl.limiters, appID)
		}
	}
}

func retryAfterSeconds(r rate.Limit) int {
	if r <= 0 || r == rate.Inf {
		return 1
	}
	sec := int(math.Ceil(1.0 / float64(r)))
	if sec < 1 {
		return 1
	}
	return sec
}
