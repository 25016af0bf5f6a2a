package cache

import (
	"context"
	"log/slog"
	"time"

	"consentledger/pkg/platform/circuit"
)

// Backend is the cache contract shared by Memory, Redis and Guarded.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, appID string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Guarded stops calling an unhealthy backend while its breaker is open. Reads
// and writes become misses and no-ops, so authentication goes to the store.
// Deletes are always attempted.
type Guarded struct {
	next    Backend
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewGuarded(next Backend, breaker *circuit.Breaker, logger *slog.Logger) *Guarded {
	return &Guarded{next: next, breaker: breaker, logger: logger}
}

func (g *Guarded) Get(ctx context.Context, key string) (string, bool, error) {
	if !g.breaker.Allow() {
		return "", false, nil
	}
	appID, ok, err := g.next.Get(ctx, key)
	g.record(ctx, err)
	return appID, ok, err
}

func (g *Guarded) Set(ctx context.Context, key, appID string, ttl time.Duration) error {
	if !g.breaker.Allow() {
		return nil
	}
	err := g.next.Set(ctx, key, appID, ttl)
	g.record(ctx, err)
	return err
}

func (g *Guarded) Delete(ctx context.Context, key string) error {
	err := g.next.Delete(ctx, key)
	g.record(ctx, err)
	return err
}

func (g *Guarded) record(ctx context.Context, err error) {
	if err != nil {
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.logger.WarnContext(ctx, "credential cache circuit opened", "cache", g.breaker.Name(), "error", err)
		}
		return
	}
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "credential cache circuit closed", "cache", g.breaker.Name())
	}
}
