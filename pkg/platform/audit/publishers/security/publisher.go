// Package security provides a non-blocking publisher for security events
// (failed authentication, rate limiting). Emit never fails the request; events
// are buffered and flushed to the audit store by Run.
package security

import (
	"context"
	"log/slog"
	"time"

	audit "consentledger/pkg/platform/audit"
)

const (
	defaultFlushInterval = time.Second
	defaultBatchSize     = 256
)

// Publisher buffers security events and flushes them in the background.
type Publisher struct {
	store    audit.Store
	buffer   *ring[audit.SecurityEvent]
	logger   *slog.Logger
	interval time.Duration
}

// New builds a publisher over store with a buffer of the given capacity.
func New(store audit.Store, capacity int, logger *slog.Logger) *Publisher {
	return &Publisher{
		store:    store,
		buffer:   newRing[audit.SecurityEvent](capacity),
		logger:   logger,
		interval: defaultFlushInterval,
	}
}

// Emit buffers the event. It never blocks on the store. When the buffer is
// full the oldest pending event is dropped.
func (p *Publisher) Emit(ctx context.Context, event audit.SecurityEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if p.buffer.push(event) && p.logger != nil {
		p.logger.WarnContext(ctx, "security event buffer full, dropped oldest event",
			"dropped_total", p.buffer.droppedTotal(),
		)
	}
}

// Run flushes the buffer until ctx is done, then performs a final flush with
// a short grace period.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			p.Flush(flushCtx)
			cancel()
			return nil
		case <-ticker.C:
			p.Flush(ctx)
		}
	}
}

// Flush writes every buffered event to the store. Events that fail to persist
// are logged and dropped.
func (p *Publisher) Flush(ctx context.Context) {
	for {
		batch := p.buffer.pop(defaultBatchSize)
		if len(batch) == 0 {
			return
		}
		for _, event := range batch {
			if err := p.store.Append(ctx, event.ToEvent()); err != nil && p.logger != nil {
				p.logger.WarnContext(ctx, "failed to persist security event",
					"action", event.Action,
					"app_id", event.AppID,
					"error", err,
				)
			}
		}
	}
}

// Pending reports how many events wait for the next flush.
func (p *Publisher) Pending() int { return p.buffer.pending() }

// Dropped reports how many events were discarded because the buffer was full.
func (p *Publisher) Dropped() uint64 { return p.buffer.droppedTotal() }
