// Package compliance provides a fail-closed publisher for regulatory events.
//
// Events are written to the outbox and the caller blocks until the write
// succeeds. If the write fails an error is returned and the calling operation
// MUST fail. When ctx carries a transaction the event commits with it.
//
// Use for: consent_granted, consent_revoked, application_registered,
// application_deactivated.
package compliance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	audit "consentledger/pkg/platform/audit"
)

// Publisher emits compliance events with fail-closed semantics.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// New creates a compliance publisher.
// The store must be outbox-backed for guaranteed delivery.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit synchronously writes a compliance event to the audit store. Any error,
// including ErrInvalidEvent, means the caller MUST fail its operation.
func (p *Publisher) Emit(ctx context.Context, event audit.ComplianceEvent) error {
	start := time.Now()

	if err := validate(event); err != nil {
		return err
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := p.store.Append(ctx, event.ToEvent()); err != nil {
		p.metrics.IncPersistFailures()
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "CRITICAL: compliance audit failed",
				"action", event.Action,
				"user_id", event.UserID,
				"app_id", event.AppID,
				"error", err,
			)
		}
		return fmt.Errorf("compliance audit persistence failed: %w", err)
	}

	p.metrics.ObservePersistDuration(time.Since(start).Seconds())
	p.metrics.IncEventsEmitted()
	return nil
}

// ErrInvalidEvent marks an event that is missing the subject it describes.
var ErrInvalidEvent = errors.New("invalid compliance event")

// validate checks that each action carries the identifiers an auditor needs
// to reconstruct it: consent events name the user and consent, application
// events name the app.
func validate(e audit.ComplianceEvent) error {
	if e.Action.Category() != audit.CategoryCompliance {
		return fmt.Errorf("%w: %q is not a compliance action", ErrInvalidEvent, e.Action)
	}
	switch e.Action {
	case audit.EventConsentGranted, audit.EventConsentRevoked:
		if e.UserID == "" || e.ConsentID == "" {
			return fmt.Errorf("%w: %s requires user_id and consent_id", ErrInvalidEvent, e.Action)
		}
	case audit.EventApplicationRegistered, audit.EventApplicationDeactivated:
		if e.AppID == "" {
			return fmt.Errorf("%w: %s requires app_id", ErrInvalidEvent, e.Action)
		}
	}
	return nil
}
