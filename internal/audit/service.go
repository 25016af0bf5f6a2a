package audit

import (
	"context"
	"log/slog"
	"time"

	"consentledger/internal/audit/metrics"
	"consentledger/internal/audit/models"
	"consentledger/internal/storage"
	id "consentledger/pkg/domain"
	dErrors "consentledger/pkg/domain-errors"
	"consentledger/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store

// Store persists access log entries. There is deliberately no update or
// delete method.
type Store interface {
	Append(ctx context.Context, entry *models.AccessLogEntry) error
	ListByUser(ctx context.Context, userID string) ([]*models.AccessLogEntry, error)
}

// Service is the append-only access trail.
type Service struct {
	store        Store
	logger       *slog.Logger
	metrics      *metrics.Metrics
	storeTimeout time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) { s.storeTimeout = d }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:        store,
		logger:       slog.Default(),
		storeTimeout: storage.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record appends one entry. Missing id, timestamp and request id are filled
// from the request context. Any write failure is an audit_write_failed error.
func (s *Service) Record(ctx context.Context, entry *models.AccessLogEntry) error {
	if entry != nil {
		if entry.ID.IsNil() {
			entry.ID = id.NewAccessLogID()
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = requestcontext.Now(ctx).UTC()
		}
		if entry.RequestID == "" {
			entry.RequestID = requestcontext.RequestID(ctx)
		}
	}
	if err := entry.Check(); err != nil {
		return err
	}

	ctx, cancel := storage.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.store.Append(ctx, entry); err != nil {
		s.metrics.IncrementFailure()
		s.logger.ErrorContext(ctx, "failed to append access log",
			"error", err,
			"user_id", entry.UserID,
			"app_id", entry.AppID,
			"result", string(entry.Result),
			"request_id", entry.RequestID,
		)
		return dErrors.Wrap(err, dErrors.CodeAuditWriteFailed, "failed to record access decision")
	}
	s.metrics.IncrementWritten(string(entry.Result))
	return nil
}

// ListLogsForUser returns a user's access trail, newest first.
func (s *Service) ListLogsForUser(ctx context.Context, userID string) ([]*models.AccessLogEntry, error) {
	userID, err := id.ParseLabel("user_id", userID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := storage.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	entries, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list access logs",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, storage.Translate(ctx, err, "list access logs", "Access logs not found")
	}
	return entries, nil
}
