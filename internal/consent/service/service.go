package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"consentledger/internal/consent/metrics"
	"consentledger/internal/consent/models"
	"consentledger/internal/storage"
	id "consentledger/pkg/domain"
	dErrors "consentledger/pkg/domain-errors"
	audit "consentledger/pkg/platform/audit"
	"consentledger/pkg/platform/sentinel"
	"consentledger/pkg/platform/tx"
	"consentledger/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,AuditPublisher

// Store is the persistence port for consents. Implementations return
// sentinel errors; the service translates them.
type Store interface {
	Create(ctx context.Context, consent *models.Consent) error
	FindByID(ctx context.Context, consentID id.ConsentID) (*models.Consent, error)
	Revoke(ctx context.Context, consentID id.ConsentID, now time.Time) (*models.Consent, bool, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Consent, error)
	FindActive(ctx context.Context, userID, appID, dataType, purpose string) (*models.Consent, error)
}

// AuditPublisher emits lifecycle events fail-closed.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.ComplianceEvent) error
}

// Service owns the consent lifecycle: grant, revoke, list and the active
// lookup the access evaluator depends on.
type Service struct {
	store        Store
	tx           tx.Runner
	auditor      AuditPublisher
	logger       *slog.Logger
	metrics      *metrics.Metrics
	storeTimeout time.Duration
}

type Option func(*Service)

func WithTxRunner(r tx.Runner) Option {
	return func(s *Service) { s.tx = r }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithStoreTimeout bounds each store call that has no caller deadline.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) { s.storeTimeout = d }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:        store,
		tx:           tx.PassThrough{},
		logger:       slog.Default(),
		storeTimeout: storage.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateConsent records a new active grant. The consent row and its
// consent_granted event commit together or not at all.
func (s *Service) CreateConsent(ctx context.Context, req models.GrantRequest) (*models.Consent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	consent, err := models.NewConsent(id.NewConsentID(), req.UserID, req.AppID, req.DataType, req.Purpose, req.ExpiresAt, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, dErrors.MessageOf(err))
	}

	ctx, cancel := storage.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	start := time.Now()
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, consent); err != nil {
			return err
		}
		return s.emit(ctx, audit.EventConsentGranted, consent)
	})
	s.metrics.ObserveStore("create", start)
	if err != nil {
		return nil, s.translate(ctx, err, "create consent")
	}

	s.metrics.IncrementGranted()
	s.logger.InfoContext(ctx, "consent granted",
		"consent_id", consent.ID.String(),
		"user_id", consent.UserID,
		"app_id", consent.AppID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return consent, nil
}

// RevokeConsent moves a consent to revoked. Revoking an already revoked
// consent succeeds and returns it unchanged without a second event.
func (s *Service) RevokeConsent(ctx context.Context, rawID string) (*models.Consent, error) {
	consentID, err := id.ParseConsentID(rawID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, dErrors.MessageOf(err))
	}

	ctx, cancel := storage.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	now := requestcontext.Now(ctx)
	var (
		consent *models.Consent
		changed bool
	)
	start := time.Now()
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		consent, changed, err = s.store.Revoke(ctx, consentID, now)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		return s.emit(ctx, audit.EventConsentRevoked, consent)
	})
	s.metrics.ObserveStore("revoke", start)
	if err != nil {
		return nil, s.translate(ctx, err, "revoke consent")
	}

	if changed {
		s.metrics.IncrementRevoked()
		s.logger.InfoContext(ctx, "consent revoked",
			"consent_id", consent.ID.String(),
			"user_id", consent.UserID,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return consent, nil
}

// ListConsentsForUser returns every consent of a user, newest first. An
// unknown user yields an empty list.
func (s *Service) ListConsentsForUser(ctx context.Context, userID string) ([]*models.Consent, error) {
	userID, err := id.ParseLabel("user_id", userID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := storage.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	start := time.Now()
	consents, err := s.store.ListByUser(ctx, userID)
	s.metrics.ObserveStore("list", start)
	if err != nil {
		return nil, s.translate(ctx, err, "list consents")
	}
	return consents, nil
}

// FindActiveConsent returns the most recently created active consent for the
// exact tuple, or nil when there is none. Expiry is not checked here.
func (s *Service) FindActiveConsent(ctx context.Context, userID, appID, dataType, purpose string) (*models.Consent, error) {
	ctx, cancel := storage.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	start := time.Now()
	consent, err := s.store.FindActive(ctx, userID, appID, dataType, purpose)
	s.metrics.ObserveStore("find_active", start)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, s.translate(ctx, err, "find active consent")
	}
	return consent, nil
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, c *models.Consent) error {
	if s.auditor == nil {
		return nil
	}
	err := s.auditor.Emit(ctx, audit.ComplianceEvent{
		Timestamp: requestcontext.Now(ctx),
		Action:    action,
		UserID:    c.UserID,
		AppID:     c.AppID,
		ConsentID: c.ID.String(),
		DataType:  c.DataType,
		Purpose:   c.Purpose,
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeAuditWriteFailed, "failed to record consent event")
	}
	return nil
}

func (s *Service) translate(ctx context.Context, err error, op string) error {
	translated := storage.Translate(ctx, err, op, "Consent not found")
	if !dErrors.HasCode(translated, dErrors.CodeNotFound) {
		s.logger.ErrorContext(ctx, op+" failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return translated
}
