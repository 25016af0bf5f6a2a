package access

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"consentledger/internal/access/metrics"
	auditmodels "consentledger/internal/audit/models"
	consentmodels "consentledger/internal/consent/models"
	dErrors "consentledger/pkg/domain-errors"
	"consentledger/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks ConsentFinder,AuditRecorder

// ConsentFinder returns the most recent active consent for the exact tuple,
// or nil when there is none.
type ConsentFinder interface {
	FindActiveConsent(ctx context.Context, userID, appID, dataType, purpose string) (*consentmodels.Consent, error)
}

// AuditRecorder appends one row to the access trail.
type AuditRecorder interface {
	Record(ctx context.Context, entry *auditmodels.AccessLogEntry) error
}

// Request identifies the access being checked. AppID is the authenticated
// application, never a value taken from the request body.
type Request struct {
	UserID   string
	AppID    string
	DataType string
	Purpose  string
}

// Service answers whether an application may use a user's data right now.
type Service struct {
	consents ConsentFinder
	auditor  AuditRecorder
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func NewService(consents ConsentFinder, auditor AuditRecorder, opts ...Option) *Service {
	s := &Service{
		consents: consents,
		auditor:  auditor,
		logger:   slog.Default(),
		tracer:   otel.Tracer("consentledger/access"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate looks up the active consent, decides, and records exactly one
// access log row before returning. A lookup failure returns an error with no
// decision and no row. A failed log write returns the decision together with
// an audit_write_failed error; callers must not act on that decision.
func (s *Service) Evaluate(ctx context.Context, req Request) (Decision, error) {
	ctx, span := s.tracer.Start(ctx, "access.Evaluate", trace.WithAttributes(
		attribute.String("app_id", req.AppID),
		attribute.String("data_type", req.DataType),
		attribute.String("purpose", req.Purpose),
	))
	defer span.End()
	start := time.Now()

	if req.UserID == "" || req.AppID == "" || req.DataType == "" || req.Purpose == "" {
		err := dErrors.New(dErrors.CodeValidation, "user_id, app_id, data_type and purpose are required")
		span.SetStatus(codes.Error, "invalid request")
		return Decision{}, err
	}

	now := requestcontext.Now(ctx)
	consent, err := s.consents.FindActiveConsent(ctx, req.UserID, req.AppID, req.DataType, req.Purpose)
	if err != nil {
		s.metrics.IncrementLookupFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, "consent lookup failed")
		return Decision{}, err
	}

	decision := Decide(consent, now)
	span.SetAttributes(attribute.Bool("allowed", decision.Allowed))

	entry := &auditmodels.AccessLogEntry{
		UserID:    req.UserID,
		AppID:     req.AppID,
		DataType:  req.DataType,
		Purpose:   req.Purpose,
		Result:    auditmodels.ResultAllowed,
		CreatedAt: now.UTC(),
	}
	if !decision.Allowed {
		reason := decision.Reason
		entry.Result = auditmodels.ResultDenied
		entry.Reason = &reason
	}

	if err := s.auditor.Record(ctx, entry); err != nil {
		s.metrics.IncrementAuditFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, "access log write failed")
		if !dErrors.HasCode(err, dErrors.CodeAuditWriteFailed) {
			err = dErrors.Wrap(err, dErrors.CodeAuditWriteFailed, "failed to record access decision")
		}
		return decision, err
	}

	s.metrics.IncrementOutcome(string(entry.Result), decision.Reason)
	s.metrics.ObserveEvaluateLatency(time.Since(start))
	s.logger.InfoContext(ctx, "access evaluated",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", req.UserID,
		"app_id", req.AppID,
		"data_type", req.DataType,
		"purpose", req.Purpose,
		"allowed", decision.Allowed,
		"reason", decision.Reason,
	)
	return decision, nil
}
