package access

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"consentledger/internal/access/mocks"
	"consentledger/internal/audit"
	auditmodels "consentledger/internal/audit/models"
	auditstore "consentledger/internal/audit/store"
	consentmodels "consentledger/internal/consent/models"
	consentservice "consentledger/internal/consent/service"
	consentstore "consentledger/internal/consent/store"
	id "consentledger/pkg/domain"
	dErrors "consentledger/pkg/domain-errors"
	"consentledger/pkg/requestcontext"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// EvaluatorSuite runs the evaluator against the real in-memory consent and
// access log services.
type EvaluatorSuite struct {
	suite.Suite
	ctx      context.Context
	now      time.Time
	consents *consentservice.Service
	logs     *audit.Service
	svc      *Service
}

func TestEvaluatorSuite(t *testing.T) {
	suite.Run(t, new(EvaluatorSuite))
}

func (s *EvaluatorSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.consents = consentservice.New(consentstore.NewInMemoryStore(), consentservice.WithLogger(discardLogger()))
	s.logs = audit.NewService(auditstore.NewInMemoryStore(), audit.WithLogger(discardLogger()))
	s.svc = NewService(s.consents, s.logs, WithLogger(discardLogger()))
}

func (s *EvaluatorSuite) grant(userID string, expiresAt *time.Time) *consentmodels.Consent {
	c, err := s.consents.CreateConsent(s.ctx, consentmodels.GrantRequest{
		UserID: userID, AppID: "app1", DataType: "email", Purpose: "marketing", ExpiresAt: expiresAt,
	})
	s.Require().NoError(err)
	return c
}

func (s *EvaluatorSuite) request(userID string) Request {
	return Request{UserID: userID, AppID: "app1", DataType: "email", Purpose: "marketing"}
}

func (s *EvaluatorSuite) logsFor(userID string) []*auditmodels.AccessLogEntry {
	logs, err := s.logs.ListLogsForUser(s.ctx, userID)
	s.Require().NoError(err)
	return logs
}

func (s *EvaluatorSuite) TestActiveConsentAllows() {
	s.grant("u1", nil)

	d, err := s.svc.Evaluate(s.ctx, s.request("u1"))
	s.Require().NoError(err)
	s.True(d.Allowed)
	s.Empty(d.Reason)

	logs := s.logsFor("u1")
	s.Require().Len(logs, 1)
	s.Equal(auditmodels.ResultAllowed, logs[0].Result)
	s.Nil(logs[0].Reason)
	s.Equal(s.now, logs[0].CreatedAt)
}

func (s *EvaluatorSuite) TestNoConsentDenies() {
	d, err := s.svc.Evaluate(s.ctx, s.request("u1"))
	s.Require().NoError(err)
	s.Equal(Decision{Reason: ReasonNoValidConsent}, d)

	logs := s.logsFor("u1")
	s.Require().Len(logs, 1)
	s.Equal(auditmodels.ResultDenied, logs[0].Result)
	s.Require().NotNil(logs[0].Reason)
	s.Equal(ReasonNoValidConsent, *logs[0].Reason)
}

func (s *EvaluatorSuite) TestExpiredConsentDenies() {
	yesterday := s.now.Add(-24 * time.Hour)
	s.grant("u1", &yesterday)

	d, err := s.svc.Evaluate(s.ctx, s.request("u1"))
	s.Require().NoError(err)
	s.Equal(Decision{Reason: ReasonConsentExpired}, d)
	s.Equal(ReasonConsentExpired, *s.logsFor("u1")[0].Reason)
}

func (s *EvaluatorSuite) TestRevokeThenEvaluateDenies() {
	c := s.grant("u1", nil)
	_, err := s.consents.RevokeConsent(s.ctx, c.ID.String())
	s.Require().NoError(err)

	d, err := s.svc.Evaluate(s.ctx, s.request("u1"))
	s.Require().NoError(err)
	s.Equal(Decision{Reason: ReasonNoValidConsent}, d)
}

func (s *EvaluatorSuite) TestRegrantAfterRevokeAllows() {
	c := s.grant("u1", nil)
	_, err := s.consents.RevokeConsent(s.ctx, c.ID.String())
	s.Require().NoError(err)
	s.grant("u1", nil)

	d, err := s.svc.Evaluate(s.ctx, s.request("u1"))
	s.Require().NoError(err)
	s.True(d.Allowed)
}

func (s *EvaluatorSuite) TestTupleMustMatchExactly() {
	s.grant("u1", nil)

	for _, req := range []Request{
		{UserID: "u1", AppID: "app2", DataType: "email", Purpose: "marketing"},
		{UserID: "u1", AppID: "app1", DataType: "phone", Purpose: "marketing"},
		{UserID: "u1", AppID: "app1", DataType: "email", Purpose: "analytics"},
	} {
		d, err := s.svc.Evaluate(s.ctx, req)
		s.Require().NoError(err)
		s.False(d.Allowed, req)
	}
	s.Len(s.logsFor("u1"), 3)
}

func (s *EvaluatorSuite) TestEveryEvaluationLogsOnce() {
	s.grant("u1", nil)
	const calls = 25

	var wg sync.WaitGroup
	for range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := s.svc.Evaluate(s.ctx, s.request("u1"))
			s.NoError(err)
			s.True(d.Allowed)
		}()
	}
	wg.Wait()
	s.Len(s.logsFor("u1"), calls)
}

func (s *EvaluatorSuite) TestIncompleteRequestIsRejected() {
	_, err := s.svc.Evaluate(s.ctx, Request{UserID: "u1", DataType: "email", Purpose: "marketing"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Empty(s.logsFor("u1"))
}

func TestEvaluateLookupFailureWritesNoLog(t *testing.T) {
	ctrl := gomock.NewController(t)
	finder := mocks.NewMockConsentFinder(ctrl)
	recorder := mocks.NewMockAuditRecorder(ctrl)
	finder.EXPECT().FindActiveConsent(gomock.Any(), "u1", "app1", "email", "marketing").
		Return(nil, dErrors.New(dErrors.CodeTimeout, "find active consent timed out"))

	svc := NewService(finder, recorder, WithLogger(discardLogger()))
	_, err := svc.Evaluate(context.Background(), Request{UserID: "u1", AppID: "app1", DataType: "email", Purpose: "marketing"})
	if !dErrors.HasCode(err, dErrors.CodeTimeout) {
		t.Fatalf("expected store_timeout, got %v", err)
	}
}

func TestEvaluateAuditFailureFailsClosed(t *testing.T) {
	ctrl := gomock.NewController(t)
	finder := mocks.NewMockConsentFinder(ctrl)
	recorder := mocks.NewMockAuditRecorder(ctrl)

	consent, err := consentmodels.NewConsent(id.NewConsentID(), "u1", "app1", "email", "marketing", nil, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	finder.EXPECT().FindActiveConsent(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(consent, nil)
	recorder.EXPECT().Record(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))

	svc := NewService(finder, recorder, WithLogger(discardLogger()))
	d, err := svc.Evaluate(context.Background(), Request{UserID: "u1", AppID: "app1", DataType: "email", Purpose: "marketing"})
	if !dErrors.HasCode(err, dErrors.CodeAuditWriteFailed) {
		t.Fatalf("expected audit_write_failed, got %v", err)
	}
	if !d.Allowed {
		t.Fatalf("the computed decision is still returned to the caller")
	}
}
