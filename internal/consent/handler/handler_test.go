package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"consentledger/internal/consent/handler/mocks"
	"consentledger/internal/consent/models"
	id "consentledger/pkg/domain"
	dErrors "consentledger/pkg/domain-errors"
	"consentledger/pkg/testutil"
)

type ConsentHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
	now     time.Time
}

func TestConsentHandlerSuite(t *testing.T) {
	suite.Run(t, new(ConsentHandlerSuite))
}

func (s *ConsentHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.now = time.Date(2025, 12, 3, 10, 0, 0, 0, time.UTC)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	New(s.service, logger).Register(s.router)
}

func (s *ConsentHandlerSuite) consent(status models.Status) *models.Consent {
	return &models.Consent{
		ID:        id.NewConsentID(),
		UserID:    "user123",
		AppID:     "app1",
		DataType:  "email",
		Purpose:   "marketing",
		Status:    status,
		CreatedAt: s.now,
	}
}

func (s *ConsentHandlerSuite) TestGrantConsent() {
	s.Run("201 with the created consent", func() {
		created := s.consent(models.StatusActive)
		s.service.EXPECT().CreateConsent(gomock.Any(), models.GrantRequest{
			UserID: "user123", AppID: "app1", DataType: "email", Purpose: "marketing",
		}).Return(created, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/consent", map[string]string{
			"user_id": " user123 ", "app_id": "app1", "data_type": "email", "purpose": "marketing",
		}))

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[models.MutationResponse](s.T(), rr)
		s.Equal(models.MessageConsentGranted, resp.Message)
		s.Equal(created.ID, resp.Consent.ID)
		s.Equal(models.StatusActive, resp.Consent.Status)
		s.Nil(resp.Consent.ExpiresAt)
	})

	s.Run("400 when a field is missing", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/consent", map[string]string{
			"user_id": "user123", "app_id": "app1", "data_type": "email",
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("400 on malformed json", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/consent", `{"user_id":`))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	s.Run("500 when the lifecycle event cannot be written", func() {
		s.service.EXPECT().CreateConsent(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeAuditWriteFailed, "failed to record consent event"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/consent", map[string]string{
			"user_id": "user123", "app_id": "app1", "data_type": "email", "purpose": "marketing",
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, string(dErrors.CodeAuditWriteFailed))
	})
}

func (s *ConsentHandlerSuite) TestRevokeConsent() {
	s.Run("200 with the revoked consent", func() {
		revoked := s.consent(models.StatusRevoked)
		revokedAt := s.now.Add(time.Hour)
		revoked.RevokedAt = &revokedAt
		s.service.EXPECT().RevokeConsent(gomock.Any(), revoked.ID.String()).Return(revoked, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/consent/revoke", map[string]string{
			"consent_id": revoked.ID.String(),
		}))

		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "message", models.MessageConsentRevoked)
		resp := testutil.UnmarshalResponse[models.MutationResponse](s.T(), rr)
		s.Equal(models.StatusRevoked, resp.Consent.Status)
		s.Require().NotNil(resp.Consent.RevokedAt)
	})

	s.Run("404 for an unknown consent", func() {
		s.service.EXPECT().RevokeConsent(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "Consent not found"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/consent/revoke", map[string]string{
			"consent_id": id.NewConsentID().String(),
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
	})

	s.Run("400 for a malformed id without calling the service", func() {
		for _, body := range []map[string]string{{}, {"consent_id": "abc"}} {
			rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/consent/revoke", body))
			testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
		}
	})
}

func (s *ConsentHandlerSuite) TestListConsents() {
	s.Run("200 with consents", func() {
		list := []*models.Consent{s.consent(models.StatusRevoked), s.consent(models.StatusActive)}
		s.service.EXPECT().ListConsentsForUser(gomock.Any(), "user123").Return(list, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/consents/user123"))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[models.ListResponse](s.T(), rr)
		s.Len(resp.Consents, 2)
	})

	s.Run("unknown user gets an empty array", func() {
		s.service.EXPECT().ListConsentsForUser(gomock.Any(), "nobody").Return(nil, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/consents/nobody"))
		testutil.AssertStatusOK(s.T(), rr)
		s.JSONEq(`{"consents":[]}`, rr.Body.String())
	})

	s.Run("store timeout maps to 504", func() {
		s.service.EXPECT().ListConsentsForUser(gomock.Any(), "user123").
			DoAndReturn(func(context.Context, string) ([]*models.Consent, error) {
				return nil, dErrors.Wrap(context.DeadlineExceeded, dErrors.CodeTimeout, "list consents timed out")
			})

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/consents/user123"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusGatewayTimeout, string(dErrors.CodeTimeout))
	})
}
