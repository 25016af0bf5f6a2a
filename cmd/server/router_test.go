package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	auditmodels "consentledger/internal/audit/models"
	consentmodels "consentledger/internal/consent/models"
	"consentledger/internal/platform/config"
	"consentledger/pkg/testutil"
)

type RouterSuite struct {
	suite.Suite
	ctx    context.Context
	comps  *components
	router http.Handler
	secret string
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func testConfig() config.Server {
	return config.Server{
		Addr:         ":0",
		StoreDriver:  config.DriverMemory,
		StoreTimeout: time.Second,
		Auth: config.AuthConfig{
			SecretPepper:       "test-pepper",
			CredentialCacheTTL: time.Minute,
		},
		Limits: config.RateLimitConfig{PerSecond: 100, Burst: 100},
	}
}

func (s *RouterSuite) SetupTest() {
	s.ctx = context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	d, err := openDeps(s.ctx, testConfig(), log)
	s.Require().NoError(err)

	s.comps = newComponents(testConfig(), log, d, registry{})
	s.T().Cleanup(func() { s.comps.Close(context.Background()) })
	s.router = newRouter(s.comps, d, log)

	_, secret, err := s.comps.gate.Register(s.ctx, "app1", "Demo App")
	s.Require().NoError(err)
	s.secret = secret
}

func (s *RouterSuite) dataAccess(secret string, userID string) *http.Request {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/data-access", map[string]string{
		"user_id": userID, "data_type": "email", "purpose": "marketing",
	})
	if secret != "" {
		req = testutil.WithBearer(req, secret)
	}
	return req
}

func (s *RouterSuite) grant(userID string) *consentmodels.Consent {
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/consent", map[string]string{
		"user_id": userID, "app_id": "app1", "data_type": "email", "purpose": "marketing",
	}))
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	resp := testutil.UnmarshalResponse[consentmodels.MutationResponse](s.T(), rr)
	return resp.Consent
}

func (s *RouterSuite) TestConsentLifecycleDrivesAccessDecisions() {
	rr := testutil.DoRequest(s.router, s.dataAccess(s.secret, "u1"))
	testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
	s.JSONEq(`{"allowed":false,"reason":"No valid consent"}`, rr.Body.String())

	consent := s.grant("u1")

	rr = testutil.DoRequest(s.router, s.dataAccess(s.secret, "u1"))
	testutil.AssertStatusOK(s.T(), rr)
	s.JSONEq(`{"allowed":true,"message":"Access granted"}`, rr.Body.String())

	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/consent/revoke",
		map[string]string{"consent_id": consent.ID.String()}))
	testutil.AssertStatusOK(s.T(), rr)

	rr = testutil.DoRequest(s.router, s.dataAccess(s.secret, "u1"))
	testutil.AssertDenied(s.T(), rr, "No valid consent")

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/logs/u1"))
	testutil.AssertStatusOK(s.T(), rr)
	logs := testutil.UnmarshalResponse[auditmodels.ListResponse](s.T(), rr)
	s.Require().Len(logs.Logs, 3)
	s.Equal(auditmodels.ResultDenied, logs.Logs[0].Result)
	s.Equal(auditmodels.ResultAllowed, logs.Logs[1].Result)
	for _, l := range logs.Logs {
		s.Equal("app1", l.AppID)
	}

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/consents/u1"))
	testutil.AssertStatusOK(s.T(), rr)
	list := testutil.UnmarshalResponse[consentmodels.ListResponse](s.T(), rr)
	s.Require().Len(list.Consents, 1)
	s.Equal(consentmodels.StatusRevoked, list.Consents[0].Status)
}

func (s *RouterSuite) TestDataAccessRequiresCredential() {
	rr := testutil.DoRequest(s.router, s.dataAccess("", "u1"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "missing_credential")

	rr = testutil.DoRequest(s.router, s.dataAccess("cl_wrong", "u1"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "invalid_credential")

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/logs/u1"))
	s.JSONEq(`{"logs":[]}`, rr.Body.String())
}

func (s *RouterSuite) TestBodyAppIDCannotImpersonate() {
	_, otherSecret, err := s.comps.gate.Register(s.ctx, "app2", "Other App")
	s.Require().NoError(err)
	s.grant("u1")

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/data-access", map[string]string{
		"user_id": "u1", "app_id": "app1", "data_type": "email", "purpose": "marketing",
	})
	rr := testutil.DoRequest(s.router, testutil.WithBearer(req, otherSecret))
	testutil.AssertStatus(s.T(), rr, http.StatusForbidden)

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/logs/u1"))
	logs := testutil.UnmarshalResponse[auditmodels.ListResponse](s.T(), rr)
	s.Require().Len(logs.Logs, 1)
	s.Equal("app2", logs.Logs[0].AppID)
}

func (s *RouterSuite) TestPlatformRoutes() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/"))
	testutil.AssertStatusOK(s.T(), rr)
	s.Contains(rr.Body.String(), "consentledger")

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/health"))
	testutil.AssertStatusOK(s.T(), rr)
	s.JSONEq(`{"status":"ok"}`, rr.Body.String())
	s.NotEmpty(rr.Header().Get("X-Request-ID"))

	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/consent", "user_id=u1")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("db down") }

func TestHealthReportsUnavailable(t *testing.T) {
	h := healthHandler(failingPinger{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	rr := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/health"))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.JSONEq(t, `{"status":"unavailable"}`, rr.Body.String())
}
