package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consentledger/internal/audit"
	"consentledger/internal/audit/models"
	"consentledger/internal/audit/store"
	dErrors "consentledger/pkg/domain-errors"
	"consentledger/pkg/requestcontext"
	"consentledger/pkg/testutil"
)

type failingLister struct{}

func (failingLister) ListLogsForUser(context.Context, string) ([]*models.AccessLogEntry, error) {
	return nil, dErrors.Wrap(errors.New("dial tcp: refused"), dErrors.CodeUnavailable, "list access logs failed")
}

func newRouter(svc Service) chi.Router {
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

func TestListLogs(t *testing.T) {
	svc := audit.NewService(store.NewInMemoryStore(), audit.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	reason := "No valid consent"

	require.NoError(t, svc.Record(requestcontext.WithTime(context.Background(), base), &models.AccessLogEntry{
		UserID: "u1", AppID: "app1", DataType: "email", Purpose: "marketing",
		Result: models.ResultDenied, Reason: &reason,
	}))
	require.NoError(t, svc.Record(requestcontext.WithTime(context.Background(), base.Add(time.Minute)), &models.AccessLogEntry{
		UserID: "u1", AppID: "app1", DataType: "email", Purpose: "marketing",
		Result: models.ResultAllowed,
	}))

	router := newRouter(svc)

	t.Run("newest first with null reason for allowed", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/logs/u1"))
		testutil.AssertStatusOK(t, rr)

		resp := testutil.UnmarshalResponse[models.ListResponse](t, rr)
		require.Len(t, resp.Logs, 2)
		assert.Equal(t, models.ResultAllowed, resp.Logs[0].Result)
		assert.Nil(t, resp.Logs[0].Reason)
		assert.Equal(t, models.ResultDenied, resp.Logs[1].Result)
		require.NotNil(t, resp.Logs[1].Reason)
		assert.Equal(t, reason, *resp.Logs[1].Reason)
		assert.Contains(t, rr.Body.String(), `"reason":null`)
	})

	t.Run("unknown user gets an empty array", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/logs/nobody"))
		testutil.AssertStatusOK(t, rr)
		assert.JSONEq(t, `{"logs":[]}`, rr.Body.String())
	})

	t.Run("store outage maps to 503", func(t *testing.T) {
		rr := testutil.DoRequest(newRouter(failingLister{}), testutil.NewRequest(t, http.MethodGet, "/logs/u1"))
		testutil.AssertStatusAndError(t, rr, http.StatusServiceUnavailable, string(dErrors.CodeUnavailable))
	})
}
