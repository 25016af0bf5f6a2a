//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"consentledger/internal/audit/models"
	"consentledger/internal/audit/store"
	id "consentledger/pkg/domain"
	"consentledger/pkg/platform/sentinel"
	"consentledger/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	ctx      context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.ctx = context.Background()
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(s.ctx))
}

func (s *PostgresStoreSuite) append(result models.Result, reason *string, at time.Time) *models.AccessLogEntry {
	e := &models.AccessLogEntry{
		ID: id.NewAccessLogID(), UserID: "u1", AppID: "app1", DataType: "email", Purpose: "marketing",
		Result: result, Reason: reason, RequestID: "req-1", CreatedAt: at.UTC().Truncate(time.Microsecond),
	}
	s.Require().NoError(s.store.Append(s.ctx, e))
	return e
}

func (s *PostgresStoreSuite) TestAppendAndList() {
	reason := "Consent expired"
	base := time.Now().Add(-time.Minute)
	denied := s.append(models.ResultDenied, &reason, base)
	allowed := s.append(models.ResultAllowed, nil, base.Add(time.Second))

	list, err := s.store.ListByUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(allowed.ID, list[0].ID)
	s.Nil(list[0].Reason)
	s.Equal(denied.ID, list[1].ID)
	s.Require().NotNil(list[1].Reason)
	s.Equal(reason, *list[1].Reason)
	s.Equal("req-1", list[1].RequestID)

	s.ErrorIs(s.store.Append(s.ctx, denied), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestReasonMustMatchResult() {
	err := s.store.Append(s.ctx, &models.AccessLogEntry{
		ID: id.NewAccessLogID(), UserID: "u1", AppID: "app1", DataType: "email", Purpose: "marketing",
		Result: models.ResultDenied, CreatedAt: time.Now(),
	})
	s.Error(err)
}

func (s *PostgresStoreSuite) TestTableIsAppendOnly() {
	e := s.append(models.ResultAllowed, nil, time.Now())

	_, err := s.postgres.DB.ExecContext(s.ctx, `UPDATE access_logs SET result = 'denied' WHERE id = $1`, uuid.UUID(e.ID))
	s.Error(err)
	_, err = s.postgres.DB.ExecContext(s.ctx, `DELETE FROM access_logs WHERE id = $1`, uuid.UUID(e.ID))
	s.Error(err)
}
