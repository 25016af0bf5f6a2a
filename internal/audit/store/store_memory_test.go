package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consentledger/internal/audit/models"
	id "consentledger/pkg/domain"
	"consentledger/pkg/platform/sentinel"
)

func newEntry(userID string, at time.Time) *models.AccessLogEntry {
	return &models.AccessLogEntry{
		ID: id.NewAccessLogID(), UserID: userID, AppID: "app1", DataType: "email", Purpose: "marketing",
		Result: models.ResultAllowed, CreatedAt: at,
	}
}

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	older := newEntry("u1", base)
	newer := newEntry("u1", base.Add(time.Second))
	sameInstant := newEntry("u1", base.Add(time.Second))
	require.NoError(t, s.Append(ctx, older))
	require.NoError(t, s.Append(ctx, newer))
	require.NoError(t, s.Append(ctx, sameInstant))
	require.NoError(t, s.Append(ctx, newEntry("u2", base)))

	t.Run("newest first, later append wins ties", func(t *testing.T) {
		list, err := s.ListByUser(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, sameInstant.ID, list[0].ID)
		assert.Equal(t, newer.ID, list[1].ID)
		assert.Equal(t, older.ID, list[2].ID)
	})

	t.Run("duplicate id conflicts and leaves the trail unchanged", func(t *testing.T) {
		dup := newEntry("u2", base)
		dup.ID = older.ID
		assert.ErrorIs(t, s.Append(ctx, dup), sentinel.ErrConflict)

		list, err := s.ListByUser(ctx, "u2")
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("returned rows are copies", func(t *testing.T) {
		list, err := s.ListByUser(ctx, "u2")
		require.NoError(t, err)
		list[0].Result = models.ResultDenied
		again, err := s.ListByUser(ctx, "u2")
		require.NoError(t, err)
		assert.Equal(t, models.ResultAllowed, again[0].Result)
	})

	t.Run("unknown user is empty, not nil", func(t *testing.T) {
		list, err := s.ListByUser(ctx, "nobody")
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})
}

func TestInMemoryStoreManyAppends(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	const n = 5000
	for i := range n {
		user := "u1"
		if i%2 == 1 {
			user = "u2"
		}
		require.NoError(t, s.Append(ctx, newEntry(user, base.Add(time.Duration(i)*time.Millisecond))))
	}

	list, err := s.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, n/2)
	assert.True(t, list[0].CreatedAt.After(list[len(list)-1].CreatedAt))
}
