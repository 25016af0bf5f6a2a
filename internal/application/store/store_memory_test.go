package store

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consentledger/internal/application/models"
	"consentledger/pkg/platform/sentinel"
)

func newApp(t *testing.T, appID string, fill byte) *models.Application {
	t.Helper()
	app, err := models.NewApplication(appID, "Demo", bytes.Repeat([]byte{fill}, models.DigestSize), time.Now())
	require.NoError(t, err)
	return app
}

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	app := newApp(t, "app1", 1)
	require.NoError(t, s.Create(ctx, app))

	t.Run("lookup by id and digest", func(t *testing.T) {
		byID, err := s.FindByID(ctx, "app1")
		require.NoError(t, err)
		byDigest, err := s.FindByDigest(ctx, app.SecretDigest)
		require.NoError(t, err)
		assert.Equal(t, byID, byDigest)
	})

	t.Run("app id and digest are unique", func(t *testing.T) {
		assert.ErrorIs(t, s.Create(ctx, newApp(t, "app1", 2)), sentinel.ErrConflict)
		assert.ErrorIs(t, s.Create(ctx, newApp(t, "app2", 1)), sentinel.ErrConflict)
	})

	t.Run("deactivate once", func(t *testing.T) {
		got, changed, err := s.Deactivate(ctx, "app1", time.Now())
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, models.StatusInactive, got.Status)

		_, changed, err = s.Deactivate(ctx, "app1", time.Now())
		require.NoError(t, err)
		assert.False(t, changed)

		_, _, err = s.Deactivate(ctx, "ghost", time.Now())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("unknown digest", func(t *testing.T) {
		_, err := s.FindByDigest(ctx, bytes.Repeat([]byte{9}, models.DigestSize))
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
