package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"consentledger/internal/consent/models"
	id "consentledger/pkg/domain"
	"consentledger/pkg/platform/sentinel"
)

type ConsentStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	now   time.Time
}

func (s *ConsentStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestConsentStoreSuite(t *testing.T) {
	suite.Run(t, new(ConsentStoreSuite))
}

func (s *ConsentStoreSuite) grant(userID, appID, dataType, purpose string, createdAt time.Time) *models.Consent {
	c, err := models.NewConsent(id.NewConsentID(), userID, appID, dataType, purpose, nil, createdAt)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, c))
	return c
}

func (s *ConsentStoreSuite) TestCreateAndFind() {
	c := s.grant("u1", "app1", "email", "marketing", s.now)

	found, err := s.store.FindByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(c, found)

	s.Run("returns a copy", func() {
		found.Status = models.StatusRevoked
		again, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusActive, again.Status)
	})

	s.Run("duplicate id conflicts", func() {
		s.ErrorIs(s.store.Create(s.ctx, c), sentinel.ErrConflict)
	})

	s.Run("unknown id is not found", func() {
		_, err := s.store.FindByID(s.ctx, id.NewConsentID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *ConsentStoreSuite) TestRevoke() {
	c := s.grant("u1", "app1", "email", "marketing", s.now)

	revoked, changed, err := s.store.Revoke(s.ctx, c.ID, s.now.Add(time.Minute))
	s.Require().NoError(err)
	s.True(changed)
	s.Equal(models.StatusRevoked, revoked.Status)
	s.Require().NotNil(revoked.RevokedAt)

	again, changed, err := s.store.Revoke(s.ctx, c.ID, s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.False(changed)
	s.Equal(*revoked.RevokedAt, *again.RevokedAt)

	_, _, err = s.store.Revoke(s.ctx, id.NewConsentID(), s.now)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ConsentStoreSuite) TestFindActive() {
	s.Run("most recent active grant wins", func() {
		s.grant("u1", "app1", "email", "marketing", s.now)
		newest := s.grant("u1", "app1", "email", "marketing", s.now.Add(time.Minute))

		found, err := s.store.FindActive(s.ctx, "u1", "app1", "email", "marketing")
		s.Require().NoError(err)
		s.Equal(newest.ID, found.ID)
	})

	s.Run("ignores revoked grants", func() {
		c := s.grant("u2", "app1", "email", "marketing", s.now)
		_, _, err := s.store.Revoke(s.ctx, c.ID, s.now)
		s.Require().NoError(err)

		_, err = s.store.FindActive(s.ctx, "u2", "app1", "email", "marketing")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("matches the exact tuple", func() {
		s.grant("u3", "app1", "email", "marketing", s.now)

		for _, tuple := range [][4]string{
			{"u3", "app2", "email", "marketing"},
			{"u3", "app1", "phone", "marketing"},
			{"u3", "app1", "email", "analytics"},
			{"U3", "app1", "email", "marketing"},
		} {
			_, err := s.store.FindActive(s.ctx, tuple[0], tuple[1], tuple[2], tuple[3])
			s.ErrorIs(err, sentinel.ErrNotFound, tuple)
		}
	})

	s.Run("does not filter expired grants", func() {
		past := s.now.Add(-time.Hour)
		c, err := models.NewConsent(id.NewConsentID(), "u4", "app1", "email", "marketing", &past, s.now)
		s.Require().NoError(err)
		s.Require().NoError(s.store.Create(s.ctx, c))

		found, err := s.store.FindActive(s.ctx, "u4", "app1", "email", "marketing")
		s.Require().NoError(err)
		s.Equal(c.ID, found.ID)
	})
}

func (s *ConsentStoreSuite) TestListByUser() {
	first := s.grant("u1", "app1", "email", "marketing", s.now)
	second := s.grant("u1", "app2", "phone", "support", s.now.Add(time.Minute))
	s.grant("u2", "app1", "email", "marketing", s.now)

	list, err := s.store.ListByUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(second.ID, list[0].ID)
	s.Equal(first.ID, list[1].ID)

	empty, err := s.store.ListByUser(s.ctx, "nobody")
	s.Require().NoError(err)
	s.NotNil(empty)
	s.Empty(empty)
}

// TestConcurrentRevokeIsLinearized verifies exactly one concurrent revoke
// reports a state change.
func (s *ConsentStoreSuite) TestConcurrentRevokeIsLinearized() {
	c := s.grant("u1", "app1", "email", "marketing", s.now)

	const goroutines = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		changes int
	)
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, changed, err := s.store.Revoke(s.ctx, c.ID, time.Now())
			s.NoError(err)
			if changed {
				mu.Lock()
				changes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.Equal(1, changes)
}

func (s *ConsentStoreSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err := s.store.ListByUser(ctx, "u1")
	s.ErrorIs(err, context.Canceled)
}
