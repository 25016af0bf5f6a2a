package store

import (
	"context"
	"sync"
	"time"

	"consentledger/internal/application/models"
	"consentledger/internal/application/secrets"
	"consentledger/pkg/platform/sentinel"
)

// InMemoryStore keeps applications in process, indexed by app id and digest.
type InMemoryStore struct {
	mu       sync.RWMutex
	byID     map[string]*models.Application
	byDigest map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:     make(map[string]*models.Application),
		byDigest: make(map[string]string),
	}
}

func (s *InMemoryStore) Create(ctx context.Context, app *models.Application) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := secrets.CacheKey(app.SecretDigest)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[app.AppID]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.byDigest[key]; ok {
		return sentinel.ErrConflict
	}
	s.byID[app.AppID] = clone(app)
	s.byDigest[key] = app.AppID
	return nil
}

func (s *InMemoryStore) FindByID(ctx context.Context, appID string) (*models.Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.byID[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(app), nil
}

func (s *InMemoryStore) FindByDigest(ctx context.Context, digest []byte) (*models.Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	appID, ok := s.byDigest[secrets.CacheKey(digest)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.byID[appID]), nil
}

// Deactivate marks the application inactive; changed is false when it already was.
func (s *InMemoryStore) Deactivate(ctx context.Context, appID string, now time.Time) (*models.Application, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.byID[appID]
	if !ok {
		return nil, false, sentinel.ErrNotFound
	}
	changed := app.Deactivate(now)
	return clone(app), changed, nil
}

func clone(a *models.Application) *models.Application {
	c := *a
	c.SecretDigest = append([]byte(nil), a.SecretDigest...)
	if a.DeactivatedAt != nil {
		t := *a.DeactivatedAt
		c.DeactivatedAt = &t
	}
	return &c
}
