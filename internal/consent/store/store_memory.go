package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"consentledger/internal/consent/models"
	id "consentledger/pkg/domain"
	"consentledger/pkg/platform/sentinel"
)

// InMemoryStore keeps consents in process. Each method is atomic under the
// store mutex, which gives the same per-row linearizability Postgres does.
type InMemoryStore struct {
	mu       sync.RWMutex
	consents map[id.ConsentID]*models.Consent
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{consents: make(map[id.ConsentID]*models.Consent)}
}

func (s *InMemoryStore) Create(ctx context.Context, consent *models.Consent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.consents[consent.ID]; exists {
		return sentinel.ErrConflict
	}
	s.consents[consent.ID] = clone(consent)
	return nil
}

func (s *InMemoryStore) FindByID(ctx context.Context, consentID id.ConsentID) (*models.Consent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.consents[consentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(c), nil
}

func (s *InMemoryStore) Revoke(ctx context.Context, consentID id.ConsentID, now time.Time) (*models.Consent, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.consents[consentID]
	if !ok {
		return nil, false, sentinel.ErrNotFound
	}
	changed := c.Revoke(now)
	return clone(c), changed, nil
}

func (s *InMemoryStore) ListByUser(ctx context.Context, userID string) ([]*models.Consent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Consent, 0)
	for _, c := range s.consents {
		if c.UserID == userID {
			out = append(out, clone(c))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemoryStore) FindActive(ctx context.Context, userID, appID, dataType, purpose string) (*models.Consent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *models.Consent
	for _, c := range s.consents {
		if !c.IsActive() || c.UserID != userID || c.AppID != appID || c.DataType != dataType || c.Purpose != purpose {
			continue
		}
		if best == nil || newer(c, best) {
			best = c
		}
	}
	if best == nil {
		return nil, sentinel.ErrNotFound
	}
	return clone(best), nil
}

func clone(c *models.Consent) *models.Consent {
	cp := *c
	if c.ExpiresAt != nil {
		t := *c.ExpiresAt
		cp.ExpiresAt = &t
	}
	if c.RevokedAt != nil {
		t := *c.RevokedAt
		cp.RevokedAt = &t
	}
	return &cp
}

// newer orders by created_at, breaking ties on id so results are stable.
func newer(a, b *models.Consent) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() > b.ID.String()
}

func sortNewestFirst(cs []*models.Consent) {
	sort.Slice(cs, func(i, j int) bool { return newer(cs[i], cs[j]) })
}
