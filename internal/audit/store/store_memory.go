package store

import (
	"context"
	"sort"
	"sync"

	"consentledger/internal/audit/models"
	id "consentledger/pkg/domain"
	"consentledger/pkg/platform/sentinel"
)

// InMemoryStore keeps an append-only trail per user, guarded by a mutex.
// There is no update or delete path.
type InMemoryStore struct {
	mu     sync.RWMutex
	ids    map[id.AccessLogID]struct{}
	byUser map[string][]*models.AccessLogEntry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		ids:    make(map[id.AccessLogID]struct{}),
		byUser: make(map[string][]*models.AccessLogEntry),
	}
}

func (s *InMemoryStore) Append(ctx context.Context, entry *models.AccessLogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.ids[entry.ID]; dup {
		return sentinel.ErrConflict
	}
	s.ids[entry.ID] = struct{}{}
	s.byUser[entry.UserID] = append(s.byUser[entry.UserID], clone(entry))
	return nil
}

// ListByUser returns a user's entries newest first; ties keep append order
// reversed so the latest write still leads.
func (s *InMemoryStore) ListByUser(ctx context.Context, userID string) ([]*models.AccessLogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	trail := s.byUser[userID]
	out := make([]*models.AccessLogEntry, 0, len(trail))
	for i := len(trail) - 1; i >= 0; i-- {
		out = append(out, clone(trail[i]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func clone(e *models.AccessLogEntry) *models.AccessLogEntry {
	c := *e
	if e.Reason != nil {
		r := *e.Reason
		c.Reason = &r
	}
	return &c
}
