// Package cache holds credential lookup caches: digest key → app id.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process cache used when Redis is not configured.
type Memory struct{ c *gocache.Cache }

func NewMemory(defaultTTL time.Duration) *Memory {
	return &Memory{c: gocache.New(defaultTTL, time.Minute)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return "", false, nil
	}
	appID, _ := v.(string)
	return appID, appID != "", nil
}

func (m *Memory) Set(_ context.Context, key, appID string, ttl time.Duration) error {
	m.c.Set(key, appID, ttl)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.c.Delete(key)
	return nil
}
