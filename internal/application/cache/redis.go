package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "consentledger:cred:"

// Redis shares resolved credentials across server instances, so a
// deactivation on one instance evicts for all of them.
type Redis struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	appID, err := r.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get credential: %w", err)
	}
	return appID, true, nil
}

func (r *Redis) Set(ctx context.Context, key, appID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, keyPrefix+key, appID, ttl).Err(); err != nil {
		return fmt.Errorf("redis set credential: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete credential: %w", err)
	}
	return nil
}
