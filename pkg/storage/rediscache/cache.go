// Package rediscache backs the per-user auth state cache with Redis so
// permission revocations propagate across API replicas via invalidation.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/menuforge/menuforge/pkg/users"
)

// DefaultTTL bounds staleness when an invalidation is lost
const DefaultTTL = 5 * time.Minute

// AuthStateCache implements users.AuthStateCache on Redis
type AuthStateCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAuthStateCache creates a cache over an existing Redis client
func NewAuthStateCache(client *redis.Client, ttl time.Duration) *AuthStateCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &AuthStateCache{client: client, ttl: ttl}
}

// Get fetches the cached auth state for a user
func (c *AuthStateCache) Get(ctx context.Context, userID int64) (users.AuthState, bool, error) {
	data, err := c.client.Get(ctx, key(userID)).Bytes()
	if err == redis.Nil {
		return users.AuthState{}, false, nil
	}
	if err != nil {
		return users.AuthState{}, false, fmt.Errorf("failed to read auth state: %w", err)
	}

	var state users.AuthState
	if err := json.Unmarshal(data, &state); err != nil {
		// Treat a corrupt entry as a miss; it will be rewritten.
		return users.AuthState{}, false, nil
	}
	return state, true, nil
}

// Set stores the auth state for a user with the configured TTL
func (c *AuthStateCache) Set(ctx context.Context, userID int64, state users.AuthState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal auth state: %w", err)
	}
	if err := c.client.Set(ctx, key(userID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write auth state: %w", err)
	}
	return nil
}

// Invalidate drops the cached auth state for a user
func (c *AuthStateCache) Invalidate(ctx context.Context, userID int64) error {
	if err := c.client.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate auth state: %w", err)
	}
	return nil
}

func key(userID int64) string {
	return fmt.Sprintf("menuforge:authstate:%d", userID)
}
