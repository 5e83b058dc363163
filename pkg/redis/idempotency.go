package redis

import (
	"context"
	"time"
)

const idempotencyPrefix = "idempotency"

// IdempotencyKey is where the recorded response for (scope, id) lives. Scope
// is the caller plus method and route.
func (c *Client) IdempotencyKey(scope, id string) string {
	return namespacedKey(idempotencyPrefix, scope, id)
}

// Get loads a recorded response. A missing record yields redis.Nil.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.store == nil {
		return "", errNotInitialized
	}
	return c.store.Get(ctx, key).Result()
}

// SetNX records a response unless one is already stored, so the first
// completed request wins.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if c.store == nil {
		return false, errNotInitialized
	}
	return c.store.SetNX(ctx, key, value, ttl).Result()
}
