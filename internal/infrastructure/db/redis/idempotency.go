package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultIdempotencyTTL = 24 * time.Hour

// IdempotencyGuard remembers which order a checkout Idempotency-Key produced.
// Key format: checkout:<idempotency_key>
type IdempotencyGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyGuard creates a guard wrapping the given Redis client.
func NewIdempotencyGuard(client *redis.Client, ttl time.Duration) *IdempotencyGuard {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyGuard{client: client, ttl: ttl}
}

// Claim binds key to orderID if the key is new. When the key was already
// claimed it returns the bound order id and claimed=false.
func (g *IdempotencyGuard) Claim(ctx context.Context, key, orderID string) (string, bool, error) {
	ok, err := g.client.SetNX(ctx, g.key(key), orderID, g.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("idempotency claim: %w", err)
	}
	if ok {
		return orderID, true, nil
	}

	existing, err := g.client.Get(ctx, g.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// expired between SETNX and GET
			return g.Claim(ctx, key, orderID)
		}
		return "", false, fmt.Errorf("idempotency lookup: %w", err)
	}
	return existing, false, nil
}

// Release forgets key so a failed checkout can be retried with it.
func (g *IdempotencyGuard) Release(ctx context.Context, key string) error {
	return g.client.Del(ctx, g.key(key)).Err()
}

func (g *IdempotencyGuard) key(k string) string {
	return fmt.Sprintf("checkout:%s", k)
}
