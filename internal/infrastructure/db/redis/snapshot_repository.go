package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/724parcabul/storefront/internal/core/domain"
)

// SnapshotRepository stores session snapshots as JSON strings, one key per
// session. A zero TTL keeps keys forever, like browser local storage.
type SnapshotRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotRepository wraps the given Redis client.
func NewSnapshotRepository(client *redis.Client, ttl time.Duration) *SnapshotRepository {
	return &SnapshotRepository{client: client, ttl: ttl}
}

// Load reads and decodes the snapshot stored under key.
func (r *SnapshotRepository) Load(ctx context.Context, key string) (*domain.Snapshot, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("snapshot load: %w", err)
	}

	snap, err := domain.DecodeSnapshot(raw)
	if err != nil {
		return nil, fmt.Errorf("snapshot load %s: %w", key, err)
	}
	return &snap, nil
}

// Save overwrites the snapshot under key.
func (r *SnapshotRepository) Save(ctx context.Context, key string, snapshot domain.Snapshot) error {
	raw, err := domain.EncodeSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("snapshot encode: %w", err)
	}
	if err := r.client.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("snapshot save: %w", err)
	}
	return nil
}
