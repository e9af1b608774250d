// Package memory provides in-process adapters for local development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/724parcabul/storefront/internal/core/domain"
)

// SnapshotRepository keeps encoded snapshots in a map. It stores the same
// bytes the Redis adapter would, so decoding rules are identical.
type SnapshotRepository struct {
	mu    sync.RWMutex
	data  map[string][]byte
	saves int
}

func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{data: map[string][]byte{}}
}

func (r *SnapshotRepository) Load(_ context.Context, key string) (*domain.Snapshot, error) {
	r.mu.RLock()
	raw, ok := r.data[key]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}

	snap, err := domain.DecodeSnapshot(raw)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (r *SnapshotRepository) Save(_ context.Context, key string, snapshot domain.Snapshot) error {
	raw, err := domain.EncodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.data[key] = raw
	r.saves++
	r.mu.Unlock()
	return nil
}

// Put stores raw bytes under key, bypassing encoding.
func (r *SnapshotRepository) Put(key string, raw []byte) {
	r.mu.Lock()
	r.data[key] = append([]byte(nil), raw...)
	r.mu.Unlock()
}

// Raw returns the bytes stored under key.
func (r *SnapshotRepository) Raw(key string) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	raw, ok := r.data[key]
	return append([]byte(nil), raw...), ok
}

// Saves returns how many Save calls succeeded.
func (r *SnapshotRepository) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}
