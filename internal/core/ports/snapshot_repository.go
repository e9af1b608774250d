package ports

import (
	"context"

	"github.com/724parcabul/storefront/internal/core/domain"
)

// SnapshotRepository is the durable key-value storage behind session stores.
type SnapshotRepository interface {
	// Load returns domain.ErrSnapshotNotFound when the key is absent and
	// domain.ErrCorruptSnapshot when the stored payload cannot be read.
	Load(ctx context.Context, key string) (*domain.Snapshot, error)
	// Save overwrites the snapshot stored under key.
	Save(ctx context.Context, key string, snapshot domain.Snapshot) error
}
