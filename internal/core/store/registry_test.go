package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/724parcabul/storefront/internal/core/domain"
	"github.com/724parcabul/storefront/internal/infrastructure/memory"
)

type countingRepo struct {
	*memory.SnapshotRepository
	mu    sync.Mutex
	loads int
}

func (r *countingRepo) Load(ctx context.Context, key string) (*domain.Snapshot, error) {
	r.mu.Lock()
	r.loads++
	r.mu.Unlock()
	return r.SnapshotRepository.Load(ctx, key)
}

func syncPersister(repo *memory.SnapshotRepository) Persister {
	return PersisterFunc(func(key string, s domain.Snapshot) {
		_ = repo.Save(context.Background(), key, s)
	})
}

func TestRegistry_KeyIsNamespaced(t *testing.T) {
	r := NewRegistry(memory.NewSnapshotRepository(), nil, RegistryConfig{}, zerolog.Nop())
	assert.Equal(t, "724parcabul-store:abc", r.Key("abc"))

	custom := NewRegistry(memory.NewSnapshotRepository(), nil, RegistryConfig{KeyPrefix: "shop"}, zerolog.Nop())
	assert.Equal(t, "shop:abc", custom.Key("abc"))
}

func TestRegistry_SameSessionSameStore(t *testing.T) {
	repo := &countingRepo{SnapshotRepository: memory.NewSnapshotRepository()}
	r := NewRegistry(repo, nil, RegistryConfig{}, zerolog.Nop())

	var wg sync.WaitGroup
	stores := make([]*Store, 20)
	for i := range stores {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stores[i] = r.Get(context.Background(), "s1")
		}(i)
	}
	wg.Wait()

	for _, s := range stores {
		assert.Same(t, stores[0], s)
	}
	assert.Equal(t, 1, repo.loads)
	assert.NotSame(t, stores[0], r.Get(context.Background(), "s2"))
}

func TestRegistry_SessionsAreIsolated(t *testing.T) {
	r := NewRegistry(memory.NewSnapshotRepository(), nil, RegistryConfig{}, zerolog.Nop())

	r.Get(context.Background(), "a").AddToCart(candidate("1", "10", 5))

	assert.Len(t, r.Get(context.Background(), "a").Lines(), 1)
	assert.Empty(t, r.Get(context.Background(), "b").Lines())
}

func TestRegistry_EvictThenRehydrate(t *testing.T) {
	repo := memory.NewSnapshotRepository()
	r := NewRegistry(repo, syncPersister(repo), RegistryConfig{}, zerolog.Nop())

	s := r.Get(context.Background(), "s1")
	s.AddToCart(candidate("1", "10", 5))
	s.ToggleTheme()
	s.SetUser(&domain.SessionUser{ID: "u1"})

	r.Evict("s1")
	assert.Zero(t, r.Len())

	again := r.Get(context.Background(), "s1")
	require.NotSame(t, s, again)
	assert.Len(t, again.Lines(), 1)
	assert.True(t, again.DarkMode())
	assert.Nil(t, again.User())
}

func TestRegistry_Sweep(t *testing.T) {
	r := NewRegistry(memory.NewSnapshotRepository(), nil, RegistryConfig{}, zerolog.Nop())
	now := time.Date(2025, 1, 20, 14, 30, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	r.Get(context.Background(), "old")
	now = now.Add(time.Hour)
	r.Get(context.Background(), "fresh")

	assert.Equal(t, 1, r.Sweep(30*time.Minute))
	assert.Equal(t, 1, r.Len())
}

type pendingPersister struct {
	pending map[string]bool
}

func (p *pendingPersister) Persist(string, domain.Snapshot) {}

func (p *pendingPersister) Pending(key string) bool { return p.pending[key] }

func TestRegistry_SweepKeepsSessionsWithPendingWrites(t *testing.T) {
	p := &pendingPersister{pending: map[string]bool{}}
	r := NewRegistry(memory.NewSnapshotRepository(), p, RegistryConfig{}, zerolog.Nop())
	now := time.Date(2025, 1, 20, 14, 30, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	r.Get(context.Background(), "busy")
	r.Get(context.Background(), "idle")
	now = now.Add(time.Hour)

	p.pending[r.Key("busy")] = true
	assert.Equal(t, 1, r.Sweep(30*time.Minute))
	assert.Equal(t, 1, r.Len())

	p.pending[r.Key("busy")] = false
	assert.Equal(t, 1, r.Sweep(30*time.Minute))
	assert.Zero(t, r.Len())
}

func TestRegistry_AppliesStoreOptions(t *testing.T) {
	var seen []string
	r := NewRegistry(memory.NewSnapshotRepository(), nil, RegistryConfig{
		Options: []Option{WithObserver(func(op string, _ Result) { seen = append(seen, op) })},
	}, zerolog.Nop())

	r.Get(context.Background(), "s").AddToCart(candidate("1", "1", 1))

	assert.Equal(t, []string{"add"}, seen)
}
