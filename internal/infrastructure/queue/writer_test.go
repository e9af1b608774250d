package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/724parcabul/storefront/internal/core/domain"
	"github.com/724parcabul/storefront/internal/core/store"
	"github.com/724parcabul/storefront/internal/infrastructure/memory"
)

type orderedRepo struct {
	mu    sync.Mutex
	byKey map[string][]int
	err   error
}

func (r *orderedRepo) Load(context.Context, string) (*domain.Snapshot, error) {
	return nil, domain.ErrSnapshotNotFound
}

func (r *orderedRepo) Save(_ context.Context, key string, s domain.Snapshot) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byKey == nil {
		r.byKey = map[string][]int{}
	}
	r.byKey[key] = append(r.byKey[key], domain.CartItemCount(s.Cart))
	return nil
}

func snapshotWithCount(n int) domain.Snapshot {
	return domain.Snapshot{Cart: []domain.CartLine{{ID: "1", UnitPrice: decimal.NewFromInt(1), Quantity: n, StockSnapshot: 100}}}
}

func TestSnapshotWriter_PerKeyOrdering(t *testing.T) {
	repo := &orderedRepo{}
	w := NewSnapshotWriter(4, repo, WriteHooks{}, zerolog.Nop())
	w.Start(context.Background())

	keys := []string{"724parcabul-store:a", "724parcabul-store:b", "724parcabul-store:c"}
	for n := 1; n <= 50; n++ {
		for _, k := range keys {
			w.Persist(k, snapshotWithCount(n))
		}
	}
	w.Stop()

	for _, k := range keys {
		got := repo.byKey[k]
		if len(got) == 0 {
			t.Fatalf("%s: expected at least one write", k)
		}
		for i := 1; i < len(got); i++ {
			if got[i] <= got[i-1] {
				t.Fatalf("%s: write %d out of order (%v)", k, i, got)
			}
		}
		if last := got[len(got)-1]; last != 50 {
			t.Fatalf("%s: expected final snapshot 50, got %d", k, last)
		}
	}
}

func TestSnapshotWriter_LastWriteWins(t *testing.T) {
	repo := memory.NewSnapshotRepository()
	w := NewSnapshotWriter(2, repo, WriteHooks{}, zerolog.Nop())
	w.Start(context.Background())

	w.Persist("k", snapshotWithCount(1))
	w.Persist("k", domain.Snapshot{DarkMode: true})
	w.Stop()

	got, err := repo.Load(context.Background(), "k")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.DarkMode || len(got.Cart) != 0 {
		t.Fatalf("expected latest snapshot, got %+v", got)
	}
}

func TestSnapshotWriter_FailuresAreDroppedAndReported(t *testing.T) {
	repo := &orderedRepo{err: errors.New("OOM command not allowed")}
	var mu sync.Mutex
	var failures int
	w := NewSnapshotWriter(1, repo, WriteHooks{OnWrite: func(err error) {
		if err != nil {
			mu.Lock()
			failures++
			mu.Unlock()
		}
	}}, zerolog.Nop())
	w.Start(context.Background())

	w.Persist("k1", snapshotWithCount(1))
	w.Persist("k2", snapshotWithCount(2))
	w.Stop()

	if failures != 2 {
		t.Fatalf("expected 2 reported failures, got %d", failures)
	}
}

func TestSnapshotWriter_ShardIndexDeterministic(t *testing.T) {
	w := NewSnapshotWriter(0, memory.NewSnapshotRepository(), WriteHooks{}, zerolog.Nop())
	if len(w.shards) != defaultWorkers {
		t.Fatalf("expected %d workers, got %d", defaultWorkers, len(w.shards))
	}
	if w.shardIndex("724parcabul-store:x") != w.shardIndex("724parcabul-store:x") {
		t.Fatal("shard index must be stable for a key")
	}
}

func TestSnapshotWriter_StopIsIdempotent(t *testing.T) {
	w := NewSnapshotWriter(2, memory.NewSnapshotRepository(), WriteHooks{}, zerolog.Nop())
	w.Start(context.Background())
	w.Stop()
	w.Stop()
}

// stalledRepo blocks every Save until release is closed.
type stalledRepo struct {
	entered chan string
	release chan struct{}

	mu    sync.Mutex
	saved map[string]domain.Snapshot
}

func newStalledRepo() *stalledRepo {
	return &stalledRepo{
		entered: make(chan string, 16),
		release: make(chan struct{}),
		saved:   map[string]domain.Snapshot{},
	}
}

func (r *stalledRepo) Load(context.Context, string) (*domain.Snapshot, error) {
	return nil, domain.ErrSnapshotNotFound
}

func (r *stalledRepo) Save(ctx context.Context, key string, s domain.Snapshot) error {
	select {
	case r.entered <- key:
	default:
	}
	select {
	case <-r.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved[key] = s
	return nil
}

func TestSnapshotWriter_StalledRepoDoesNotBlockStore(t *testing.T) {
	repo := newStalledRepo()
	w := NewSnapshotWriter(1, repo, WriteHooks{}, zerolog.Nop())
	w.Start(context.Background())

	const key = "724parcabul-store:s1"
	st := store.New(key, w)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 300; i++ {
			st.ToggleTheme()
		}
		st.AddToCart(domain.CartCandidate{ID: "p1", UnitPrice: decimal.NewFromInt(10), StockSnapshot: 3})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("store mutations blocked behind a stalled snapshot repository")
	}
	if n := st.CartItemCount(); n != 1 {
		t.Fatalf("expected 1 item, got %d", n)
	}

	close(repo.release)
	w.Stop()

	got, ok := repo.saved[key]
	if !ok {
		t.Fatal("expected the latest snapshot to be written")
	}
	if got.DarkMode || len(got.Cart) != 1 {
		t.Fatalf("expected latest snapshot (light mode, 1 line), got %+v", got)
	}
}

func TestSnapshotWriter_PendingTracksQueuedAndInFlight(t *testing.T) {
	repo := newStalledRepo()
	var discards []string
	w := NewSnapshotWriter(1, repo, WriteHooks{OnDiscard: func(reason string) {
		discards = append(discards, reason)
	}}, zerolog.Nop())
	w.Start(context.Background())

	w.Persist("a", snapshotWithCount(1))
	select {
	case key := <-repo.entered:
		if key != "a" {
			t.Fatalf("expected a in flight, got %s", key)
		}
	case <-time.After(time.Second):
		t.Fatal("worker never picked up the snapshot")
	}

	w.Persist("b", snapshotWithCount(1))
	w.Persist("b", snapshotWithCount(2))

	if !w.Pending("a") || !w.Pending("b") {
		t.Fatal("expected in-flight and queued keys to be pending")
	}
	if w.Pending("c") {
		t.Fatal("unknown key reported as pending")
	}
	if len(discards) != 1 || discards[0] != DiscardSuperseded {
		t.Fatalf("expected one superseded snapshot, got %v", discards)
	}

	close(repo.release)
	w.Stop()

	if w.Pending("a") || w.Pending("b") {
		t.Fatal("nothing should be pending after Stop")
	}
	if n := domain.CartItemCount(repo.saved["b"].Cart); n != 2 {
		t.Fatalf("expected the newer snapshot for b, got count %d", n)
	}
}

func TestSnapshotWriter_PersistAfterStopIsDiscarded(t *testing.T) {
	repo := memory.NewSnapshotRepository()
	var discards []string
	w := NewSnapshotWriter(2, repo, WriteHooks{OnDiscard: func(reason string) {
		discards = append(discards, reason)
	}}, zerolog.Nop())
	w.Start(context.Background())
	w.Stop()

	w.Persist("k", snapshotWithCount(1))

	if len(discards) != 1 || discards[0] != DiscardStopped {
		t.Fatalf("expected a stopped discard, got %v", discards)
	}
	if repo.Saves() != 0 {
		t.Fatalf("expected no writes after stop, got %d", repo.Saves())
	}
}
