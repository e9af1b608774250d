package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/724parcabul/storefront/internal/core/domain"
	"github.com/724parcabul/storefront/internal/core/ports"
)

const (
	defaultWorkers      = 8
	defaultWriteTimeout = 3 * time.Second
)

// Discard reasons reported through WriteHooks.OnDiscard.
const (
	DiscardSuperseded = "superseded" // a newer snapshot for the key replaced it before it was written
	DiscardStopped    = "stopped"    // enqueued after Stop
)

// WriteHooks lets callers observe the writer without coupling it to metrics.
type WriteHooks struct {
	OnWrite      func(err error)
	OnDiscard    func(reason string)
	OnQueueDepth func(workerID string, depth int)
}

// shard is one worker's queue. It holds at most one pending snapshot per key,
// so its size is bounded by the number of distinct keys, not by the write rate.
type shard struct {
	mu       sync.Mutex
	order    []string
	pending  map[string]domain.Snapshot
	inflight string
	stopped  bool
	wake     chan struct{}
}

type write struct {
	key      string
	snapshot domain.Snapshot
}

// SnapshotWriter persists store snapshots in the background. Keys are
// sharded onto a fixed set of workers with consistent hashing, so writes for
// one key are applied in the order they were enqueued. Persist never blocks:
// while a key waits for its worker, a newer snapshot replaces the older one.
type SnapshotWriter struct {
	shards  []*shard
	repo    ports.SnapshotRepository
	timeout time.Duration
	hooks   WriteHooks
	log     zerolog.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewSnapshotWriter creates a writer with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewSnapshotWriter(numWorkers int, repo ports.SnapshotRepository, hooks WriteHooks, log zerolog.Logger) *SnapshotWriter {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	w := &SnapshotWriter{
		shards:  make([]*shard, numWorkers),
		repo:    repo,
		timeout: defaultWriteTimeout,
		hooks:   hooks,
		log:     log.With().Str("component", "snapshot_writer").Logger(),
	}
	for i := range w.shards {
		w.shards[i] = &shard{
			pending: make(map[string]domain.Snapshot),
			wake:    make(chan struct{}, 1),
		}
	}
	return w
}

// Start launches all worker goroutines. Workers exit once Stop has drained
// their queue.
func (w *SnapshotWriter) Start(ctx context.Context) {
	for i, sh := range w.shards {
		w.wg.Add(1)
		go w.runWorker(ctx, i, sh)
	}
}

// Persist enqueues a snapshot for key and returns immediately. After Stop the
// snapshot is discarded.
func (w *SnapshotWriter) Persist(key string, snapshot domain.Snapshot) {
	idx := w.shardIndex(key)
	sh := w.shards[idx]

	sh.mu.Lock()
	if sh.stopped {
		sh.mu.Unlock()
		w.discard(DiscardStopped)
		return
	}
	_, superseded := sh.pending[key]
	if !superseded {
		sh.order = append(sh.order, key)
	}
	sh.pending[key] = snapshot
	depth := len(sh.order)
	sh.mu.Unlock()

	sh.signal()
	if superseded {
		w.discard(DiscardSuperseded)
	}
	if w.hooks.OnQueueDepth != nil {
		w.hooks.OnQueueDepth(strconv.Itoa(idx), depth)
	}
}

// Pending reports whether key has a snapshot queued or being written.
func (w *SnapshotWriter) Pending(key string) bool {
	sh := w.shards[w.shardIndex(key)]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	_, queued := sh.pending[key]
	return queued || sh.inflight == key
}

// Stop rejects further snapshots and waits until every queued one is written.
func (w *SnapshotWriter) Stop() {
	w.stopOnce.Do(func() {
		for _, sh := range w.shards {
			sh.mu.Lock()
			sh.stopped = true
			sh.mu.Unlock()
			sh.signal()
		}
	})
	w.wg.Wait()
}

// shardIndex maps a key deterministically to a worker index.
func (w *SnapshotWriter) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(w.shards)))
}

func (w *SnapshotWriter) runWorker(ctx context.Context, id int, sh *shard) {
	defer w.wg.Done()
	for {
		job, ok, stopped := sh.next()
		if ok {
			w.save(ctx, id, job)
			sh.finish()
			continue
		}
		if stopped {
			return
		}
		<-sh.wake
	}
}

// save writes one snapshot. Failures are logged and dropped; a later
// snapshot for the same key supersedes the lost one.
func (w *SnapshotWriter) save(ctx context.Context, id int, job write) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.timeout)
	defer cancel()

	err := w.repo.Save(writeCtx, job.key, job.snapshot)
	if err != nil {
		w.log.Error().Err(err).
			Str("key", job.key).
			Int("worker_id", id).
			Msg("snapshot write dropped")
	}
	if w.hooks.OnWrite != nil {
		w.hooks.OnWrite(err)
	}
}

func (w *SnapshotWriter) discard(reason string) {
	if w.hooks.OnDiscard != nil {
		w.hooks.OnDiscard(reason)
	}
}

// next pops the oldest queued key and marks it in flight.
func (sh *shard) next() (write, bool, bool) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if len(sh.order) == 0 {
		return write{}, false, sh.stopped
	}
	key := sh.order[0]
	sh.order = sh.order[1:]
	snap := sh.pending[key]
	delete(sh.pending, key)
	sh.inflight = key
	return write{key: key, snapshot: snap}, true, sh.stopped
}

func (sh *shard) finish() {
	sh.mu.Lock()
	sh.inflight = ""
	sh.mu.Unlock()
}

func (sh *shard) signal() {
	select {
	case sh.wake <- struct{}{}:
	default:
	}
}
