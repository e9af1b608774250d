package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/724parcabul/storefront/internal/core/ports"
)

// DefaultKeyPrefix namespaces every session snapshot key.
const DefaultKeyPrefix = "724parcabul-store"

const defaultLoadTimeout = 2 * time.Second

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	KeyPrefix   string
	LoadTimeout time.Duration
	Options     []Option // applied to every store the registry opens
}

type entry struct {
	once     sync.Once
	store    *Store
	lastSeen time.Time
}

// Registry keeps one live Store per session, hydrating each from the
// snapshot repository the first time the session is seen.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry

	repo      ports.SnapshotRepository
	persister Persister
	cfg       RegistryConfig
	log       zerolog.Logger
	now       func() time.Time
}

// NewRegistry returns an empty Registry.
func NewRegistry(repo ports.SnapshotRepository, persister Persister, cfg RegistryConfig, log zerolog.Logger) *Registry {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = defaultLoadTimeout
	}
	return &Registry{
		entries:   make(map[string]*entry),
		repo:      repo,
		persister: persister,
		cfg:       cfg,
		log:       log.With().Str("component", "store_registry").Logger(),
		now:       time.Now,
	}
}

// Key returns the storage key for a session.
func (r *Registry) Key(sessionID string) string {
	return r.cfg.KeyPrefix + ":" + sessionID
}

// Get returns the store for sessionID. Concurrent first calls for the same
// session share a single hydration.
func (r *Registry) Get(ctx context.Context, sessionID string) *Store {
	r.mu.Lock()
	e, ok := r.entries[sessionID]
	if !ok {
		e = &entry{}
		r.entries[sessionID] = e
	}
	e.lastSeen = r.now()
	r.mu.Unlock()

	e.once.Do(func() {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.LoadTimeout)
		defer cancel()

		opts := append([]Option{WithLogger(r.log)}, r.cfg.Options...)
		e.store = Open(loadCtx, r.Key(sessionID), r.repo, r.persister, opts...)
		r.log.Debug().Str("session_id", sessionID).Int("items", e.store.CartItemCount()).Msg("session hydrated")
	})
	return e.store
}

// Evict drops the in-memory store of a session. Its snapshot stays durable.
func (r *Registry) Evict(sessionID string) {
	r.mu.Lock()
	delete(r.entries, sessionID)
	r.mu.Unlock()
}

// PendingReporter is implemented by persisters that know whether a key still
// has snapshots waiting to be written.
type PendingReporter interface {
	Pending(key string) bool
}

// Sweep evicts every session not seen for longer than idle and returns how
// many were dropped. Sessions with snapshot writes still pending are kept
// until a later sweep.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)
	pending, _ := r.persister.(PendingReporter)

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, e := range r.entries {
		if !e.lastSeen.Before(cutoff) {
			continue
		}
		if pending != nil && pending.Pending(r.Key(id)) {
			continue
		}
		delete(r.entries, id)
		n++
	}
	if n > 0 {
		r.log.Debug().Int("evicted", n).Int("remaining", len(r.entries)).Msg("idle sessions swept")
	}
	return n
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// RunSweeper sweeps idle sessions every interval until ctx is cancelled.
func (r *Registry) RunSweeper(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(idle)
		}
	}
}
