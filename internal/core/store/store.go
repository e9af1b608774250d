// Package store holds the per-session cart/session state container.
//
// A Store owns the cart lines, the session user, the dark-mode preference and
// the transient search text of one browser session. Cart and preference
// changes are handed to a Persister as a full snapshot; user identity and
// search text live in memory only.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/724parcabul/storefront/internal/core/domain"
	"github.com/724parcabul/storefront/internal/core/ports"
)

// Outcome describes what a cart mutation did.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"   // quantity set as requested
	OutcomeClamped   Outcome = "clamped"   // quantity capped at the stock snapshot
	OutcomeRemoved   Outcome = "removed"   // line deleted
	OutcomeUnchanged Outcome = "unchanged" // no line with that id
	OutcomeRejected  Outcome = "rejected"  // new line with no stock
)

// Result is returned by every cart mutation. Quantity is the line's quantity
// after the call, 0 when the line is absent.
type Result struct {
	Outcome  Outcome `json:"outcome"`
	Quantity int     `json:"quantity"`
}

// Persister receives the snapshot after each change to cart or preferences.
// Implementations must not report failures back to the store.
type Persister interface {
	Persist(key string, snapshot domain.Snapshot)
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(key string, snapshot domain.Snapshot)

func (f PersisterFunc) Persist(key string, snapshot domain.Snapshot) { f(key, snapshot) }

// Observer is notified after every cart mutation.
type Observer func(op string, r Result)

// State is a consistent copy of a store's contents.
type State struct {
	Cart        []domain.CartLine   `json:"cart"`
	User        *domain.SessionUser `json:"user"`
	DarkMode    bool                `json:"darkMode"`
	SearchQuery string              `json:"searchQuery"`
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithSnapshot seeds cart and preferences from a persisted snapshot.
func WithSnapshot(snap domain.Snapshot) Option {
	return func(s *Store) {
		s.cart = sanitize(snap.Cart)
		s.darkMode = snap.DarkMode
	}
}

// WithObserver registers a mutation observer.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// Store is safe for concurrent use. Every operation runs against the latest
// state under the store's lock.
type Store struct {
	mu        sync.Mutex
	key       string
	persister Persister
	observer  Observer
	log       zerolog.Logger

	cart        []domain.CartLine
	user        *domain.SessionUser
	darkMode    bool
	searchQuery string
}

// New returns an empty store persisting under key. persister may be nil.
func New(key string, persister Persister, opts ...Option) *Store {
	s := &Store{
		key:       key,
		persister: persister,
		log:       zerolog.Nop(),
		cart:      []domain.CartLine{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open seeds a store from repo. Any read failure falls back to the default
// state; user and search text always start empty.
func Open(ctx context.Context, key string, repo ports.SnapshotRepository, persister Persister, opts ...Option) *Store {
	s := New(key, persister, opts...)

	snap, err := repo.Load(ctx, key)
	switch {
	case err == nil:
		s.cart = sanitize(snap.Cart)
		s.darkMode = snap.DarkMode
	case errors.Is(err, domain.ErrSnapshotNotFound):
	default:
		s.log.Warn().Err(err).Str("key", key).Msg("snapshot unreadable, starting empty")
	}
	return s
}

// Key returns the storage key the store persists under.
func (s *Store) Key() string { return s.key }

// AddToCart adds one unit of the candidate. A new line starts at quantity 1;
// an existing line grows by one up to its stock snapshot. Candidates without
// stock never create a line.
func (s *Store) AddToCart(c domain.CartCandidate) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(c.ID)
	if i < 0 {
		if c.StockSnapshot < 1 {
			return s.observe("add", Result{Outcome: OutcomeRejected})
		}
		s.cart = append(s.cart, c.Line(1))
		s.persistLocked()
		return s.observe("add", Result{Outcome: OutcomeApplied, Quantity: 1})
	}

	line := &s.cart[i]
	if line.Quantity >= line.StockSnapshot {
		return s.observe("add", Result{Outcome: OutcomeClamped, Quantity: line.Quantity})
	}
	line.Quantity++
	s.persistLocked()
	return s.observe("add", Result{Outcome: OutcomeApplied, Quantity: line.Quantity})
}

// RemoveFromCart deletes the line with id. Removing an absent id is a no-op.
func (s *Store) RemoveFromCart(id string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.observe("remove", s.removeLocked(id))
}

// UpdateQuantity sets the line's quantity, capped at its stock snapshot.
// A quantity of zero or less removes the line.
func (s *Store) UpdateQuantity(id string, quantity int) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		return s.observe("update", s.removeLocked(id))
	}

	i := s.indexOf(id)
	if i < 0 {
		return s.observe("update", Result{Outcome: OutcomeUnchanged})
	}

	line := &s.cart[i]
	outcome := OutcomeApplied
	if quantity > line.StockSnapshot {
		quantity = line.StockSnapshot
		outcome = OutcomeClamped
	}
	if line.Quantity != quantity {
		line.Quantity = quantity
		s.persistLocked()
	}
	return s.observe("update", Result{Outcome: outcome, Quantity: quantity})
}

// ClearCart empties the cart.
func (s *Store) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart = []domain.CartLine{}
	s.persistLocked()
	s.observe("clear", Result{Outcome: OutcomeRemoved})
}

// RemoveOrdered takes the given lines out of the cart after they were
// ordered. Each matching line loses the ordered quantity and disappears at
// zero; lines added after the order was taken stay in the cart.
func (s *Store) RemoveOrdered(ordered []domain.CartLine) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, o := range ordered {
		i := s.indexOf(o.ID)
		if i < 0 {
			continue
		}
		changed = true
		if left := s.cart[i].Quantity - o.Quantity; left > 0 {
			s.cart[i].Quantity = left
			continue
		}
		s.cart = append(s.cart[:i:i], s.cart[i+1:]...)
	}
	if !changed {
		return
	}
	s.persistLocked()
	s.observe("checkout", Result{Outcome: OutcomeRemoved})
}

// CartTotal returns the sum of UnitPrice × Quantity over the current lines.
func (s *Store) CartTotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CartTotal(s.cart)
}

// CartItemCount returns the number of units in the cart.
func (s *Store) CartItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CartItemCount(s.cart)
}

// Lines returns a copy of the cart lines in insertion order.
func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneLines(s.cart)
}

// SetUser replaces the session identity. nil signs the session out.
func (s *Store) SetUser(u *domain.SessionUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = cloneUser(u)
}

// User returns a copy of the session identity, or nil.
func (s *Store) User() *domain.SessionUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneUser(s.user)
}

// ToggleTheme flips dark mode and returns the new value.
func (s *Store) ToggleTheme() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.darkMode = !s.darkMode
	s.persistLocked()
	return s.darkMode
}

// DarkMode reports the current theme preference.
func (s *Store) DarkMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.darkMode
}

// SetSearchQuery replaces the transient search text.
func (s *Store) SetSearchQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchQuery = q
}

// SearchQuery returns the transient search text.
func (s *Store) SearchQuery() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchQuery
}

// State returns a consistent copy of the whole store.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Cart:        cloneLines(s.cart),
		User:        cloneUser(s.user),
		DarkMode:    s.darkMode,
		SearchQuery: s.searchQuery,
	}
}

// Snapshot returns the persisted projection of the current state.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) removeLocked(id string) Result {
	i := s.indexOf(id)
	if i < 0 {
		return Result{Outcome: OutcomeUnchanged}
	}
	s.cart = append(s.cart[:i:i], s.cart[i+1:]...)
	s.persistLocked()
	return Result{Outcome: OutcomeRemoved}
}

func (s *Store) indexOf(id string) int {
	for i := range s.cart {
		if s.cart[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		Version:  domain.SnapshotVersion,
		Cart:     cloneLines(s.cart),
		DarkMode: s.darkMode,
	}
}

// persistLocked runs under s.mu so snapshots leave in mutation order.
func (s *Store) persistLocked() {
	if s.persister == nil {
		return
	}
	s.persister.Persist(s.key, s.snapshotLocked())
}

func (s *Store) observe(op string, r Result) Result {
	if s.observer != nil {
		s.observer(op, r)
	}
	return r
}

// sanitize enforces the cart invariants on data read back from storage:
// one line per id, 1 ≤ quantity ≤ stock snapshot.
func sanitize(lines []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		if _, dup := seen[l.ID]; dup || l.StockSnapshot < 1 || l.Quantity < 1 {
			continue
		}
		seen[l.ID] = struct{}{}
		if l.Quantity > l.StockSnapshot {
			l.Quantity = l.StockSnapshot
		}
		out = append(out, l)
	}
	return out
}

func cloneLines(lines []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, len(lines))
	copy(out, lines)
	return out
}

func cloneUser(u *domain.SessionUser) *domain.SessionUser {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
