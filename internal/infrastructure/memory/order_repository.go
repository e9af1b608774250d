package memory

import (
	"context"
	"sync"
	"time"

	"github.com/724parcabul/storefront/internal/core/domain"
	"github.com/724parcabul/storefront/internal/core/ports"
)

// OrderRepository is an append-only ledger held in memory.
type OrderRepository struct {
	mu     sync.RWMutex
	orders []*domain.Order
	byID   map[string]int
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{byID: map[string]int{}}
}

func (r *OrderRepository) Append(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[o.ID]; ok {
		return domain.ErrOrderConflict
	}
	for _, existing := range r.orders {
		if existing.TrackingNumber == o.TrackingNumber {
			return domain.ErrOrderConflict
		}
	}
	r.byID[o.ID] = len(r.orders)
	r.orders = append(r.orders, cloneOrder(o))
	return nil
}

func (r *OrderRepository) FindByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(r.orders[idx]), nil
}

func (r *OrderRepository) List(_ context.Context, f ports.ListOrdersFilter) ([]*domain.Order, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*domain.Order
	for _, o := range r.orders {
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		matched = append(matched, o)
	}

	total := int64(len(matched))
	start := (f.Page - 1) * f.Limit
	if start < 0 {
		start = 0
	}
	if start >= len(matched) {
		return []*domain.Order{}, total, nil
	}
	end := start + f.Limit
	if f.Limit <= 0 || end > len(matched) {
		end = len(matched)
	}

	out := make([]*domain.Order, 0, end-start)
	for _, o := range matched[start:end] {
		out = append(out, cloneOrder(o))
	}
	return out, total, nil
}

func (r *OrderRepository) UpdateStatus(_ context.Context, id string, from, to domain.OrderStatus, at time.Time, actor string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.byID[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o := r.orders[idx]
	if o.Status != from {
		return domain.ErrOrderConflict
	}
	o.Status = to
	o.UpdatedAt = at.UTC()
	o.StatusHistory = append(o.StatusHistory, domain.StatusHistoryEntry{
		Status:    to,
		Timestamp: at.UTC(),
		Actor:     actor,
	})
	return nil
}

func (r *OrderRepository) MarkReturnRequested(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.byID[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o := r.orders[idx]
	if !o.CanRequestReturn() {
		return domain.ErrOrderConflict
	}
	ts := at.UTC()
	o.ReturnRequested = true
	o.ReturnRequestedAt = &ts
	o.UpdatedAt = ts
	return nil
}

func (r *OrderRepository) Stats(_ context.Context) (map[domain.OrderStatus]ports.StatusStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := map[domain.OrderStatus]ports.StatusStats{}
	for _, o := range r.orders {
		s := out[o.Status]
		s.Count++
		s.Revenue = s.Revenue.Add(o.Total)
		out[o.Status] = s
	}
	return out, nil
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = append([]domain.OrderItem(nil), o.Items...)
	c.StatusHistory = append([]domain.StatusHistoryEntry(nil), o.StatusHistory...)
	if o.ReturnRequestedAt != nil {
		ts := *o.ReturnRequestedAt
		c.ReturnRequestedAt = &ts
	}
	return &c
}
