package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/724parcabul/storefront/internal/core/domain"
)

// ListOrdersFilter carries all query parameters for listing ledger records.
type ListOrdersFilter struct {
	UserID string             // empty = every owner (admin)
	Status domain.OrderStatus // optional
	Page   int                // 1-based
	Limit  int
}

// StatusStats aggregates the ledger for one status.
type StatusStats struct {
	Count   int64
	Revenue decimal.Decimal
}

// OrderRepository is the order ledger. Records are appended once and
// afterwards only updated in place by id.
type OrderRepository interface {
	Append(ctx context.Context, o *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	// List returns a page of orders in insertion order and the total count.
	List(ctx context.Context, filter ListOrdersFilter) ([]*domain.Order, int64, error)
	// UpdateStatus moves an order from one status to another. It returns
	// domain.ErrOrderConflict when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, at time.Time, actor string) error
	// MarkReturnRequested flags a delivered order. It returns
	// domain.ErrOrderConflict when the order is not delivered or already flagged.
	MarkReturnRequested(ctx context.Context, id string, at time.Time) error
	Stats(ctx context.Context) (map[domain.OrderStatus]StatusStats, error)
}
