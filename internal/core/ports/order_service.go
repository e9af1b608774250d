package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/724parcabul/storefront/internal/core/domain"
)

// Cart is the part of a session store the checkout consumes.
type Cart interface {
	Lines() []domain.CartLine
	// RemoveOrdered takes ordered lines out of the cart, leaving anything
	// added since Lines was read.
	RemoveOrdered(ordered []domain.CartLine)
}

// ContactInput holds the buyer's contact details.
type ContactInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// CheckoutInput carries everything needed to turn a cart into an order.
type CheckoutInput struct {
	Cart           Cart
	User           *domain.SessionUser // nil for guest checkout
	Contact        ContactInput
	Address        domain.ShippingAddress
	Notes          string
	IdempotencyKey string
}

// CheckoutResult is returned by Checkout.
type CheckoutResult struct {
	Order *domain.Order
	// AlreadyExisted is true when the Idempotency-Key matched an earlier checkout.
	AlreadyExisted bool
}

// GetOrderInput identifies an order and who is asking for it.
type GetOrderInput struct {
	OrderID        string
	Requester      *domain.SessionUser
	TrackingNumber string // grants access to guest-style lookups
}

// ListOrdersInput carries all parameters for listing orders.
type ListOrdersInput struct {
	Requester *domain.SessionUser
	Status    string
	Page      int
	Limit     int
}

// ListOrdersResult is returned by ListOrders.
type ListOrdersResult struct {
	Items      []*domain.Order
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// TransitionInput requests a status change on an order.
type TransitionInput struct {
	OrderID   string
	Status    string
	Requester *domain.SessionUser
	At        time.Time // zero = now
}

// ReturnInput requests the return flag on a delivered order.
type ReturnInput struct {
	OrderID        string
	Requester      *domain.SessionUser
	TrackingNumber string
}

// LedgerStats is the admin dashboard summary.
type LedgerStats struct {
	Total    int64
	ByStatus map[domain.OrderStatus]int64
	Revenue  decimal.Decimal
}

// OrderService defines use-case operations on the order ledger.
type OrderService interface {
	Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)
	GetOrder(ctx context.Context, input GetOrderInput) (*domain.Order, error)
	ListOrders(ctx context.Context, input ListOrdersInput) (*ListOrdersResult, error)
	TransitionOrder(ctx context.Context, input TransitionInput) (*domain.Order, error)
	RequestReturn(ctx context.Context, input ReturnInput) (*domain.Order, error)
	Stats(ctx context.Context) (*LedgerStats, error)
}
