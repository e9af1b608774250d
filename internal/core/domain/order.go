package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	StatusPreparing OrderStatus = "preparing"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
	StatusReturned  OrderStatus = "returned"
)

// GuestUserID is stored as the owner of orders placed without signing in.
const GuestUserID = "guest"

// PaymentCreditCard is the only payment method the checkout accepts.
const PaymentCreditCard = "credit_card"

// validTransitions defines the allowed state machine transitions.
// cancelled and returned are terminal.
var validTransitions = map[OrderStatus][]OrderStatus{
	StatusPreparing: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered, StatusCancelled},
	StatusDelivered: {StatusReturned},
}

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	StatusPreparing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
	StatusReturned,
}

// CanTransitionTo reports whether a transition from current status to next is valid.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s OrderStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// OrderItem is a cart line frozen at checkout time.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	PartCode  string          `json:"part_code"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image_url,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// ShippingAddress is where the order is delivered.
type ShippingAddress struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	District   string `json:"district"`
	PostalCode string `json:"postal_code"`
}

// StatusHistoryEntry records a single status transition on an order.
type StatusHistoryEntry struct {
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Actor     string      `json:"actor,omitempty"`
}

// Order is one record of the order ledger.
type Order struct {
	ID                string               `json:"id"`
	TrackingNumber    string               `json:"tracking_number"`
	UserID            string               `json:"user_id"`
	GuestName         string               `json:"guest_name,omitempty"`
	GuestEmail        string               `json:"guest_email,omitempty"`
	Phone             string               `json:"phone,omitempty"`
	Items             []OrderItem          `json:"items"`
	Subtotal          decimal.Decimal      `json:"subtotal"`
	ShippingCost      decimal.Decimal      `json:"shipping_cost"`
	Total             decimal.Decimal      `json:"total"`
	Status            OrderStatus          `json:"status"`
	ShippingAddress   ShippingAddress      `json:"shipping_address"`
	PaymentMethod     string               `json:"payment_method"`
	Notes             string               `json:"notes,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
	ReturnRequested   bool                 `json:"return_requested"`
	ReturnRequestedAt *time.Time           `json:"return_requested_at,omitempty"`
	StatusHistory     []StatusHistoryEntry `json:"status_history"`
	IdempotencyKey    string               `json:"-"`
}

// IsGuest reports whether the order was placed without an account.
func (o *Order) IsGuest() bool {
	return o.UserID == "" || o.UserID == GuestUserID
}

// CanRequestReturn reports whether the return-request flag may be set.
// The flag is metadata on a delivered order, not a transition.
func (o *Order) CanRequestReturn() bool {
	return o.Status == StatusDelivered && !o.ReturnRequested
}
