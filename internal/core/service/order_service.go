package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/724parcabul/storefront/internal/core/domain"
	"github.com/724parcabul/storefront/internal/core/ports"
)

const (
	trackingPrefix = "724PB"
	defaultLimit   = 20
	maxLimit       = 100
)

// IdempotencyGuard abstracts the checkout replay store (Redis).
type IdempotencyGuard interface {
	Claim(ctx context.Context, key, orderID string) (existing string, claimed bool, err error)
	Release(ctx context.Context, key string) error
}

// CheckoutConfig holds the shipping rule applied at checkout.
type CheckoutConfig struct {
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
}

// DefaultCheckoutConfig ships free above 500, otherwise charges 29.99.
func DefaultCheckoutConfig() CheckoutConfig {
	return CheckoutConfig{
		FreeShippingThreshold: decimal.NewFromInt(500),
		ShippingFee:           decimal.RequireFromString("29.99"),
	}
}

// ShippingFor returns the shipping cost for a subtotal.
func (c CheckoutConfig) ShippingFor(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(c.FreeShippingThreshold) {
		return decimal.Zero
	}
	return c.ShippingFee
}

type OrderService struct {
	repo  ports.OrderRepository
	guard IdempotencyGuard
	cfg   CheckoutConfig
	log   zerolog.Logger
	now   func() time.Time
}

// NewOrderService returns the ledger use cases. guard may be nil, in which
// case idempotency keys are ignored.
func NewOrderService(repo ports.OrderRepository, guard IdempotencyGuard, cfg CheckoutConfig, log zerolog.Logger) *OrderService {
	return &OrderService{
		repo:  repo,
		guard: guard,
		cfg:   cfg,
		log:   log.With().Str("component", "order_service").Logger(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Checkout turns the cart into a ledger record and takes the ordered lines out
// of the cart. A repeated idempotency key returns the earlier order and leaves
// the cart alone.
func (s *OrderService) Checkout(ctx context.Context, in ports.CheckoutInput) (*ports.CheckoutResult, error) {
	orderID := uuid.NewString()

	claimed := false
	if in.IdempotencyKey != "" && s.guard != nil {
		existing, ok, err := s.guard.Claim(ctx, in.IdempotencyKey, orderID)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("idempotency claim failed, processing anyway")
		case !ok:
			order, err := s.repo.FindByID(ctx, existing)
			if err != nil {
				if errors.Is(err, domain.ErrOrderNotFound) {
					return nil, fmt.Errorf("checkout: %w", domain.ErrOrderConflict)
				}
				return nil, fmt.Errorf("checkout: %w", err)
			}
			s.log.Info().Str("idempotency_key", in.IdempotencyKey).Str("order_id", order.ID).Msg("idempotent replay")
			return &ports.CheckoutResult{Order: order, AlreadyExisted: true}, nil
		default:
			claimed = true
		}
	}

	order, lines, err := s.placeOrder(ctx, orderID, in)
	if err != nil {
		if claimed {
			if rerr := s.guard.Release(ctx, in.IdempotencyKey); rerr != nil {
				s.log.Warn().Err(rerr).Str("idempotency_key", in.IdempotencyKey).Msg("failed to release idempotency key")
			}
		}
		return nil, err
	}

	in.Cart.RemoveOrdered(lines)

	s.log.Info().
		Str("order_id", order.ID).
		Str("tracking_number", order.TrackingNumber).
		Str("user_id", order.UserID).
		Str("total", order.Total.StringFixed(2)).
		Msg("order placed")

	return &ports.CheckoutResult{Order: order}, nil
}

func (s *OrderService) placeOrder(ctx context.Context, orderID string, in ports.CheckoutInput) (*domain.Order, []domain.CartLine, error) {
	if in.Cart == nil {
		return nil, nil, fmt.Errorf("checkout: %w", domain.ErrEmptyCart)
	}
	lines := in.Cart.Lines()
	if len(lines) == 0 {
		return nil, nil, fmt.Errorf("checkout: %w", domain.ErrEmptyCart)
	}

	items := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, domain.OrderItem{
			ProductID: l.ID,
			PartCode:  l.PartCode,
			Name:      l.Name,
			ImageURL:  l.ImageURL,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
		})
	}

	subtotal := domain.CartTotal(lines)
	shipping := s.cfg.ShippingFor(subtotal)
	now := s.now()

	order := &domain.Order{
		ID:              orderID,
		TrackingNumber:  generateTrackingNumber(),
		UserID:          domain.GuestUserID,
		Phone:           in.Contact.Phone,
		Items:           items,
		Subtotal:        subtotal,
		ShippingCost:    shipping,
		Total:           subtotal.Add(shipping),
		Status:          domain.StatusPreparing,
		ShippingAddress: in.Address,
		PaymentMethod:   domain.PaymentCreditCard,
		Notes:           in.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
		StatusHistory: []domain.StatusHistoryEntry{
			{Status: domain.StatusPreparing, Timestamp: now},
		},
		IdempotencyKey: in.IdempotencyKey,
	}
	if in.User != nil && in.User.ID != "" {
		order.UserID = in.User.ID
		order.StatusHistory[0].Actor = in.User.Email
	} else {
		order.GuestName = strings.TrimSpace(in.Contact.FirstName + " " + in.Contact.LastName)
		order.GuestEmail = in.Contact.Email
	}

	if err := s.repo.Append(ctx, order); err != nil {
		s.log.Error().Err(err).Str("order_id", orderID).Msg("failed to append order")
		return nil, nil, fmt.Errorf("checkout: %w", err)
	}
	return order, lines, nil
}

// GetOrder returns an order the requester may see.
func (s *OrderService) GetOrder(ctx context.Context, in ports.GetOrderInput) (*domain.Order, error) {
	order, err := s.repo.FindByID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if !canView(order, in.Requester, in.TrackingNumber) {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

// ListOrders returns the requester's orders, or every order for admins.
func (s *OrderService) ListOrders(ctx context.Context, in ports.ListOrdersInput) (*ports.ListOrdersResult, error) {
	if in.Requester == nil || in.Requester.ID == "" {
		return nil, domain.ErrForbidden
	}

	page, limit := normalizePage(in.Page, in.Limit)
	filter := ports.ListOrdersFilter{Page: page, Limit: limit}
	if !in.Requester.IsAdmin() {
		filter.UserID = in.Requester.ID
	}
	if in.Status != "" {
		status := domain.OrderStatus(in.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("list orders: %w: %q", domain.ErrInvalidStatus, in.Status)
		}
		filter.Status = status
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	return &ports.ListOrdersResult{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}, nil
}

// TransitionOrder moves an order along the status machine. Admin only.
func (s *OrderService) TransitionOrder(ctx context.Context, in ports.TransitionInput) (*domain.Order, error) {
	if !in.Requester.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	next := domain.OrderStatus(in.Status)
	if !next.Valid() {
		return nil, fmt.Errorf("transition order: %w: %q", domain.ErrInvalidStatus, in.Status)
	}

	order, err := s.repo.FindByID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("transition order: %w (from %s to %s)", domain.ErrInvalidTransition, order.Status, next)
	}

	at := in.At
	if at.IsZero() {
		at = s.now()
	}
	if err := s.repo.UpdateStatus(ctx, order.ID, order.Status, next, at, in.Requester.Email); err != nil {
		return nil, fmt.Errorf("transition order: %w", err)
	}

	s.log.Info().
		Str("order_id", order.ID).
		Str("from", string(order.Status)).
		Str("to", string(next)).
		Str("actor", in.Requester.Email).
		Msg("order status changed")

	return s.repo.FindByID(ctx, order.ID)
}

// RequestReturn flags a delivered order for return.
func (s *OrderService) RequestReturn(ctx context.Context, in ports.ReturnInput) (*domain.Order, error) {
	order, err := s.repo.FindByID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if !canView(order, in.Requester, in.TrackingNumber) {
		return nil, domain.ErrOrderNotFound
	}
	if !order.CanRequestReturn() {
		return nil, domain.ErrReturnNotAllowed
	}

	if err := s.repo.MarkReturnRequested(ctx, order.ID, s.now()); err != nil {
		if errors.Is(err, domain.ErrOrderConflict) {
			return nil, domain.ErrReturnNotAllowed
		}
		return nil, fmt.Errorf("request return: %w", err)
	}

	s.log.Info().Str("order_id", order.ID).Msg("return requested")
	return s.repo.FindByID(ctx, order.ID)
}

// Stats summarises the ledger for the admin dashboard.
func (s *OrderService) Stats(ctx context.Context) (*ports.LedgerStats, error) {
	grouped, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("order stats: %w", err)
	}

	out := &ports.LedgerStats{
		ByStatus: make(map[domain.OrderStatus]int64, len(domain.OrderStatuses)),
		Revenue:  decimal.Zero,
	}
	for _, status := range domain.OrderStatuses {
		st := grouped[status]
		out.ByStatus[status] = st.Count
		out.Total += st.Count
		out.Revenue = out.Revenue.Add(st.Revenue)
	}
	return out, nil
}

func canView(o *domain.Order, requester *domain.SessionUser, trackingNumber string) bool {
	switch {
	case requester.IsAdmin():
		return true
	case requester != nil && requester.ID != "" && !o.IsGuest() && o.UserID == requester.ID:
		return true
	case trackingNumber != "" && strings.EqualFold(trackingNumber, o.TrackingNumber):
		return true
	}
	return false
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

// generateTrackingNumber returns a tracking number in the format 724PBNNNNNNNN.
func generateTrackingNumber() string {
	n, err := rand.Int(rand.Reader, big.NewInt(100_000_000))
	if err != nil {
		return fmt.Sprintf("%s%08d", trackingPrefix, time.Now().UnixNano()%100_000_000)
	}
	return fmt.Sprintf("%s%08d", trackingPrefix, n.Int64())
}
