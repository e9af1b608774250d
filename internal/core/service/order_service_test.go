package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/724parcabul/storefront/internal/core/domain"
	"github.com/724parcabul/storefront/internal/core/ports"
	"github.com/724parcabul/storefront/internal/core/store"
	"github.com/724parcabul/storefront/internal/infrastructure/memory"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubGuard struct {
	claims   map[string]string
	err      error
	released []string
}

func newStubGuard() *stubGuard {
	return &stubGuard{claims: map[string]string{}}
}

func (g *stubGuard) Claim(_ context.Context, key, orderID string) (string, bool, error) {
	if g.err != nil {
		return "", false, g.err
	}
	if existing, ok := g.claims[key]; ok {
		return existing, false, nil
	}
	g.claims[key] = orderID
	return orderID, true, nil
}

func (g *stubGuard) Release(_ context.Context, key string) error {
	delete(g.claims, key)
	g.released = append(g.released, key)
	return nil
}

type failingOrderRepo struct {
	*memory.OrderRepository
	appendErr    error
	beforeAppend func()
}

func (r *failingOrderRepo) Append(ctx context.Context, o *domain.Order) error {
	if r.beforeAppend != nil {
		r.beforeAppend()
	}
	if r.appendErr != nil {
		return r.appendErr
	}
	return r.OrderRepository.Append(ctx, o)
}

var (
	admin    = &domain.SessionUser{ID: "admin-1", Email: "admin@724parcabul.com", Role: domain.RoleAdmin}
	customer = &domain.SessionUser{ID: "user-1", Email: "ali@example.com", Role: "user"}
	stranger = &domain.SessionUser{ID: "user-2", Email: "veli@example.com", Role: domain.RoleCustomer}
)

func part(id, price string, stock int) domain.CartCandidate {
	return domain.CartCandidate{
		ID:            id,
		PartCode:      "PC-" + id,
		Name:          "Part " + id,
		UnitPrice:     decimal.RequireFromString(price),
		StockSnapshot: stock,
	}
}

func cartWith(items ...domain.CartCandidate) *store.Store {
	s := store.New("724parcabul-store:checkout", nil)
	for _, it := range items {
		s.AddToCart(it)
	}
	return s
}

func newTestOrderService() (*OrderService, *memory.OrderRepository) {
	repo := memory.NewOrderRepository()
	svc := NewOrderService(repo, nil, DefaultCheckoutConfig(), zerolog.Nop())
	return svc, repo
}

func checkoutInput(cart ports.Cart, user *domain.SessionUser) ports.CheckoutInput {
	return ports.CheckoutInput{
		Cart: cart,
		User: user,
		Contact: ports.ContactInput{
			FirstName: "Ayşe",
			LastName:  "Yılmaz",
			Email:     "ayse@example.com",
			Phone:     "5551234567",
		},
		Address: domain.ShippingAddress{
			FirstName:  "Ayşe",
			LastName:   "Yılmaz",
			Address:    "Atatürk Cad. 1",
			City:       "İstanbul",
			District:   "Kadıköy",
			PostalCode: "34710",
		},
	}
}

func placeOrder(t *testing.T, svc *OrderService, user *domain.SessionUser) *domain.Order {
	t.Helper()
	res, err := svc.Checkout(context.Background(), checkoutInput(cartWith(part("p1", "120", 5)), user))
	require.NoError(t, err)
	return res.Order
}

// ---------------------------------------------------------------------------
// Checkout
// ---------------------------------------------------------------------------

func TestCheckout_BuildsOrderAndClearsCart(t *testing.T) {
	svc, repo := newTestOrderService()
	cart := cartWith(part("p1", "45.90", 5), part("p2", "100", 1))
	cart.AddToCart(part("p1", "45.90", 5))

	res, err := svc.Checkout(context.Background(), checkoutInput(cart, customer))
	require.NoError(t, err)
	require.False(t, res.AlreadyExisted)

	o := res.Order
	assert.True(t, strings.HasPrefix(o.TrackingNumber, "724PB"))
	assert.Len(t, o.TrackingNumber, len("724PB")+8)
	assert.Equal(t, domain.StatusPreparing, o.Status)
	assert.Equal(t, customer.ID, o.UserID)
	assert.Equal(t, domain.PaymentCreditCard, o.PaymentMethod)
	require.Len(t, o.Items, 2)
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.True(t, decimal.RequireFromString("191.80").Equal(o.Subtotal))
	assert.True(t, decimal.RequireFromString("29.99").Equal(o.ShippingCost))
	assert.True(t, decimal.RequireFromString("221.79").Equal(o.Total))
	require.Len(t, o.StatusHistory, 1)

	assert.Empty(t, cart.Lines())

	stored, err := repo.FindByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.TrackingNumber, stored.TrackingNumber)
}

func TestCheckout_FreeShippingBoundary(t *testing.T) {
	cases := []struct {
		price    string
		shipping string
	}{
		{"500", "29.99"},
		{"500.01", "0"},
		{"499.99", "29.99"},
	}
	for _, tc := range cases {
		svc, _ := newTestOrderService()
		res, err := svc.Checkout(context.Background(), checkoutInput(cartWith(part("p1", tc.price, 1)), nil))
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString(tc.shipping).Equal(res.Order.ShippingCost), "subtotal %s", tc.price)
	}
}

func TestCheckout_GuestRecordsContact(t *testing.T) {
	svc, _ := newTestOrderService()
	res, err := svc.Checkout(context.Background(), checkoutInput(cartWith(part("p1", "10", 1)), nil))
	require.NoError(t, err)

	assert.Equal(t, domain.GuestUserID, res.Order.UserID)
	assert.Equal(t, "Ayşe Yılmaz", res.Order.GuestName)
	assert.Equal(t, "ayse@example.com", res.Order.GuestEmail)
	assert.True(t, res.Order.IsGuest())
}

func TestCheckout_EmptyCart(t *testing.T) {
	svc, _ := newTestOrderService()
	_, err := svc.Checkout(context.Background(), checkoutInput(cartWith(), customer))
	assert.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestCheckout_IdempotentReplay(t *testing.T) {
	repo := memory.NewOrderRepository()
	guard := newStubGuard()
	svc := NewOrderService(repo, guard, DefaultCheckoutConfig(), zerolog.Nop())

	in := checkoutInput(cartWith(part("p1", "10", 3)), customer)
	in.IdempotencyKey = "idem-1"
	first, err := svc.Checkout(context.Background(), in)
	require.NoError(t, err)

	second := in
	second.Cart = cartWith(part("p9", "99", 3))
	replay, err := svc.Checkout(context.Background(), second)
	require.NoError(t, err)
	assert.True(t, replay.AlreadyExisted)
	assert.Equal(t, first.Order.ID, replay.Order.ID)
	assert.Len(t, second.Cart.Lines(), 1, "replay leaves the cart untouched")

	_, total, err := repo.List(context.Background(), ports.ListOrdersFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestCheckout_KeepsLinesAddedDuringCheckout(t *testing.T) {
	cart := cartWith(part("a", "10", 5), part("c", "20", 5))
	cart.AddToCart(part("c", "20", 5))

	repo := &failingOrderRepo{OrderRepository: memory.NewOrderRepository()}
	repo.beforeAppend = func() {
		cart.AddToCart(part("b", "30", 2))
		cart.AddToCart(part("c", "20", 5))
	}
	svc := NewOrderService(repo, nil, DefaultCheckoutConfig(), zerolog.Nop())

	res, err := svc.Checkout(context.Background(), checkoutInput(cart, customer))
	require.NoError(t, err)

	ordered := map[string]int{}
	for _, it := range res.Order.Items {
		ordered[it.ProductID] = it.Quantity
	}
	assert.Equal(t, map[string]int{"a": 1, "c": 2}, ordered)

	left := cart.Lines()
	require.Len(t, left, 2)
	assert.Equal(t, "c", left[0].ID)
	assert.Equal(t, 1, left[0].Quantity, "unit added mid-checkout stays")
	assert.Equal(t, "b", left[1].ID)
	assert.Equal(t, 1, left[1].Quantity)
}

func TestCheckout_ReleasesKeyOnFailure(t *testing.T) {
	repo := &failingOrderRepo{OrderRepository: memory.NewOrderRepository(), appendErr: errors.New("mongo down")}
	guard := newStubGuard()
	svc := NewOrderService(repo, guard, DefaultCheckoutConfig(), zerolog.Nop())

	cart := cartWith(part("p1", "10", 1))
	in := checkoutInput(cart, customer)
	in.IdempotencyKey = "idem-2"

	_, err := svc.Checkout(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, []string{"idem-2"}, guard.released)
	assert.Len(t, cart.Lines(), 1, "cart survives a failed checkout")

	repo.appendErr = nil
	res, err := svc.Checkout(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, res.AlreadyExisted)
}

func TestCheckout_GuardErrorDoesNotBlock(t *testing.T) {
	guard := newStubGuard()
	guard.err = errors.New("redis down")
	svc := NewOrderService(memory.NewOrderRepository(), guard, DefaultCheckoutConfig(), zerolog.Nop())

	in := checkoutInput(cartWith(part("p1", "10", 1)), customer)
	in.IdempotencyKey = "idem-3"
	res, err := svc.Checkout(context.Background(), in)
	require.NoError(t, err)
	assert.NotNil(t, res.Order)
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

func TestGetOrder_Access(t *testing.T) {
	svc, _ := newTestOrderService()
	mine := placeOrder(t, svc, customer)
	guest := placeOrder(t, svc, nil)
	ctx := context.Background()

	_, err := svc.GetOrder(ctx, ports.GetOrderInput{OrderID: mine.ID, Requester: customer})
	assert.NoError(t, err)
	_, err = svc.GetOrder(ctx, ports.GetOrderInput{OrderID: mine.ID, Requester: admin})
	assert.NoError(t, err)
	_, err = svc.GetOrder(ctx, ports.GetOrderInput{OrderID: mine.ID, Requester: stranger})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	_, err = svc.GetOrder(ctx, ports.GetOrderInput{OrderID: guest.ID})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	_, err = svc.GetOrder(ctx, ports.GetOrderInput{OrderID: guest.ID, TrackingNumber: guest.TrackingNumber})
	assert.NoError(t, err)
	_, err = svc.GetOrder(ctx, ports.GetOrderInput{OrderID: "missing", Requester: admin})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestListOrders_ScopesAndPaginates(t *testing.T) {
	svc, _ := newTestOrderService()
	for i := 0; i < 3; i++ {
		placeOrder(t, svc, customer)
	}
	placeOrder(t, svc, stranger)
	ctx := context.Background()

	mine, err := svc.ListOrders(ctx, ports.ListOrdersInput{Requester: customer, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, mine.Total)
	assert.Len(t, mine.Items, 2)
	assert.Equal(t, 2, mine.TotalPages)
	for _, o := range mine.Items {
		assert.Equal(t, customer.ID, o.UserID)
	}

	all, err := svc.ListOrders(ctx, ports.ListOrdersInput{Requester: admin, Limit: 500})
	require.NoError(t, err)
	assert.EqualValues(t, 4, all.Total)
	assert.Equal(t, maxLimit, all.Limit)

	_, err = svc.ListOrders(ctx, ports.ListOrdersInput{Requester: admin, Status: "lost"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = svc.ListOrders(ctx, ports.ListOrdersInput{})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

// ---------------------------------------------------------------------------
// Transitions
// ---------------------------------------------------------------------------

func TestTransitionOrder_CancelThenShipRejected(t *testing.T) {
	svc, _ := newTestOrderService()
	o := placeOrder(t, svc, customer)
	ctx := context.Background()

	cancelled, err := svc.TransitionOrder(ctx, ports.TransitionInput{OrderID: o.ID, Status: "cancelled", Requester: admin})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	require.Len(t, cancelled.StatusHistory, 2)
	assert.Equal(t, admin.Email, cancelled.StatusHistory[1].Actor)

	_, err = svc.TransitionOrder(ctx, ports.TransitionInput{OrderID: o.ID, Status: "shipped", Requester: admin})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	got, err := svc.GetOrder(ctx, ports.GetOrderInput{OrderID: o.ID, Requester: admin})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
}

func TestTransitionOrder_FullLifecycle(t *testing.T) {
	svc, _ := newTestOrderService()
	o := placeOrder(t, svc, customer)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, next := range []string{"shipped", "delivered", "returned"} {
		got, err := svc.TransitionOrder(ctx, ports.TransitionInput{OrderID: o.ID, Status: next, Requester: admin, At: at})
		require.NoError(t, err, next)
		assert.Equal(t, domain.OrderStatus(next), got.Status)
		assert.Equal(t, at, got.UpdatedAt)
	}
}

func TestTransitionOrder_Guards(t *testing.T) {
	svc, _ := newTestOrderService()
	o := placeOrder(t, svc, customer)
	ctx := context.Background()

	_, err := svc.TransitionOrder(ctx, ports.TransitionInput{OrderID: o.ID, Status: "shipped", Requester: customer})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.TransitionOrder(ctx, ports.TransitionInput{OrderID: o.ID, Status: "shipped"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.TransitionOrder(ctx, ports.TransitionInput{OrderID: o.ID, Status: "teleported", Requester: admin})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	_, err = svc.TransitionOrder(ctx, ports.TransitionInput{OrderID: o.ID, Status: "delivered", Requester: admin})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = svc.TransitionOrder(ctx, ports.TransitionInput{OrderID: "missing", Status: "shipped", Requester: admin})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

// ---------------------------------------------------------------------------
// Returns and stats
// ---------------------------------------------------------------------------

func TestRequestReturn(t *testing.T) {
	svc, _ := newTestOrderService()
	o := placeOrder(t, svc, customer)
	ctx := context.Background()

	_, err := svc.RequestReturn(ctx, ports.ReturnInput{OrderID: o.ID, Requester: customer})
	assert.ErrorIs(t, err, domain.ErrReturnNotAllowed, "not delivered yet")

	for _, next := range []string{"shipped", "delivered"} {
		_, err := svc.TransitionOrder(ctx, ports.TransitionInput{OrderID: o.ID, Status: next, Requester: admin})
		require.NoError(t, err)
	}

	_, err = svc.RequestReturn(ctx, ports.ReturnInput{OrderID: o.ID, Requester: stranger})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	got, err := svc.RequestReturn(ctx, ports.ReturnInput{OrderID: o.ID, Requester: customer})
	require.NoError(t, err)
	assert.True(t, got.ReturnRequested)
	require.NotNil(t, got.ReturnRequestedAt)
	assert.Equal(t, domain.StatusDelivered, got.Status, "the flag is not a transition")

	_, err = svc.RequestReturn(ctx, ports.ReturnInput{OrderID: o.ID, Requester: customer})
	assert.ErrorIs(t, err, domain.ErrReturnNotAllowed)
}

func TestStats(t *testing.T) {
	svc, _ := newTestOrderService()
	a := placeOrder(t, svc, customer)
	placeOrder(t, svc, customer)
	ctx := context.Background()
	_, err := svc.TransitionOrder(ctx, ports.TransitionInput{OrderID: a.ID, Status: "shipped", Requester: admin})
	require.NoError(t, err)

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, st.Total)
	assert.EqualValues(t, 1, st.ByStatus[domain.StatusPreparing])
	assert.EqualValues(t, 1, st.ByStatus[domain.StatusShipped])
	assert.EqualValues(t, 0, st.ByStatus[domain.StatusReturned])
	// 2 × (120 + 29.99)
	assert.True(t, decimal.RequireFromString("299.98").Equal(st.Revenue))
}
