package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/724parcabul/storefront/internal/api/metrics"
	"github.com/724parcabul/storefront/internal/api/middleware"
	"github.com/724parcabul/storefront/internal/core/ports"
)

// HeaderIdempotencyKey lets clients retry a checkout safely.
const HeaderIdempotencyKey = "Idempotency-Key"

// OrderHandler handles checkout and customer-facing ledger reads.
type OrderHandler struct {
	service ports.OrderService
}

func NewOrderHandler(service ports.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// Checkout handles POST /v1/checkout.
//
// @Summary      Place an order from the session cart
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        X-Session-ID     header    string           false  "Session id"
// @Param        Idempotency-Key  header    string           false  "Idempotency key to prevent duplicate orders"
// @Param        body             body      checkoutRequest  true   "Contact, address and payment"
// @Success      201              {object}  checkoutResponse
// @Success      200              {object}  checkoutResponse  "Replay of an earlier checkout"
// @Failure      400              {object}  errorResponse
// @Failure      422              {object}  errorResponse
// @Router       /v1/checkout [post]
func (h *OrderHandler) Checkout(c echo.Context) error {
	start := time.Now()

	var req checkoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	st, err := sessionStore(c)
	if err != nil {
		return err
	}

	input := toCheckoutInput(req, st, middleware.CurrentUser(c), c.Request().Header.Get(HeaderIdempotencyKey))
	res, err := h.service.Checkout(c.Request().Context(), input)
	if err != nil {
		metrics.CheckoutDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return err
	}

	status := http.StatusCreated
	if res.AlreadyExisted {
		status = http.StatusOK
		metrics.CheckoutReplaysTotal.Inc()
		metrics.CheckoutDuration.WithLabelValues("replay").Observe(time.Since(start).Seconds())
	} else {
		metrics.OrdersCreatedTotal.WithLabelValues(metrics.CustomerLabel(res.Order.IsGuest())).Inc()
		metrics.CheckoutDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	}

	return c.JSON(status, checkoutResponse{
		orderResponse:  toOrderResponse(res.Order),
		AlreadyExisted: res.AlreadyExisted,
	})
}

// List handles GET /v1/orders: the signed-in customer's orders.
//
// @Summary      List my orders
// @Tags         orders
// @Produce      json
// @Security     BearerAuth
// @Param        page    query     int     false  "Page (1-based)"
// @Param        limit   query     int     false  "Page size (max 100)"
// @Param        status  query     string  false  "Filter by status"
// @Success      200     {object}  listOrdersResponse
// @Failure      401     {object}  errorResponse
// @Router       /v1/orders [get]
func (h *OrderHandler) List(c echo.Context) error {
	var q listOrdersQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}

	res, err := h.service.ListOrders(c.Request().Context(), ports.ListOrdersInput{
		Requester: middleware.CurrentUser(c),
		Status:    q.Status,
		Page:      q.Page,
		Limit:     q.Limit,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListResponse(res))
}

// Get handles GET /v1/orders/:id. Guests pass the tracking number.
//
// @Summary      Get an order
// @Tags         orders
// @Produce      json
// @Param        id        path      string  true   "Order id"
// @Param        tracking  query     string  false  "Tracking number (guest access)"
// @Success      200       {object}  orderResponse
// @Failure      404       {object}  errorResponse
// @Router       /v1/orders/{id} [get]
func (h *OrderHandler) Get(c echo.Context) error {
	order, err := h.service.GetOrder(c.Request().Context(), ports.GetOrderInput{
		OrderID:        c.Param("id"),
		Requester:      middleware.CurrentUser(c),
		TrackingNumber: c.QueryParam("tracking"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOrderResponse(order))
}

// RequestReturn handles POST /v1/orders/:id/return.
//
// @Summary      Request a return for a delivered order
// @Tags         orders
// @Produce      json
// @Param        id        path      string  true   "Order id"
// @Param        tracking  query     string  false  "Tracking number (guest access)"
// @Success      200       {object}  orderResponse
// @Failure      404       {object}  errorResponse
// @Failure      422       {object}  errorResponse
// @Router       /v1/orders/{id}/return [post]
func (h *OrderHandler) RequestReturn(c echo.Context) error {
	order, err := h.service.RequestReturn(c.Request().Context(), ports.ReturnInput{
		OrderID:        c.Param("id"),
		Requester:      middleware.CurrentUser(c),
		TrackingNumber: c.QueryParam("tracking"),
	})
	if err != nil {
		return err
	}

	metrics.ReturnRequestsTotal.Inc()
	return c.JSON(http.StatusOK, toOrderResponse(order))
}
