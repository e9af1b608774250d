package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/724parcabul/storefront/internal/api/metrics"
	"github.com/724parcabul/storefront/internal/api/middleware"
	"github.com/724parcabul/storefront/internal/core/ports"
)

// AdminHandler serves the order management dashboard. Routes are mounted
// behind RBAC(admin).
type AdminHandler struct {
	service ports.OrderService
}

func NewAdminHandler(service ports.OrderService) *AdminHandler {
	return &AdminHandler{service: service}
}

// ListOrders handles GET /v1/admin/orders.
//
// @Summary      List every order
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        page    query     int     false  "Page (1-based)"
// @Param        limit   query     int     false  "Page size (max 100)"
// @Param        status  query     string  false  "Filter by status"
// @Success      200     {object}  listOrdersResponse
// @Failure      403     {object}  errorResponse
// @Router       /v1/admin/orders [get]
func (h *AdminHandler) ListOrders(c echo.Context) error {
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

// UpdateStatus handles PATCH /v1/admin/orders/:id/status.
//
// @Summary      Move an order along its lifecycle
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "Order id"
// @Param        body  body      updateStatusRequest  true  "Target status"
// @Success      200   {object}  orderResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/admin/orders/{id}/status [patch]
func (h *AdminHandler) UpdateStatus(c echo.Context) error {
	var req updateStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	order, err := h.service.TransitionOrder(c.Request().Context(), ports.TransitionInput{
		OrderID:   c.Param("id"),
		Status:    req.Status,
		Requester: middleware.CurrentUser(c),
	})
	if err != nil {
		return err
	}

	metrics.OrderTransitionsTotal.WithLabelValues(string(order.Status)).Inc()
	return c.JSON(http.StatusOK, toOrderResponse(order))
}

// Stats handles GET /v1/admin/stats.
//
// @Summary      Ledger summary
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  statsResponse
// @Router       /v1/admin/stats [get]
func (h *AdminHandler) Stats(c echo.Context) error {
	st, err := h.service.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statsResponse{
		Total:    st.Total,
		ByStatus: st.ByStatus,
		Revenue:  st.Revenue,
	})
}
