package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/724parcabul/storefront/internal/core/domain"
)

// CartHandler exposes the cart operations of the caller's session store.
type CartHandler struct{}

func NewCartHandler() *CartHandler {
	return &CartHandler{}
}

// Get handles GET /v1/cart.
//
// @Summary      Get the session cart
// @Tags         cart
// @Produce      json
// @Param        X-Session-ID  header    string  false  "Session id"
// @Success      200           {object}  cartResponse
// @Router       /v1/cart [get]
func (h *CartHandler) Get(c echo.Context) error {
	st, err := sessionStore(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCartResponse(st))
}

// Add handles POST /v1/cart/items. Products without stock are refused before
// they reach the store.
//
// @Summary      Add a product to the cart
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        X-Session-ID  header    string              false  "Session id"
// @Param        body          body      addCartItemRequest  true   "Product snapshot"
// @Success      200           {object}  cartMutationResponse
// @Failure      400           {object}  errorResponse
// @Failure      409           {object}  errorResponse
// @Router       /v1/cart/items [post]
func (h *CartHandler) Add(c echo.Context) error {
	var req addCartItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.UnitPrice.IsNegative() {
		return echo.NewHTTPError(http.StatusBadRequest, "unitprice must not be negative")
	}
	if req.StockSnapshot < 1 {
		return domain.ErrOutOfStock
	}

	st, err := sessionStore(c)
	if err != nil {
		return err
	}

	res := st.AddToCart(toCandidate(req))
	return c.JSON(http.StatusOK, cartMutationResponse{Result: res, Cart: toCartResponse(st)})
}

// Update handles PATCH /v1/cart/items/:id. A quantity of zero or less removes the line.
//
// @Summary      Set a line quantity
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        X-Session-ID  header    string                 false  "Session id"
// @Param        id            path      string                 true   "Product id"
// @Param        body          body      updateQuantityRequest  true   "New quantity"
// @Success      200           {object}  cartMutationResponse
// @Failure      400           {object}  errorResponse
// @Router       /v1/cart/items/{id} [patch]
func (h *CartHandler) Update(c echo.Context) error {
	var req updateQuantityRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	st, err := sessionStore(c)
	if err != nil {
		return err
	}

	res := st.UpdateQuantity(c.Param("id"), *req.Quantity)
	return c.JSON(http.StatusOK, cartMutationResponse{Result: res, Cart: toCartResponse(st)})
}

// Remove handles DELETE /v1/cart/items/:id. Removing an absent line is not an error.
//
// @Summary      Remove a line
// @Tags         cart
// @Produce      json
// @Param        X-Session-ID  header    string  false  "Session id"
// @Param        id            path      string  true   "Product id"
// @Success      200           {object}  cartMutationResponse
// @Router       /v1/cart/items/{id} [delete]
func (h *CartHandler) Remove(c echo.Context) error {
	st, err := sessionStore(c)
	if err != nil {
		return err
	}

	res := st.RemoveFromCart(c.Param("id"))
	return c.JSON(http.StatusOK, cartMutationResponse{Result: res, Cart: toCartResponse(st)})
}

// Clear handles DELETE /v1/cart.
//
// @Summary      Empty the cart
// @Tags         cart
// @Produce      json
// @Param        X-Session-ID  header    string  false  "Session id"
// @Success      200           {object}  cartResponse
// @Router       /v1/cart [delete]
func (h *CartHandler) Clear(c echo.Context) error {
	st, err := sessionStore(c)
	if err != nil {
		return err
	}

	st.ClearCart()
	return c.JSON(http.StatusOK, toCartResponse(st))
}
