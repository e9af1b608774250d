package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/724parcabul/storefront/internal/api/middleware"
	"github.com/724parcabul/storefront/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a customer account.
//
// @Summary      Register a new customer
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Account details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, authResponse{User: user})
}

// Login authenticates a user, returns a JWT and signs the session in.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        X-Session-ID  header    string        false  "Session id"
// @Param        body          body      loginRequest  true   "Login credentials"
// @Success      200           {object}  authResponse
// @Failure      400           {object}  errorResponse
// @Failure      401           {object}  errorResponse
// @Router       /v1/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, user, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	if st := middleware.SessionStore(c); st != nil {
		st.SetUser(user.Session())
	}
	return c.JSON(http.StatusOK, authResponse{Token: token, User: user})
}

// Logout signs the session out. The cart and preferences stay.
//
// @Summary      Logout
// @Tags         auth
// @Param        X-Session-ID  header  string  false  "Session id"
// @Success      204
// @Router       /v1/auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	st, err := sessionStore(c)
	if err != nil {
		return err
	}
	st.SetUser(nil)
	return c.NoContent(http.StatusNoContent)
}
