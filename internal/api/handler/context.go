package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/724parcabul/storefront/internal/api/middleware"
	"github.com/724parcabul/storefront/internal/core/store"
)

// sessionStore returns the store attached by the Session middleware. Its
// absence is a wiring error, not a client error.
func sessionStore(c echo.Context) (*store.Store, error) {
	st := middleware.SessionStore(c)
	if st == nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "session not initialised")
	}
	return st, nil
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
