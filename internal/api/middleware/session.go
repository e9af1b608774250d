package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/724parcabul/storefront/internal/api/metrics"
	"github.com/724parcabul/storefront/internal/core/store"
)

// HeaderSessionID carries the opaque browser session id in both directions.
const HeaderSessionID = "X-Session-ID"

const (
	ctxSessionID = "session_id"
	ctxStore     = "session_store"
	ctxUser      = "session_user"

	maxSessionIDLength = 128
)

// Session attaches the caller's session store to the request. A session id is
// issued when the request carries none, and echoed on every response.
func Session(reg *store.Registry) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(HeaderSessionID)
			if id == "" || len(id) > maxSessionIDLength {
				id = uuid.NewString()
			}

			st := reg.Get(c.Request().Context(), id)
			metrics.SessionsActive.Set(float64(reg.Len()))

			c.Response().Header().Set(HeaderSessionID, id)
			c.Set(ctxSessionID, id)
			c.Set(ctxStore, st)
			return next(c)
		}
	}
}

// SessionID returns the session id set by Session.
func SessionID(c echo.Context) string {
	id, _ := c.Get(ctxSessionID).(string)
	return id
}

// SessionStore returns the store set by Session, or nil.
func SessionStore(c echo.Context) *store.Store {
	st, _ := c.Get(ctxStore).(*store.Store)
	return st
}
