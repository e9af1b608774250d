package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/724parcabul/storefront/internal/core/domain"
)

// TokenVerifier turns a bearer token into a session identity.
type TokenVerifier interface {
	Verify(token string) (*domain.SessionUser, error)
}

// Authenticate restores the session user from the bearer token. With
// required=false an absent header passes through anonymously; a present but
// invalid header is always rejected. The restored identity is also written to
// the session store, when one is attached.
func Authenticate(verifier TokenVerifier, required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				if required {
					return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
				}
				return next(c)
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			user, err := verifier.Verify(strings.TrimSpace(parts[1]))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(ctxUser, user)
			if st := SessionStore(c); st != nil {
				st.SetUser(user)
			}
			return next(c)
		}
	}
}

// CurrentUser returns the identity restored by Authenticate, or nil.
func CurrentUser(c echo.Context) *domain.SessionUser {
	u, _ := c.Get(ctxUser).(*domain.SessionUser)
	return u
}
