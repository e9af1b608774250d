package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/724parcabul/storefront/internal/api/middleware"
	"github.com/724parcabul/storefront/internal/core/domain"
)

// SessionHandler exposes the non-cart parts of the session store.
type SessionHandler struct{}

func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

// Get handles GET /v1/session.
//
// @Summary      Read the whole session state
// @Tags         session
// @Produce      json
// @Param        X-Session-ID  header    string  false  "Session id"
// @Success      200           {object}  sessionResponse
// @Router       /v1/session [get]
func (h *SessionHandler) Get(c echo.Context) error {
	st, err := sessionStore(c)
	if err != nil {
		return err
	}

	state := st.State()
	return c.JSON(http.StatusOK, sessionResponse{
		SessionID: middleware.SessionID(c),
		State:     state,
		Total:     domain.CartTotal(state.Cart),
		ItemCount: domain.CartItemCount(state.Cart),
	})
}

// ToggleTheme handles POST /v1/session/theme.
//
// @Summary      Flip dark mode
// @Tags         session
// @Produce      json
// @Param        X-Session-ID  header    string  false  "Session id"
// @Success      200           {object}  themeResponse
// @Router       /v1/session/theme [post]
func (h *SessionHandler) ToggleTheme(c echo.Context) error {
	st, err := sessionStore(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, themeResponse{DarkMode: st.ToggleTheme()})
}

// SetSearch handles PUT /v1/session/search. The text is kept in memory only.
//
// @Summary      Set the search text
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        X-Session-ID  header    string         false  "Session id"
// @Param        body          body      searchRequest  true   "Search text"
// @Success      200           {object}  searchResponse
// @Router       /v1/session/search [put]
func (h *SessionHandler) SetSearch(c echo.Context) error {
	var req searchRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	st, err := sessionStore(c)
	if err != nil {
		return err
	}

	st.SetSearchQuery(req.Query)
	return c.JSON(http.StatusOK, searchResponse{Query: st.SearchQuery()})
}
