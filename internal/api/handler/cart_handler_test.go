package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/724parcabul/storefront/internal/api/middleware"
	"github.com/724parcabul/storefront/internal/core/domain"
	"github.com/724parcabul/storefront/internal/core/store"
	"github.com/724parcabul/storefront/internal/infrastructure/memory"
)

type sessionFixture struct {
	e   *echo.Echo
	reg *store.Registry
}

func newSessionFixture() *sessionFixture {
	reg := store.NewRegistry(memory.NewSnapshotRepository(), nil, store.RegistryConfig{}, zerolog.Nop())
	return &sessionFixture{e: newTestEcho(), reg: reg}
}

// do runs h behind the Session middleware for session "s1".
func (f *sessionFixture) do(t *testing.T, method, path, body string, h echo.HandlerFunc, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	c, rec := f.context(method, path, body, params...)
	serve(f.e, c, middleware.Session(f.reg)(h))
	return rec
}

// run is do without error rendering.
func (f *sessionFixture) run(method, path, body string, h echo.HandlerFunc, params ...string) error {
	c, _ := f.context(method, path, body, params...)
	return middleware.Session(f.reg)(h)(c)
}

func (f *sessionFixture) context(method, path, body string, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set(middleware.HeaderSessionID, "s1")
	rec := httptest.NewRecorder()
	c := f.e.NewContext(req, rec)
	for i := 0; i+1 < len(params); i += 2 {
		c.SetParamNames(params[i])
		c.SetParamValues(params[i+1])
	}
	return c, rec
}

func decodeMutation(t *testing.T, rec *httptest.ResponseRecorder) cartMutationResponse {
	t.Helper()
	var resp cartMutationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

const brakePad = `{"id":"p1","partCode":"BP-100","name":"Fren Balatası","imageUrl":"/img/p1.jpg","unitPrice":"450.50","stockSnapshot":2}`

func TestCartHandler_AddClampsAtStock(t *testing.T) {
	f := newSessionFixture()
	h := NewCartHandler()

	var last cartMutationResponse
	for i := 0; i < 3; i++ {
		rec := f.do(t, http.MethodPost, "/v1/cart/items", brakePad, h.Add)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		last = decodeMutation(t, rec)
	}

	assert.Equal(t, store.OutcomeClamped, last.Result.Outcome)
	assert.Equal(t, 2, last.Result.Quantity)
	assert.Equal(t, 2, last.Cart.ItemCount)
	assert.Equal(t, 1, last.Cart.LineCount)
	assert.Equal(t, "901", last.Cart.Total.String())
}

func TestCartHandler_AddOutOfStock(t *testing.T) {
	f := newSessionFixture()
	h := NewCartHandler()

	err := f.run(http.MethodPost, "/v1/cart/items",
		`{"id":"p2","partCode":"X","name":"Yağ Filtresi","unitPrice":10,"stockSnapshot":0}`, h.Add)

	assert.True(t, errors.Is(err, domain.ErrOutOfStock), "got %v", err)
	assert.Empty(t, f.reg.Get(t.Context(), "s1").Lines())
}

func TestCartHandler_AddValidation(t *testing.T) {
	f := newSessionFixture()
	h := NewCartHandler()

	rec := f.do(t, http.MethodPost, "/v1/cart/items", `{"id":"p3","stockSnapshot":1}`, h.Add)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/cart/items",
		`{"id":"p3","partCode":"X","name":"Y","unitPrice":"-1","stockSnapshot":1}`, h.Add)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartHandler_UpdateAndRemove(t *testing.T) {
	f := newSessionFixture()
	h := NewCartHandler()
	f.do(t, http.MethodPost, "/v1/cart/items", brakePad, h.Add)

	rec := f.do(t, http.MethodPatch, "/v1/cart/items/p1", `{"quantity":5}`, h.Update, "id", "p1")
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeMutation(t, rec)
	assert.Equal(t, store.OutcomeClamped, res.Result.Outcome)
	assert.Equal(t, 2, res.Result.Quantity)

	rec = f.do(t, http.MethodPatch, "/v1/cart/items/p1", `{"quantity":0}`, h.Update, "id", "p1")
	require.Equal(t, http.StatusOK, rec.Code)
	res = decodeMutation(t, rec)
	assert.Equal(t, store.OutcomeRemoved, res.Result.Outcome)
	assert.Empty(t, res.Cart.Items)

	rec = f.do(t, http.MethodDelete, "/v1/cart/items/p1", "", h.Remove, "id", "p1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, store.OutcomeUnchanged, decodeMutation(t, rec).Result.Outcome)

	rec = f.do(t, http.MethodPatch, "/v1/cart/items/p1", `{}`, h.Update, "id", "p1")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "quantity is required")
}

func TestCartHandler_Clear(t *testing.T) {
	f := newSessionFixture()
	h := NewCartHandler()
	f.do(t, http.MethodPost, "/v1/cart/items", brakePad, h.Add)

	rec := f.do(t, http.MethodDelete, "/v1/cart", "", h.Clear)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Items)
	assert.Equal(t, 0, resp.ItemCount)
}

func TestSessionHandler_ThemeAndSearch(t *testing.T) {
	f := newSessionFixture()
	h := NewSessionHandler()

	rec := f.do(t, http.MethodPost, "/v1/session/theme", "", h.ToggleTheme)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"darkMode":true}`, rec.Body.String())

	rec = f.do(t, http.MethodPut, "/v1/session/search", `{"query":"fren balatası"}`, h.SetSearch)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/session", "", h.Get)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "s1", resp["sessionId"])
	assert.Equal(t, true, resp["darkMode"])
	assert.Equal(t, "fren balatası", resp["searchQuery"])
	assert.Nil(t, resp["user"])
	assert.Equal(t, float64(0), resp["itemCount"])
}

func TestAuthHandler_LoginAndLogoutTouchSessionUser(t *testing.T) {
	f := newSessionFixture()
	user := &domain.User{ID: "u-9", Email: "zeynep@example.com", Role: "user"}
	h := NewAuthHandler(&stubAuthService{
		loginFn: func(_ context.Context, email, password string) (string, *domain.User, error) {
			return "token", user, nil
		},
	})

	rec := f.do(t, http.MethodPost, "/v1/auth/login", `{"email":"zeynep@example.com","password":"pw"}`, h.Login)
	require.Equal(t, http.StatusOK, rec.Code)

	st := f.reg.Get(t.Context(), "s1")
	require.NotNil(t, st.User())
	assert.Equal(t, domain.RoleCustomer, st.User().Role)

	rec = f.do(t, http.MethodPost, "/v1/auth/logout", "", h.Logout)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, st.User())
}
