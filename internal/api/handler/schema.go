package handler

import (
	"github.com/shopspring/decimal"

	"github.com/724parcabul/storefront/internal/core/domain"
	"github.com/724parcabul/storefront/internal/core/store"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Session & cart ---

type addCartItemRequest struct {
	ID            string          `json:"id"            validate:"required"`
	PartCode      string          `json:"partCode"      validate:"required"`
	Name          string          `json:"name"          validate:"required"`
	ImageURL      string          `json:"imageUrl"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	StockSnapshot int             `json:"stockSnapshot" validate:"min=0"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type searchRequest struct {
	Query string `json:"query" validate:"max=200"`
}

type cartResponse struct {
	Items     []domain.CartLine `json:"items"`
	Total     decimal.Decimal   `json:"total"`
	ItemCount int               `json:"itemCount"`
	LineCount int               `json:"lineCount"`
}

type cartMutationResponse struct {
	Result store.Result `json:"result"`
	Cart   cartResponse `json:"cart"`
}

type sessionResponse struct {
	SessionID string `json:"sessionId"`
	store.State
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"itemCount"`
}

type themeResponse struct {
	DarkMode bool `json:"darkMode"`
}

type searchResponse struct {
	Query string `json:"query"`
}

// --- Checkout & orders ---

type contactRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName"  validate:"required"`
	Email     string `json:"email"     validate:"required,email"`
	Phone     string `json:"phone"     validate:"required,min=10"`
}

type addressRequest struct {
	Address    string `json:"address"    validate:"required"`
	City       string `json:"city"       validate:"required"`
	District   string `json:"district"   validate:"required"`
	PostalCode string `json:"postalCode" validate:"required,len=5,numeric"`
}

// paymentRequest is validated and then dropped; card data is never stored.
type paymentRequest struct {
	CardName   string `json:"cardName"   validate:"required"`
	CardNumber string `json:"cardNumber" validate:"required,cardnumber"`
	ExpiryDate string `json:"expiryDate" validate:"required,expiry"`
	CVV        string `json:"cvv"        validate:"required,len=3,numeric"`
}

type checkoutRequest struct {
	Contact contactRequest `json:"contact" validate:"required"`
	Address addressRequest `json:"address" validate:"required"`
	Payment paymentRequest `json:"payment" validate:"required"`
	Notes   string         `json:"notes"   validate:"max=1000"`
}

type listOrdersQuery struct {
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
	Status string `query:"status"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=preparing shipped delivered cancelled returned"`
}

type orderLinks struct {
	Self   string `json:"self"`
	Return string `json:"return,omitempty"`
}

type orderResponse struct {
	*domain.Order
	Links orderLinks `json:"_links"`
}

type checkoutResponse struct {
	orderResponse
	AlreadyExisted bool `json:"already_existed,omitempty"`
}

type listOrdersResponse struct {
	Items      []orderResponse `json:"items"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}

type statsResponse struct {
	Total    int64                        `json:"total"`
	ByStatus map[domain.OrderStatus]int64 `json:"by_status"`
	Revenue  decimal.Decimal              `json:"revenue"`
}

// --- Auth ---

type registerRequest struct {
	Email       string `json:"email"       validate:"required,email"`
	Password    string `json:"password"    validate:"required,min=6"`
	DisplayName string `json:"displayName" validate:"max=100"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string       `json:"token,omitempty"`
	User  *domain.User `json:"user,omitempty"`
}
