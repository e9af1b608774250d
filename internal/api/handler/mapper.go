package handler

import (
	"github.com/724parcabul/storefront/internal/core/domain"
	"github.com/724parcabul/storefront/internal/core/ports"
	"github.com/724parcabul/storefront/internal/core/store"
)

// --- Request → Service input ---

func toCandidate(req addCartItemRequest) domain.CartCandidate {
	return domain.CartCandidate{
		ID:            req.ID,
		PartCode:      req.PartCode,
		Name:          req.Name,
		ImageURL:      req.ImageURL,
		UnitPrice:     req.UnitPrice,
		StockSnapshot: req.StockSnapshot,
	}
}

func toCheckoutInput(req checkoutRequest, cart ports.Cart, user *domain.SessionUser, idempotencyKey string) ports.CheckoutInput {
	return ports.CheckoutInput{
		Cart: cart,
		User: user,
		Contact: ports.ContactInput{
			FirstName: req.Contact.FirstName,
			LastName:  req.Contact.LastName,
			Email:     req.Contact.Email,
			Phone:     req.Contact.Phone,
		},
		Address: domain.ShippingAddress{
			FirstName:  req.Contact.FirstName,
			LastName:   req.Contact.LastName,
			Address:    req.Address.Address,
			City:       req.Address.City,
			District:   req.Address.District,
			PostalCode: req.Address.PostalCode,
		},
		Notes:          req.Notes,
		IdempotencyKey: idempotencyKey,
	}
}

// --- Service output → Response ---

func toCartResponse(st *store.Store) cartResponse {
	lines := st.Lines()
	return cartResponse{
		Items:     lines,
		Total:     domain.CartTotal(lines),
		ItemCount: domain.CartItemCount(lines),
		LineCount: len(lines),
	}
}

func toOrderResponse(o *domain.Order) orderResponse {
	links := orderLinks{Self: "/v1/orders/" + o.ID}
	if o.CanRequestReturn() {
		links.Return = "/v1/orders/" + o.ID + "/return"
	}
	return orderResponse{Order: o, Links: links}
}

func toListResponse(res *ports.ListOrdersResult) listOrdersResponse {
	items := make([]orderResponse, 0, len(res.Items))
	for _, o := range res.Items {
		items = append(items, toOrderResponse(o))
	}
	return listOrdersResponse{
		Items:      items,
		Total:      res.Total,
		Page:       res.Page,
		Limit:      res.Limit,
		TotalPages: res.TotalPages,
	}
}
