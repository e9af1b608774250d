package domain

import "github.com/shopspring/decimal"

// CartLine is one product's presence in a cart. Price and stock are
// snapshots taken when the product was first added.
type CartLine struct {
	ID            string          `json:"id"`
	PartCode      string          `json:"partCode"`
	Name          string          `json:"name"`
	ImageURL      string          `json:"imageUrl"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	Quantity      int             `json:"quantity"`
	StockSnapshot int             `json:"stockSnapshot"`
}

// Subtotal returns UnitPrice × Quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartCandidate is the product data handed to AddToCart.
type CartCandidate struct {
	ID            string
	PartCode      string
	Name          string
	ImageURL      string
	UnitPrice     decimal.Decimal
	StockSnapshot int
}

// Line builds a new cart line from the candidate with the given quantity.
func (c CartCandidate) Line(quantity int) CartLine {
	return CartLine{
		ID:            c.ID,
		PartCode:      c.PartCode,
		Name:          c.Name,
		ImageURL:      c.ImageURL,
		UnitPrice:     c.UnitPrice,
		Quantity:      quantity,
		StockSnapshot: c.StockSnapshot,
	}
}

// SnapshotVersion is the version written into every persisted Snapshot.
const SnapshotVersion = 1

// Snapshot is the persisted projection of a session store. User identity and
// search text are never part of it.
type Snapshot struct {
	Version  int        `json:"version"`
	Cart     []CartLine `json:"cart"`
	DarkMode bool       `json:"darkMode"`
}

// CartTotal sums UnitPrice × Quantity over lines.
func CartTotal(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// CartItemCount sums quantities over lines.
func CartItemCount(lines []CartLine) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}
