package domain

const (
	QtyMin = 1
	QtyMax = 99

	// DefaultUnitPrice is used when a displayed price cannot be parsed.
	DefaultUnitPrice = 9500.0
	DefaultVATRate   = 0.075
	DefaultShipping  = 0.0

	Currency = "NGN"
)

// CartItem is one line item, keyed by the slug of its product name.
type CartItem struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Image string  `json:"image"`
	Price float64 `json:"price"`
	Qty   int     `json:"qty"`
}

// Totals is derived from the cart on every render and never stored.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	VAT      float64 `json:"vat"`
	Total    float64 `json:"total"`
}

// ClampQty keeps a quantity inside [QtyMin, QtyMax].
func ClampQty(qty int) int {
	if qty < QtyMin {
		return QtyMin
	}
	if qty > QtyMax {
		return QtyMax
	}
	return qty
}
