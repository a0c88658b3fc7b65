package domain

import "encoding/json"

// OrderMetadata is assembled at checkout and passed to the processor as opaque
// metadata. It comes back inside the webhook payload.
type OrderMetadata struct {
	Billing map[string]string `json:"billing"`
	Items   []CartItem        `json:"items"`
	Totals  Totals            `json:"totals"`
	Source  string            `json:"source"`
}

// PaidItem is a line item as read back from webhook metadata, with defaults applied.
type PaidItem struct {
	Name  string  `json:"name"`
	Qty   float64 `json:"qty"`
	Price float64 `json:"price"`
}

// PaidOrder is the normalised view of a successful charge. Billing is kept as
// received so its key order survives into notifications.
type PaidOrder struct {
	Reference     string          `json:"reference"`
	CustomerEmail string          `json:"customer_email"`
	Amount        float64         `json:"amount"`
	Billing       json.RawMessage `json:"billing"`
	Items         []PaidItem      `json:"items"`
}

const OrderSource = "snuz.ng"
