package pricing

import (
	"math"

	"github.com/snuzng/storefront/internal/domain"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// ComputeTotals derives subtotal, shipping, VAT and total from the line items.
// No rounding is applied here; FormatNGN rounds for display only.
func ComputeTotals(items []domain.CartItem) domain.Totals {
	var subtotal float64
	for _, it := range items {
		subtotal += it.Price * float64(it.Qty)
	}
	shipping := domain.DefaultShipping
	vat := subtotal * domain.DefaultVATRate
	return domain.Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		VAT:      vat,
		Total:    subtotal + shipping + vat,
	}
}

// Count is the total number of units, shown on the cart badge.
func Count(items []domain.CartItem) int {
	n := 0
	for _, it := range items {
		n += it.Qty
	}
	return n
}

// FormatNGN renders an amount in whole naira with thousands separators, e.g. "₦10,213".
func FormatNGN(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	return printer.Sprintf("₦%d", int64(math.Round(amount)))
}
