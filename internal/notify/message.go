package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/snuzng/storefront/internal/domain"
)

// Message is one email: a plain text part and an HTML part.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// OperatorMessage is the "new paid order" notification for the shop.
func OperatorMessage(to string, order domain.PaidOrder) Message {
	billing := prettyJSON(order.Billing)
	amount := naira(order.Amount)

	lines := make([]string, 0, len(order.Items))
	for _, it := range order.Items {
		lines = append(lines, fmt.Sprintf("- %s x%s (%s)", it.Name, number(it.Qty), naira(it.Price)))
	}

	text := fmt.Sprintf("Payment received.\nReference: %s\nAmount: %s\n\nCustomer: %s\n\nItems:\n%s\n\nBilling:\n%s",
		order.Reference, amount, order.CustomerEmail, strings.Join(lines, "\n"), billing)

	var b strings.Builder
	b.WriteString("\n    <h2>Payment received</h2>\n")
	fmt.Fprintf(&b, "    <p><strong>Reference:</strong> %s</p>\n", html.EscapeString(order.Reference))
	fmt.Fprintf(&b, "    <p><strong>Amount:</strong> %s</p>\n", html.EscapeString(amount))
	fmt.Fprintf(&b, "    <p><strong>Customer:</strong> %s</p>\n", html.EscapeString(order.CustomerEmail))
	b.WriteString("    <h3>Items</h3>\n    <ul>\n      ")
	for _, it := range order.Items {
		fmt.Fprintf(&b, "<li>%s × %s</li>", html.EscapeString(it.Name), number(it.Qty))
	}
	b.WriteString("\n    </ul>\n    <h3>Billing</h3>\n")
	fmt.Fprintf(&b, "    <pre style=\"white-space:pre-wrap\">%s</pre>\n  ", html.EscapeString(billing))

	return Message{
		To:      to,
		Subject: "New paid order " + order.Reference,
		Text:    text,
		HTML:    b.String(),
	}
}

// CustomerMessage is the receipt sent to the paying customer.
func CustomerMessage(order domain.PaidOrder) Message {
	return Message{
		To:      order.CustomerEmail,
		Subject: "Order received — " + order.Reference,
		Text:    "Thanks! We received your payment.\nReference: " + order.Reference,
		HTML:    "<p>Thanks! We received your payment.</p><p><strong>Reference:</strong> " + html.EscapeString(order.Reference) + "</p>",
	}
}

func naira(v float64) string {
	return "₦" + number(v)
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func prettyJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return "{}"
	}
	return out.String()
}
