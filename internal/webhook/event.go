package webhook

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/snuzng/storefront/internal/domain"
)

const EventChargeSuccess = "charge.success"

// Event is the envelope of a processor notification. A payload that is not a
// JSON object, or whose event is not a string, yields an empty Name.
type Event struct {
	Name string
	Data json.RawMessage
}

func parseEvent(raw []byte) (Event, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return Event{}, ErrInvalidJSON
	}
	if _, ok := v.(map[string]any); !ok {
		return Event{}, nil
	}

	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, nil
	}
	var name string
	if err := json.Unmarshal(env["event"], &name); err != nil {
		name = ""
	}
	return Event{Name: name, Data: env["data"]}, nil
}

type chargeData struct {
	Reference any             `json:"reference"`
	Amount    any             `json:"amount"`
	Customer  json.RawMessage `json:"customer"`
	Metadata  json.RawMessage `json:"metadata"`
}

type chargeMetadata struct {
	Billing json.RawMessage `json:"billing"`
	Items   json.RawMessage `json:"items"`
}

type chargeItem struct {
	Name  any `json:"name"`
	Qty   any `json:"qty"`
	Price any `json:"price"`
}

// PaidOrderFromCharge resolves every optional field of a charge.success data
// object to its default: missing reference and email are empty, a non-numeric
// amount is 0, billing falls back to {} and items to none. Items default to
// name "Item", qty 1 and price 0.
func PaidOrderFromCharge(data json.RawMessage) domain.PaidOrder {
	order := domain.PaidOrder{
		Billing: json.RawMessage(`{}`),
		Items:   []domain.PaidItem{},
	}

	var d chargeData
	if !isObject(data) || json.Unmarshal(data, &d) != nil {
		return order
	}
	order.Reference = text(d.Reference)
	order.Amount = number(d.Amount) / 100

	if isObject(d.Customer) {
		var c struct {
			Email any `json:"email"`
		}
		if json.Unmarshal(d.Customer, &c) == nil {
			order.CustomerEmail = text(c.Email)
		}
	}

	var meta chargeMetadata
	if !isObject(d.Metadata) || json.Unmarshal(d.Metadata, &meta) != nil {
		return order
	}
	if isObject(meta.Billing) {
		order.Billing = bytes.TrimSpace(meta.Billing)
	}

	var items []json.RawMessage
	if json.Unmarshal(meta.Items, &items) != nil {
		return order
	}
	for _, raw := range items {
		var it chargeItem
		if isObject(raw) {
			_ = json.Unmarshal(raw, &it)
		}
		item := domain.PaidItem{
			Name:  text(it.Name),
			Qty:   number(it.Qty),
			Price: number(it.Price),
		}
		if item.Name == "" {
			item.Name = "Item"
		}
		if item.Qty == 0 {
			item.Qty = 1
		}
		order.Items = append(order.Items, item)
	}
	return order
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

// text renders a scalar the way it would appear in a message; zero values are empty.
func text(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		if x != 0 {
			return strconv.FormatFloat(x, 'f', -1, 64)
		}
	case bool:
		if x {
			return "true"
		}
	}
	return ""
}

// number accepts JSON numbers and numeric strings. Anything else is 0.
func number(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(n) {
			return 0
		}
		return n
	case bool:
		if x {
			return 1
		}
	}
	return 0
}
