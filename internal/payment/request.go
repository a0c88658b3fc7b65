package payment

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// ParseInitializeBody reads a client request for Initialize. Only malformed
// JSON is an error here; missing or mistyped fields are left for Initialize
// to reject.
func ParseInitializeBody(body []byte) (InitializeParams, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		body = []byte("{}")
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return InitializeParams{}, &ValidationError{Message: "Invalid JSON body"}
	}

	p := InitializeParams{Amount: math.NaN(), Metadata: map[string]any{}}
	fields, ok := payload.(map[string]any)
	if !ok {
		return p, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return p, nil
	}

	p.Email = textField(fields["email"])
	p.CallbackURL = textField(fields["callback_url"])
	if a, ok := raw["amount"]; ok {
		if n, ok := ParseAmount(a); ok {
			p.Amount = n
		} else if string(bytes.TrimSpace(a)) == "null" {
			p.Amount = 0
		}
	}
	if m, ok := raw["metadata"]; ok {
		m = bytes.TrimSpace(m)
		if len(m) > 0 && (m[0] == '{' || m[0] == '[') {
			p.Metadata = m
		}
	}
	return p, nil
}

func textField(v any) string {
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
