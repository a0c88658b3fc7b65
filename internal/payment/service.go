// Package payment holds the initialize and verify operations behind the
// storefront's payment endpoints and its own checkout page.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/snuzng/storefront/internal/domain"
	"github.com/snuzng/storefront/internal/paystack"
)

// Processor is the part of the Paystack client the service uses.
type Processor interface {
	Configured() bool
	Initialize(ctx context.Context, req paystack.InitializeRequest) (*paystack.Response, error)
	Verify(ctx context.Context, reference string) (*paystack.Response, error)
}

// InitializeParams are the validated inputs of a new transaction. Amount is in naira.
// Metadata is forwarded untouched.
type InitializeParams struct {
	Email       string
	Amount      float64
	CallbackURL string
	Metadata    any
}

type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type Service struct {
	processor Processor
}

func NewService(processor Processor) *Service {
	return &Service{processor: processor}
}

// Configured reports whether a secret key is set.
func (s *Service) Configured() bool {
	return s.processor.Configured()
}

// Initialize validates the params, converts the amount to kobo, and starts a
// card-only transaction.
func (s *Service) Initialize(ctx context.Context, p InitializeParams) (*InitializeResult, error) {
	if !s.processor.Configured() {
		return nil, ErrMissingSecret
	}

	p.Email = strings.TrimSpace(p.Email)
	p.CallbackURL = strings.TrimSpace(p.CallbackURL)
	if p.Email == "" {
		return nil, &ValidationError{Message: "email is required"}
	}
	if math.IsNaN(p.Amount) || math.IsInf(p.Amount, 0) || p.Amount <= 0 {
		return nil, &ValidationError{Message: "amount must be > 0"}
	}
	if p.Amount > MaxAmount {
		return nil, &ValidationError{Message: "amount is too large"}
	}
	if p.CallbackURL == "" {
		return nil, &ValidationError{Message: "callback_url is required"}
	}
	if p.Metadata == nil {
		p.Metadata = map[string]any{}
	}

	resp, err := s.processor.Initialize(ctx, paystack.InitializeRequest{
		Email:       p.Email,
		Amount:      ToMinorUnits(p.Amount),
		Currency:    domain.Currency,
		CallbackURL: p.CallbackURL,
		Channels:    []string{"card"},
		Metadata:    p.Metadata,
	})
	if err != nil {
		return nil, err
	}

	var body struct {
		Status bool              `json:"status"`
		Data   *InitializeResult `json:"data"`
	}
	details, parsed := parseBody(resp.Body)
	if parsed {
		if err := json.Unmarshal(resp.Body, &body); err != nil {
			body.Status = false
		}
	}
	if !resp.OK() || !parsed || !body.Status || body.Data == nil {
		return nil, &UpstreamError{Op: "initialize", Status: resp.Status, Details: details}
	}
	return body.Data, nil
}

// Verify looks up a reference and returns the processor body verbatim.
func (s *Service) Verify(ctx context.Context, reference string) (json.RawMessage, error) {
	if !s.processor.Configured() {
		return nil, ErrMissingSecret
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, &ValidationError{Message: "reference is required"}
	}

	resp, err := s.processor.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}
	details, parsed := parseBody(resp.Body)
	if !resp.OK() || !parsed {
		return nil, &UpstreamError{Op: "verify", Status: resp.Status, Details: details}
	}
	return details, nil
}

// Confirmed reports whether a verify body describes a successful charge.
func Confirmed(body json.RawMessage) bool {
	var v struct {
		Status bool `json:"status"`
		Data   struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return false
	}
	return v.Status && v.Data.Status == "success"
}

// MaxAmount is the largest naira amount whose kobo value is still an exact
// integer in a float64, well inside int64.
const MaxAmount = float64(1<<53) / 100

// ToMinorUnits converts naira to kobo, rounding half away from zero.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// ParseAmount accepts a JSON number or a numeric string.
func ParseAmount(raw json.RawMessage) (float64, bool) {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseBody returns the body as JSON when it parses to a truthy value.
// null, false, 0 and "" count as no body at all.
func parseBody(body []byte) (json.RawMessage, bool) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, false
	}
	switch x := v.(type) {
	case nil:
		return nil, false
	case bool:
		if !x {
			return json.RawMessage(bytes.TrimSpace(body)), false
		}
	case float64:
		if x == 0 {
			return json.RawMessage(bytes.TrimSpace(body)), false
		}
	case string:
		if x == "" {
			return json.RawMessage(bytes.TrimSpace(body)), false
		}
	}
	return json.RawMessage(bytes.TrimSpace(body)), true
}
