// Package paystack is a thin HTTP client for the two Paystack transaction
// endpoints the storefront needs. It returns the processor's raw status and
// body; interpreting them is left to the payment package.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const DefaultBaseURL = "https://api.paystack.co"

// maxBodySize bounds how much of a processor response is buffered.
const maxBodySize = 1 << 20

var errServerStatus = errors.New("paystack server error")

// InitializeRequest is the body sent to /transaction/initialize. Amount is in kobo.
type InitializeRequest struct {
	Email       string   `json:"email"`
	Amount      int64    `json:"amount"`
	Currency    string   `json:"currency"`
	CallbackURL string   `json:"callback_url"`
	Channels    []string `json:"channels"`
	// Metadata is marshalled as given: a map, a struct or raw JSON.
	Metadata any `json:"metadata"`
}

// Response is what the processor answered. Body may be any bytes.
type Response struct {
	Status int
	Body   []byte
}

func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

type Client struct {
	baseURL    string
	secret     string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker[*Response]
}

func NewClient(baseURL, secret string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cb: gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
			Name:        "paystack",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// Configured reports whether a secret key is available.
func (c *Client) Configured() bool {
	return c.secret != ""
}

func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal initialize request failed: %w", err)
	}
	return c.do(ctx, http.MethodPost, "/transaction/initialize", body)
}

// Verify looks up a transaction. The reference is path-escaped.
func (c *Client) Verify(ctx context.Context, reference string) (*Response, error) {
	return c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
}

// do runs one call through the breaker. Only transport failures and 5xx
// answers count against it; the processor's reply is returned either way.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (*Response, error) {
	resp, err := c.cb.Execute(func() (*Response, error) {
		resp, err := c.send(ctx, method, path, body)
		if err != nil {
			return nil, err
		}
		if resp.Status >= 500 {
			return resp, errServerStatus
		}
		return resp, nil
	})
	if errors.Is(err, errServerStatus) {
		return resp, nil
	}
	if err != nil {
		return nil, fmt.Errorf("paystack %s %s: %w", method, path, err)
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, method, path string, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return &Response{Status: httpResp.StatusCode, Body: data}, nil
}
