package http

import (
	"context"
	"encoding/json"
	"html"
	"net/http"
	"net/url"
	"testing"

	"github.com/snuzng/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCheckoutForm() url.Values {
	return url.Values{
		"first_name": {"Ada"},
		"last_name":  {"Obi"},
		"country":    {"Nigeria"},
		"address":    {"1 Marina"},
		"city":       {"Lagos"},
		"state":      {"Lagos"},
		"phone":      {"08012345678"},
		"email":      {"ada@example.com"},
		"pay":        {"card"},
		"terms":      {"1"},
	}
}

func withForm(base url.Values, edit func(url.Values)) url.Values {
	out := url.Values{}
	for k, v := range base {
		out[k] = append([]string(nil), v...)
	}
	edit(out)
	return out
}

func TestCheckout_ChecksRunInOrder(t *testing.T) {
	item := domain.CartItem{ID: "zyn-cool-mint", Name: "Zyn Cool Mint", Price: 9500, Qty: 2}

	tests := []struct {
		name     string
		form     url.Values
		seedCart bool
		want     string
	}{
		{
			name:     "non card payment wins over everything",
			form:     url.Values{"pay": {"transfer"}},
			seedCart: false,
			want:     errCardOnly,
		},
		{
			name:     "required fields",
			form:     withForm(validCheckoutForm(), func(v url.Values) { v.Del("city"); v.Del("terms") }),
			seedCart: false,
			want:     errRequiredFields,
		},
		{
			name:     "malformed email counts as incomplete",
			form:     withForm(validCheckoutForm(), func(v url.Values) { v.Set("email", "not-an-email") }),
			seedCart: true,
			want:     errRequiredFields,
		},
		{
			name:     "terms",
			form:     withForm(validCheckoutForm(), func(v url.Values) { v.Del("terms") }),
			seedCart: false,
			want:     errTerms,
		},
		{
			name:     "empty cart",
			form:     withForm(validCheckoutForm(), func(v url.Values) { v.Del("email") }),
			seedCart: false,
			want:     errEmptyCart,
		},
		{
			name:     "email",
			form:     withForm(validCheckoutForm(), func(v url.Values) { v.Set("email", "  ") }),
			seedCart: true,
			want:     errEmailRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			if tt.seedCart {
				app.seedCart(t, item)
			}

			resp, body := app.postForm(t, "/checkout", tt.form)
			assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			assert.Contains(t, html.UnescapeString(body), tt.want)
			assert.Contains(t, body, ">Place order</button>")
			assert.Empty(t, app.processor.Calls())
		})
	}
}

func TestCheckout_MissingPayDefaultsToCard(t *testing.T) {
	app := newTestApp(t)

	form := withForm(validCheckoutForm(), func(v url.Values) { v.Del("pay") })
	_, body := app.postForm(t, "/checkout", form)
	assert.NotContains(t, html.UnescapeString(body), errCardOnly)
	assert.Contains(t, body, errEmptyCart)
}

func TestCheckout_KeepsEnteredValues(t *testing.T) {
	app := newTestApp(t)

	form := withForm(validCheckoutForm(), func(v url.Values) { v.Del("terms"); v.Set("company", "Snuz & Co") })
	_, body := app.postForm(t, "/checkout", form)
	assert.Contains(t, body, `value="Ada"`)
	assert.Contains(t, body, `value="Snuz &amp; Co"`)
	assert.Contains(t, body, `value="card" checked`)
}

func TestCheckout_RedirectsToProcessor(t *testing.T) {
	app := newTestApp(t)
	app.processor.respond(http.StatusOK, initOK)
	app.seedCart(t, domain.CartItem{ID: "zyn-cool-mint", Name: "Zyn Cool Mint", Image: "/assets/zyn-coolmint.jpg", Price: 9500, Qty: 2})

	resp, _ := app.postForm(t, "/checkout", validCheckoutForm())
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "https://checkout.paystack.com/abc", resp.Header.Get("Location"))

	calls := app.processor.Calls()
	require.Len(t, calls, 1)

	var sent struct {
		Email       string   `json:"email"`
		Amount      int64    `json:"amount"`
		Currency    string   `json:"currency"`
		CallbackURL string   `json:"callback_url"`
		Channels    []string `json:"channels"`
		Metadata    struct {
			Billing map[string]string `json:"billing"`
			Items   []domain.CartItem `json:"items"`
			Totals  domain.Totals     `json:"totals"`
			Source  string            `json:"source"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal([]byte(calls[0].Body), &sent))

	assert.Equal(t, "ada@example.com", sent.Email)
	assert.Equal(t, int64(2042500), sent.Amount)
	assert.Equal(t, "NGN", sent.Currency)
	assert.Equal(t, app.server.URL+"/order-complete", sent.CallbackURL)
	assert.Equal(t, []string{"card"}, sent.Channels)
	assert.Equal(t, "snuz.ng", sent.Metadata.Source)
	assert.Equal(t, "Ada", sent.Metadata.Billing["first_name"])
	assert.Equal(t, "card", sent.Metadata.Billing["pay"])
	require.Len(t, sent.Metadata.Items, 1)
	assert.Equal(t, 2, sent.Metadata.Items[0].Qty)
	assert.Equal(t, 20425.0, sent.Metadata.Totals.Total)
}

func TestCheckout_UsesPublicBaseURL(t *testing.T) {
	app := newTestAppWith(t, appOptions{secret: testSecret, publicBaseURL: "https://snuz.ng/"})
	app.processor.respond(http.StatusOK, initOK)
	app.seedCart(t, domain.CartItem{ID: "a", Name: "A", Price: 100, Qty: 1})

	app.postForm(t, "/checkout", validCheckoutForm())

	calls := app.processor.Calls()
	require.Len(t, calls, 1)
	var sent struct {
		CallbackURL string `json:"callback_url"`
	}
	require.NoError(t, json.Unmarshal([]byte(calls[0].Body), &sent))
	assert.Equal(t, "https://snuz.ng/order-complete", sent.CallbackURL)
}

func TestCheckout_ProcessorFailureIsShownInline(t *testing.T) {
	app := newTestApp(t)
	app.processor.respond(http.StatusBadRequest, `{"status":false,"message":"Invalid email"}`)
	visitor := app.seedCart(t, domain.CartItem{ID: "a", Name: "A", Price: 100, Qty: 1})

	resp, body := app.postForm(t, "/checkout", validCheckoutForm())
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body, errPaymentStart)
	assert.Contains(t, body, ">Place order</button>")
	assert.Len(t, app.carts.Read(context.Background(), visitor), 1)
}
