package http

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"testing"

	"github.com/snuzng/storefront/internal/agegate"
	"github.com/snuzng/storefront/internal/domain"
	"github.com/snuzng/storefront/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const overlayMarker = `id="ageOverlay"`

func TestPages_Render(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		path       string
		wantStatus int
		want       string
	}{
		{"/", http.StatusOK, `data-tab="all"`},
		{"/brands/zyn", http.StatusOK, `data-brand-page="zyn"`},
		{"/brands/unknown", http.StatusNotFound, "Back to the shop"},
		{"/nope", http.StatusNotFound, "Back to the shop"},
		{"/cart", http.StatusOK, "Your cart is empty"},
		{"/checkout", http.StatusOK, `id="checkoutForm"`},
		{"/underage", http.StatusOK, "snuz.ng"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := app.get(t, tt.path)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
			assert.Contains(t, body, tt.want)
		})
	}
}

func TestPages_HealthAndRequestID(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.get(t, "/health", "X-Request-ID", "req-42")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)
	assert.Equal(t, "req-42", resp.Header.Get("X-Request-ID"))
}

func TestAgeGate_ShownWithoutAnySignal(t *testing.T) {
	app := newTestApp(t)

	_, body := app.get(t, "/")
	assert.Contains(t, body, overlayMarker)
	assert.Contains(t, body, `name="return_to" value="/"`)

	_, body = app.get(t, "/brands/velo")
	assert.Contains(t, body, overlayMarker)
	assert.Contains(t, body, `name="return_to" value="/brands/velo"`)

	_, body = app.get(t, "/underage")
	assert.NotContains(t, body, overlayMarker)
}

func TestAgeGate_OverlayCarriesWindowNameScript(t *testing.T) {
	app := newTestApp(t)

	_, body := app.get(t, "/brands/zyn")
	assert.Contains(t, body, `var token = "`+agegate.WindowToken+`";`)

	_, body = app.get(t, "/", "Cookie", agegate.CookieKey+"=true")
	assert.NotContains(t, body, `var token`)
}

func TestAgeGate_AnySingleSignalSuppressesOverlay(t *testing.T) {
	t.Run("cookie", func(t *testing.T) {
		app := newTestApp(t)
		_, body := app.get(t, "/", "Cookie", agegate.CookieKey+"=true")
		assert.NotContains(t, body, overlayMarker)
	})

	t.Run("window token", func(t *testing.T) {
		app := newTestApp(t)
		_, body := app.get(t, "/", storage.WindowNameHeader, "other "+agegate.WindowToken)
		assert.NotContains(t, body, overlayMarker)
	})

	t.Run("session", func(t *testing.T) {
		app := newTestApp(t)
		app.postForm(t, "/age-gate/confirm", url.Values{"return_to": {"/"}})

		// Drop the plain cookie so only the session remains.
		u, _ := url.Parse(app.server.URL)
		app.client.Jar.SetCookies(u, []*http.Cookie{{Name: agegate.CookieKey, Value: "", MaxAge: -1, Path: "/"}})

		_, body := app.get(t, "/")
		assert.NotContains(t, body, overlayMarker)
	})

	t.Run("persistent", func(t *testing.T) {
		app := newTestApp(t)
		app.postForm(t, "/age-gate/confirm", url.Values{"remember": {"1"}})
		visitor := app.visitor(t)

		// A fresh browser that only carries the visitor id.
		jar, err := cookiejar.New(nil)
		require.NoError(t, err)
		app.client = &http.Client{Jar: jar}

		_, body := app.get(t, "/", "Cookie", storage.VisitorCookie+"="+visitor)
		assert.NotContains(t, body, overlayMarker)
	})
}

func TestAgeGate_WithoutRememberNothingPersists(t *testing.T) {
	app := newTestApp(t)
	app.postForm(t, "/age-gate/confirm", url.Values{"return_to": {"/"}})
	visitor := app.visitor(t)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	app.client = &http.Client{Jar: jar}

	_, body := app.get(t, "/", "Cookie", storage.VisitorCookie+"="+visitor)
	assert.Contains(t, body, overlayMarker)
}

func TestCartBadge(t *testing.T) {
	app := newTestApp(t)
	app.seedCart(t, domain.CartItem{ID: "a", Name: "A", Price: 100, Qty: 3})

	_, body := app.get(t, "/cart")
	assert.Contains(t, body, `aria-label="Items in cart: 3"`)
}

const verifiedSuccess = `{"status":true,"data":{"status":"success","reference":"T1"}}`

func TestOrderComplete_NoReference(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.get(t, "/order-complete")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, headingComplete)
	assert.Contains(t, body, messagePlaced)
	assert.Empty(t, app.processor.Calls())
}

func TestOrderComplete_ConfirmedClearsCart(t *testing.T) {
	for _, path := range []string{"/order-complete?reference=T1", "/order-complete.html?trxref=T1"} {
		t.Run(path, func(t *testing.T) {
			app := newTestApp(t)
			app.processor.respond(http.StatusOK, verifiedSuccess)
			visitor := app.seedCart(t, domain.CartItem{ID: "a", Name: "A", Price: 100, Qty: 1})

			_, body := app.get(t, path)
			assert.Contains(t, body, headingComplete)
			assert.Contains(t, body, messageConfirmed)
			assert.Contains(t, body, "Reference: T1")
			assert.NotContains(t, body, "cart-badge")
			assert.Empty(t, app.carts.Read(context.Background(), visitor))

			calls := app.processor.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, "/transaction/verify/T1", calls[0].Path)
		})
	}
}

func TestOrderComplete_NotConfirmedKeepsCart(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"failed charge", http.StatusOK, `{"status":true,"data":{"status":"failed"}}`},
		{"status false", http.StatusOK, `{"status":false,"data":{"status":"success"}}`},
		{"processor error", http.StatusBadRequest, `{"status":false,"message":"nope"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			app.processor.respond(tt.status, tt.body)
			visitor := app.seedCart(t, domain.CartItem{ID: "a", Name: "A", Price: 100, Qty: 1})

			_, body := app.get(t, "/order-complete?reference=T1")
			assert.Contains(t, body, headingNotConfirmed)
			assert.Contains(t, body, messageNotConfirmed)
			assert.Len(t, app.carts.Read(context.Background(), visitor), 1)
		})
	}
}

func TestOrderComplete_MissingSecretIsNotConfirmed(t *testing.T) {
	app := newTestAppWith(t, appOptions{})

	_, body := app.get(t, "/order-complete?reference=T1")
	assert.Contains(t, body, headingNotConfirmed)
}
