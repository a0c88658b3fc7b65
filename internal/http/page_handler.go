package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/snuzng/storefront/internal/agegate"
	"github.com/snuzng/storefront/internal/cart"
	"github.com/snuzng/storefront/internal/catalog"
	"github.com/snuzng/storefront/internal/logger"
	"github.com/snuzng/storefront/internal/payment"
	"github.com/snuzng/storefront/internal/pricing"
	"github.com/snuzng/storefront/internal/storage"
	"github.com/snuzng/storefront/internal/web"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	headingComplete     = "Order complete"
	headingNotConfirmed = "Payment not confirmed"

	messagePlaced       = "Thanks — your order has been placed."
	messageConfirmed    = "Payment confirmed. We’ve emailed your order details and will contact you shortly."
	messageNotConfirmed = "We couldn’t verify your payment yet. If you were charged, please contact support with your reference."
)

type PageHandler struct {
	renderer *web.Renderer
	gate     *agegate.Gate
	carts    *cart.Manager
	payments *payment.Service
	timeout  time.Duration

	verifies singleflight.Group
}

func NewPageHandler(renderer *web.Renderer, gate *agegate.Gate, carts *cart.Manager, payments *payment.Service, timeout time.Duration) *PageHandler {
	return &PageHandler{
		renderer: renderer,
		gate:     gate,
		carts:    carts,
		payments: payments,
		timeout:  timeout,
	}
}

// layout fills the shared page data. The underage page never shows the gate.
func (h *PageHandler) layout(r *http.Request, title string, gated bool) web.Layout {
	items := h.carts.Read(r.Context(), storage.VisitorID(r.Context()))
	return web.Layout{
		Title:       title,
		Path:        r.URL.RequestURI(),
		ShowAgeGate: gated && !h.gate.Verified(r),
		WindowToken: agegate.WindowToken,
		CartCount:   pricing.Count(items),
		Brands:      catalog.Brands(),
	}
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	// Buffer through the renderer first so a failed page becomes a clean 500.
	var buf strings.Builder
	if err := h.renderer.Render(&buf, page, data); err != nil {
		logger.FromContext(r.Context()).Error("render failed", zap.String("page", page), zap.Error(err))
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, web.PageHome, web.HomeData{
		Layout: h.layout(r, "", true),
		Cards:  catalog.AllCards(),
	})
}

func (h *PageHandler) Brand(w http.ResponseWriter, r *http.Request) {
	brand, ok := catalog.BrandByKey(chi.URLParam(r, "brand"))
	if !ok {
		h.NotFound(w, r)
		return
	}
	h.render(w, r, http.StatusOK, web.PageBrand, web.BrandData{
		Layout: h.layout(r, brand.Name, true),
		Brand:  brand,
		Cards:  catalog.BrandCards(brand.Key),
	})
}

func (h *PageHandler) Cart(w http.ResponseWriter, r *http.Request) {
	items := h.carts.Read(r.Context(), storage.VisitorID(r.Context()))
	h.render(w, r, http.StatusOK, web.PageCart, web.CartData{
		Layout: h.layout(r, "Cart", true),
		Lines:  web.Lines(items),
		Totals: pricing.ComputeTotals(items),
	})
}

func (h *PageHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	h.renderCheckout(w, r, http.StatusOK, web.CheckoutData{Pay: payCard, ButtonLabel: buttonPlaceOrder})
}

// renderCheckout fills the cart part of the checkout page and renders it.
func (h *PageHandler) renderCheckout(w http.ResponseWriter, r *http.Request, status int, data web.CheckoutData) {
	items := h.carts.Read(r.Context(), storage.VisitorID(r.Context()))
	data.Layout = h.layout(r, "Checkout", true)
	data.Lines = web.Lines(items)
	data.Totals = pricing.ComputeTotals(items)
	h.render(w, r, status, web.PageCheckout, data)
}

func (h *PageHandler) Underage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, web.PageUnderage, h.layout(r, "Sorry", false))
}

func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, web.PageNotFound, h.layout(r, "Not found", true))
}

// OrderComplete is the processor's callback page. A confirmed payment clears
// the cart; anything else keeps it so the visitor can retry.
func (h *PageHandler) OrderComplete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	reference := strings.TrimSpace(q.Get("reference"))
	if reference == "" {
		reference = strings.TrimSpace(q.Get("trxref"))
	}

	data := web.OrderCompleteData{Heading: headingComplete, Message: messagePlaced}
	if reference != "" {
		data.Reference = reference
		if h.verify(r.Context(), reference) {
			if err := h.carts.Clear(r.Context(), storage.VisitorID(r.Context())); err != nil {
				logger.FromContext(r.Context()).Warn("cart clear failed", zap.Error(err))
			}
			data.Message = messageConfirmed
		} else {
			data.Heading = headingNotConfirmed
			data.Message = messageNotConfirmed
		}
	}

	data.Layout = h.layout(r, data.Heading, true)
	h.render(w, r, http.StatusOK, web.PageOrderComplete, data)
}

// verify collapses concurrent checks of one reference into a single call.
func (h *PageHandler) verify(ctx context.Context, reference string) bool {
	v, _, _ := h.verifies.Do(reference, func() (interface{}, error) {
		// Detached so one caller going away does not fail the others.
		vctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.timeout)
		defer cancel()

		body, err := h.payments.Verify(vctx, reference)
		if err != nil {
			logger.FromContext(ctx).Warn("payment verification failed",
				zap.String("reference", reference),
				zap.Error(err),
			)
			return false, nil
		}
		return payment.Confirmed(body), nil
	})
	confirmed, _ := v.(bool)
	return confirmed
}
