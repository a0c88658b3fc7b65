package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/snuzng/storefront/internal/storage"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Pages    *PageHandler
	Checkout *CheckoutHandler
	Cart     *CartHandler
	AgeGate  *AgeGateHandler
	Payments *PaymentHandler
}

type RouterConfig struct {
	AssetsDir      string
	RequestTimeout time.Duration
}

func NewRouter(h Handlers, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Payment functions check their own methods so they can answer 405 and CORS preflight.
	r.Route("/.netlify/functions", func(r chi.Router) {
		r.HandleFunc("/paystack-initialize", h.Payments.Initialize)
		r.HandleFunc("/paystack-verify", h.Payments.Verify)
		r.HandleFunc("/paystack-webhook", h.Payments.Webhook)
	})

	if cfg.AssetsDir != "" {
		r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.Dir(cfg.AssetsDir))))
	}

	// Everything below is per visitor.
	r.Group(func(r chi.Router) {
		r.Use(storage.VisitorMiddleware)

		r.Route("/api/cart", func(r chi.Router) {
			r.Get("/", h.Cart.GetCart)
			r.Delete("/", h.Cart.ClearCart)
			r.Post("/items", h.Cart.AddItem)
			r.Put("/items/{id}", h.Cart.UpdateQuantity)
			r.Post("/items/{id}/adjust", h.Cart.AdjustItem)
			r.Delete("/items/{id}", h.Cart.RemoveItem)
		})

		r.Post("/cart/add", h.Cart.AddForm)
		r.Post("/cart/items/{id}/adjust", h.Cart.AdjustForm)
		r.Post("/cart/items/{id}/remove", h.Cart.RemoveForm)

		r.Post("/age-gate/confirm", h.AgeGate.Confirm)
		r.Post("/age-gate/deny", h.AgeGate.Deny)
		r.Get("/age-gate/deny", h.AgeGate.Deny)

		r.Get("/", h.Pages.Home)
		r.Get("/brands/{brand}", h.Pages.Brand)
		r.Get("/cart", h.Pages.Cart)
		r.Get("/checkout", h.Pages.Checkout)
		r.Post("/checkout", h.Checkout.PlaceOrder)
		r.Get("/order-complete", h.Pages.OrderComplete)
		r.Get("/order-complete.html", h.Pages.OrderComplete)
		r.Get("/underage", h.Pages.Underage)

		r.NotFound(h.Pages.NotFound)
	})

	return r
}
