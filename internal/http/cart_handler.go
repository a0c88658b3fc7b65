package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/snuzng/storefront/internal/cart"
	"github.com/snuzng/storefront/internal/domain"
	"github.com/snuzng/storefront/internal/logger"
	"github.com/snuzng/storefront/internal/pricing"
	"github.com/snuzng/storefront/internal/storage"
	"go.uber.org/zap"
)

type CartHandler struct {
	carts *cart.Manager
}

func NewCartHandler(carts *cart.Manager) *CartHandler {
	return &CartHandler{carts: carts}
}

// AddItemRequestDTO mirrors a product card. Price may be the displayed text
// ("₦9,500") or a plain number.
type AddItemRequestDTO struct {
	Name  string          `json:"name"`
	Image string          `json:"image"`
	Price json.RawMessage `json:"price"`
	Qty   int             `json:"qty"`
}

type UpdateQuantityRequestDTO struct {
	Qty int `json:"qty"`
}

type AdjustRequestDTO struct {
	Delta int `json:"delta"`
}

type CartResponse struct {
	Items  []domain.CartItem `json:"items"`
	Totals domain.Totals     `json:"totals"`
	Count  int               `json:"count"`
}

func newCartResponse(items []domain.CartItem) CartResponse {
	if items == nil {
		items = []domain.CartItem{}
	}
	return CartResponse{
		Items:  items,
		Totals: pricing.ComputeTotals(items),
		Count:  pricing.Count(items),
	}
}

// priceText turns the price field back into the text a card would show.
func priceText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	items := h.carts.Read(r.Context(), storage.VisitorID(r.Context()))
	respondJSON(w, http.StatusOK, newCartResponse(items))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	items, err := h.carts.AddOrMerge(r.Context(), storage.VisitorID(r.Context()), cart.AddInput{
		Name:      strings.TrimSpace(req.Name),
		Image:     strings.TrimSpace(req.Image),
		PriceText: priceText(req.Price),
		Qty:       req.Qty,
	})
	h.respondCart(w, r, http.StatusCreated, items, err)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	items, err := h.carts.SetQuantity(r.Context(), storage.VisitorID(r.Context()), chi.URLParam(r, "id"), req.Qty)
	h.respondCart(w, r, http.StatusOK, items, err)
}

func (h *CartHandler) AdjustItem(w http.ResponseWriter, r *http.Request) {
	var req AdjustRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	items, err := h.carts.Adjust(r.Context(), storage.VisitorID(r.Context()), chi.URLParam(r, "id"), req.Delta)
	h.respondCart(w, r, http.StatusOK, items, err)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	items, err := h.carts.Remove(r.Context(), storage.VisitorID(r.Context()), chi.URLParam(r, "id"))
	h.respondCart(w, r, http.StatusOK, items, err)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	err := h.carts.Clear(r.Context(), storage.VisitorID(r.Context()))
	h.respondCart(w, r, http.StatusOK, nil, err)
}

// respondCart answers with the new cart even when the write failed, the
// way the page keeps working when storage is unavailable.
func (h *CartHandler) respondCart(w http.ResponseWriter, r *http.Request, status int, items []domain.CartItem, err error) {
	if err != nil {
		logger.FromContext(r.Context()).Warn("cart write failed", zap.Error(err))
	}
	respondJSON(w, status, newCartResponse(items))
}

// Form endpoints used by the rendered pages.

func (h *CartHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/cart", http.StatusSeeOther)
		return
	}

	qty, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("qty")))
	if err != nil {
		qty = 1
	}
	_, err = h.carts.AddOrMerge(r.Context(), storage.VisitorID(r.Context()), cart.AddInput{
		Name:      strings.TrimSpace(r.PostFormValue("name")),
		Image:     strings.TrimSpace(r.PostFormValue("image")),
		PriceText: r.PostFormValue("price"),
		Qty:       qty,
	})
	if err != nil {
		logger.FromContext(r.Context()).Warn("cart write failed", zap.Error(err))
	}
	http.Redirect(w, r, returnTo(r), http.StatusSeeOther)
}

func (h *CartHandler) AdjustForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/cart", http.StatusSeeOther)
		return
	}

	delta, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("delta")))
	if err == nil {
		_, err = h.carts.Adjust(r.Context(), storage.VisitorID(r.Context()), chi.URLParam(r, "id"), delta)
		if err != nil {
			logger.FromContext(r.Context()).Warn("cart write failed", zap.Error(err))
		}
	}
	http.Redirect(w, r, returnTo(r), http.StatusSeeOther)
}

func (h *CartHandler) RemoveForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/cart", http.StatusSeeOther)
		return
	}

	if _, err := h.carts.Remove(r.Context(), storage.VisitorID(r.Context()), chi.URLParam(r, "id")); err != nil {
		logger.FromContext(r.Context()).Warn("cart write failed", zap.Error(err))
	}
	http.Redirect(w, r, returnTo(r), http.StatusSeeOther)
}

// returnTo picks the form's return_to, then the referring page, then /cart.
func returnTo(r *http.Request) string {
	if target := localPath(r.PostFormValue("return_to"), ""); target != "" {
		return target
	}
	return refererPath(r, "/cart")
}
