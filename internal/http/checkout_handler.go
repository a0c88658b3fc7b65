package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/snuzng/storefront/internal/domain"
	"github.com/snuzng/storefront/internal/logger"
	"github.com/snuzng/storefront/internal/payment"
	"github.com/snuzng/storefront/internal/pricing"
	"github.com/snuzng/storefront/internal/storage"
	"github.com/snuzng/storefront/internal/web"
	"go.uber.org/zap"
)

const (
	payCard          = "card"
	buttonPlaceOrder = "Place order"

	errCardOnly       = "Only debit/credit card payments via Paystack are supported right now."
	errRequiredFields = "Please complete all required fields to place your order."
	errTerms          = "Please accept the terms to place your order."
	errEmptyCart      = "Your cart is empty. Add products before checking out."
	errEmailRequired  = "Email address is required for payment."
	errPaymentStart   = "Payment could not be started. Please try again."

	orderCompletePath = "/order-complete"
)

// BillingForm is the checkout form. Email is optional at this stage but must
// look like an address when given.
type BillingForm struct {
	FirstName string `form:"first_name" validate:"required"`
	LastName  string `form:"last_name" validate:"required"`
	Company   string `form:"company"`
	Country   string `form:"country" validate:"required"`
	Address   string `form:"address" validate:"required"`
	Address2  string `form:"address_2"`
	City      string `form:"city" validate:"required"`
	State     string `form:"state" validate:"required"`
	Postcode  string `form:"postcode"`
	Phone     string `form:"phone" validate:"required"`
	Email     string `form:"email" validate:"omitempty,email"`
	Notes     string `form:"notes"`
}

func (f BillingForm) view() web.Billing {
	return web.Billing{
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Company:   f.Company,
		Country:   f.Country,
		Address:   f.Address,
		Address2:  f.Address2,
		City:      f.City,
		State:     f.State,
		Postcode:  f.Postcode,
		Phone:     f.Phone,
		Email:     f.Email,
		Notes:     f.Notes,
	}
}

type CheckoutHandler struct {
	pages         *PageHandler
	payments      *payment.Service
	validate      *validator.Validate
	publicBaseURL string
	timeout       time.Duration
}

func NewCheckoutHandler(pages *PageHandler, payments *payment.Service, publicBaseURL string, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		pages:         pages,
		payments:      payments,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		timeout:       timeout,
	}
}

func readBillingForm(r *http.Request) BillingForm {
	v := func(key string) string { return strings.TrimSpace(r.PostFormValue(key)) }
	return BillingForm{
		FirstName: v("first_name"),
		LastName:  v("last_name"),
		Company:   v("company"),
		Country:   v("country"),
		Address:   v("address"),
		Address2:  v("address_2"),
		City:      v("city"),
		State:     v("state"),
		Postcode:  v("postcode"),
		Phone:     v("phone"),
		Email:     v("email"),
		Notes:     v("notes"),
	}
}

// billingMetadata carries every submitted field, as the processor dashboard
// shows the form as it was filled in.
func billingMetadata(r *http.Request) map[string]string {
	out := make(map[string]string, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			out[key] = values[0]
		}
	}
	return out
}

// PlaceOrder runs the checkout checks in order and hands the visitor to the
// processor. The first failing check is shown on the page.
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, http.StatusBadRequest, web.CheckoutData{Pay: payCard}, errRequiredFields)
		return
	}

	form := readBillingForm(r)
	pay := strings.TrimSpace(r.PostFormValue("pay"))
	if pay == "" {
		pay = payCard
	}
	data := web.CheckoutData{
		Billing: form.view(),
		Pay:     pay,
		Terms:   r.PostFormValue("terms") != "",
	}

	if pay != payCard {
		h.fail(w, r, http.StatusUnprocessableEntity, data, errCardOnly)
		return
	}
	if err := h.validate.Struct(form); err != nil {
		h.fail(w, r, http.StatusUnprocessableEntity, data, errRequiredFields)
		return
	}
	if !data.Terms {
		h.fail(w, r, http.StatusUnprocessableEntity, data, errTerms)
		return
	}

	items := h.pages.carts.Read(r.Context(), storage.VisitorID(r.Context()))
	if len(items) == 0 {
		h.fail(w, r, http.StatusUnprocessableEntity, data, errEmptyCart)
		return
	}
	if form.Email == "" {
		h.fail(w, r, http.StatusUnprocessableEntity, data, errEmailRequired)
		return
	}

	totals := pricing.ComputeTotals(items)

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.payments.Initialize(ctx, payment.InitializeParams{
		Email:       form.Email,
		Amount:      totals.Total,
		CallbackURL: h.baseURL(r) + orderCompletePath,
		Metadata: domain.OrderMetadata{
			Billing: billingMetadata(r),
			Items:   items,
			Totals:  totals,
			Source:  domain.OrderSource,
		},
	})
	if err != nil || res.AuthorizationURL == "" {
		logger.FromContext(r.Context()).Error("payment initialization failed", zap.Error(err))
		h.fail(w, r, http.StatusBadGateway, data, errPaymentStart)
		return
	}

	http.Redirect(w, r, res.AuthorizationURL, http.StatusSeeOther)
}

func (h *CheckoutHandler) fail(w http.ResponseWriter, r *http.Request, status int, data web.CheckoutData, message string) {
	data.Error = message
	data.ButtonLabel = buttonPlaceOrder
	h.pages.renderCheckout(w, r, status, data)
}

// baseURL is the configured public origin, else the one the request came in on.
func (h *CheckoutHandler) baseURL(r *http.Request) string {
	if h.publicBaseURL != "" {
		return h.publicBaseURL
	}
	scheme := "http"
	if storage.IsHTTPS(r) {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
