package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/snuzng/storefront/internal/logger"
	"github.com/snuzng/storefront/internal/payment"
	"github.com/snuzng/storefront/internal/webhook"
	"go.uber.org/zap"
)

// PaymentHandler serves the three payment functions under /.netlify/functions,
// keeping the paths the storefront has always called.
type PaymentHandler struct {
	payments    *payment.Service
	webhooks    *webhook.Service
	timeout     time.Duration
	maxBodySize int64
}

func NewPaymentHandler(payments *payment.Service, webhooks *webhook.Service, timeout time.Duration, maxBodySize int64) *PaymentHandler {
	return &PaymentHandler{
		payments:    payments,
		webhooks:    webhooks,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

func allowAnyOrigin(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// Initialize handles /.netlify/functions/paystack-initialize.
func (h *PaymentHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	allowAnyOrigin(w)
	w.Header().Set("Access-Control-Allow-Headers", "content-type")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !h.payments.Configured() {
		respondError(w, http.StatusInternalServerError, payment.ErrMissingSecret.Error())
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodySize))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	params, err := payment.ParseInitializeBody(body)
	if err != nil {
		h.respondPaymentError(w, r, "Paystack initialize failed", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.payments.Initialize(ctx, params)
	if err != nil {
		h.respondPaymentError(w, r, "Paystack initialize failed", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Verify handles /.netlify/functions/paystack-verify?reference=.
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	allowAnyOrigin(w)

	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	body, err := h.payments.Verify(ctx, r.URL.Query().Get("reference"))
	if err != nil {
		h.respondPaymentError(w, r, "Paystack verify failed", err)
		return
	}
	respondJSON(w, http.StatusOK, body)
}

func (h *PaymentHandler) respondPaymentError(w http.ResponseWriter, r *http.Request, upstreamMsg string, err error) {
	var verr *payment.ValidationError
	var uerr *payment.UpstreamError

	switch {
	case errors.Is(err, payment.ErrMissingSecret):
		respondError(w, http.StatusInternalServerError, err.Error())
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, verr.Message)
	case errors.As(err, &uerr):
		logger.FromContext(r.Context()).Warn("processor rejected request",
			zap.String("op", uerr.Op),
			zap.Int("status", uerr.Status),
		)
		respondJSON(w, uerr.HTTPStatus(), upstreamErrorResponse{Error: upstreamMsg, Details: uerr.Details})
	default:
		logger.FromContext(r.Context()).Error("processor unreachable", zap.Error(err))
		respondError(w, http.StatusBadGateway, upstreamMsg)
	}
}

// Webhook handles /.netlify/functions/paystack-webhook. Answers are plain text.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondText(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondText(w, http.StatusRequestEntityTooLarge, "Payload too large")
			return
		}
		respondText(w, http.StatusBadRequest, "Invalid body")
		return
	}

	res, err := h.webhooks.Handle(r.Context(), raw, r.Header.Get(webhook.SignatureHeader))
	switch {
	case errors.Is(err, webhook.ErrMissingSecret):
		respondText(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, webhook.ErrInvalidSignature):
		logger.FromContext(r.Context()).Warn("webhook rejected", zap.Error(err))
		respondText(w, http.StatusUnauthorized, "Invalid signature")
	case errors.Is(err, webhook.ErrInvalidJSON):
		respondText(w, http.StatusBadRequest, "Invalid JSON")
	case err != nil:
		logger.FromContext(r.Context()).Error("webhook failed", zap.Error(err))
		respondText(w, http.StatusInternalServerError, "Internal error")
	default:
		respondText(w, http.StatusOK, string(res))
	}
}
