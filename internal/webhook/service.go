// Package webhook authenticates and handles processor event notifications.
//
// A request is processed only when hex(HMAC-SHA512(secret, body)) equals the
// signature header. Every authenticated request is acknowledged; side effects
// of a paid order never change the answer.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"time"

	"github.com/snuzng/storefront/internal/domain"
	"github.com/snuzng/storefront/internal/events"
	"github.com/snuzng/storefront/internal/logger"
	"github.com/snuzng/storefront/internal/storage"
	"go.uber.org/zap"
)

const (
	SignatureHeader = "X-Paystack-Signature"
	SeenKeyPrefix   = "snuz.ng:webhook_seen_v1"

	publishTimeout = 5 * time.Second
)

var (
	ErrMissingSecret    = errors.New("PAYSTACK_SECRET_KEY is not set")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidJSON      = errors.New("invalid JSON")
)

// Result is the acknowledgement body for an authenticated request.
type Result string

const (
	ResultIgnored Result = "ignored"
	ResultOK      Result = "ok"
)

// Notifier takes a paid order for asynchronous email delivery.
type Notifier interface {
	Enqueue(order domain.PaidOrder) bool
}

type Options struct {
	// Dedupe suppresses repeated side effects for a reference already seen.
	Dedupe    bool
	DedupeTTL time.Duration
}

type Service struct {
	secret    string
	notifier  Notifier
	publisher events.Publisher
	kv        storage.KV
	opts      Options
	now       func() time.Time
}

func NewService(secret string, notifier Notifier, publisher events.Publisher, kv storage.KV, opts Options) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		secret:    secret,
		notifier:  notifier,
		publisher: publisher,
		kv:        kv,
		opts:      opts,
		now:       time.Now,
	}
}

func (s *Service) Configured() bool {
	return s.secret != ""
}

// Sign returns the hex HMAC-SHA512 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Handle authenticates raw and reacts to the event it carries.
func (s *Service) Handle(ctx context.Context, raw []byte, signature string) (Result, error) {
	if !s.Configured() {
		return "", ErrMissingSecret
	}
	if signature == "" || !hmac.Equal([]byte(signature), []byte(Sign(s.secret, raw))) {
		return "", ErrInvalidSignature
	}

	ev, err := parseEvent(raw)
	if err != nil {
		return "", err
	}
	if ev.Name != EventChargeSuccess {
		return ResultIgnored, nil
	}

	order := PaidOrderFromCharge(ev.Data)
	log := logger.FromContext(ctx).With(zap.String("reference", order.Reference))

	if s.seenBefore(ctx, order.Reference) {
		log.Info("duplicate charge.success, side effects skipped")
		return ResultOK, nil
	}

	s.notifier.Enqueue(order)

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.PublishOrderPaid(pctx, events.NewOrderPaid(order, s.now())); err != nil {
		log.Warn("order paid event not published", zap.Error(err))
	}
	return ResultOK, nil
}

// seenBefore records the reference and reports whether it was already recorded.
// Store failures count as unseen.
func (s *Service) seenBefore(ctx context.Context, reference string) bool {
	if !s.opts.Dedupe || s.kv == nil || reference == "" {
		return false
	}
	fresh, err := s.kv.SetNX(ctx, storage.VisitorKey(SeenKeyPrefix, reference), "1", s.opts.DedupeTTL)
	if err != nil {
		logger.FromContext(ctx).Warn("webhook dedupe check failed", zap.Error(err))
		return false
	}
	return !fresh
}
