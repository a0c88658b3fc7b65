package webhook

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/snuzng/storefront/internal/domain"
	"github.com/snuzng/storefront/internal/events"
	"github.com/snuzng/storefront/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "sk_test_secret"

type recordingNotifier struct {
	orders []domain.PaidOrder
}

func (r *recordingNotifier) Enqueue(order domain.PaidOrder) bool {
	r.orders = append(r.orders, order)
	return true
}

type recordingPublisher struct {
	events []events.OrderPaid
	err    error
}

func (r *recordingPublisher) PublishOrderPaid(_ context.Context, e events.OrderPaid) error {
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingPublisher) Close() error { return nil }

type fixture struct {
	svc       *Service
	notifier  *recordingNotifier
	publisher *recordingPublisher
}

func newFixture(t *testing.T, opts Options) *fixture {
	kv := storage.NewMemoryKV()
	t.Cleanup(func() { kv.Close() })
	n := &recordingNotifier{}
	p := &recordingPublisher{}
	return &fixture{svc: NewService(testSecret, n, p, kv, opts), notifier: n, publisher: p}
}

const chargeBody = `{"event":"charge.success","data":{"reference":"T123","amount":2042500,"customer":{"email":"ada@example.com"},"metadata":{"billing":{"first_name":"Ada"},"items":[{"name":"Velo","qty":2,"price":9500}]}}}`

func TestHandle_ValidSignatureProcessesCharge(t *testing.T) {
	f := newFixture(t, Options{})
	body := []byte(chargeBody)

	res, err := f.svc.Handle(context.Background(), body, Sign(testSecret, body))
	require.NoError(t, err)
	assert.Equal(t, ResultOK, res)

	require.Len(t, f.notifier.orders, 1)
	order := f.notifier.orders[0]
	assert.Equal(t, "T123", order.Reference)
	assert.Equal(t, "ada@example.com", order.CustomerEmail)
	assert.Equal(t, 20425.0, order.Amount)
	assert.JSONEq(t, `{"first_name":"Ada"}`, string(order.Billing))
	assert.Equal(t, []domain.PaidItem{{Name: "Velo", Qty: 2, Price: 9500}}, order.Items)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, "T123", f.publisher.events[0].Reference)
}

func TestHandle_AnySingleByteMutationIsRejected(t *testing.T) {
	f := newFixture(t, Options{})
	body := []byte(chargeBody)
	sig := Sign(testSecret, body)

	for i := range body {
		mutated := append([]byte(nil), body...)
		mutated[i] ^= 0x01
		_, err := f.svc.Handle(context.Background(), mutated, sig)
		require.ErrorIs(t, err, ErrInvalidSignature, "body byte %d", i)
		require.Empty(t, f.notifier.orders)
	}

	for i := range sig {
		mutated := []byte(sig)
		mutated[i] ^= 0x01
		_, err := f.svc.Handle(context.Background(), body, string(mutated))
		require.ErrorIs(t, err, ErrInvalidSignature, "signature byte %d", i)
		require.Empty(t, f.notifier.orders)
		require.Empty(t, f.publisher.events)
	}
}

func TestHandle_MissingSignature(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.svc.Handle(context.Background(), []byte(chargeBody), "")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestHandle_MissingSecret(t *testing.T) {
	svc := NewService("", &recordingNotifier{}, nil, nil, Options{})
	_, err := svc.Handle(context.Background(), []byte(chargeBody), "x")
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestHandle_InvalidJSON(t *testing.T) {
	f := newFixture(t, Options{})
	body := []byte(`{"event":`)
	_, err := f.svc.Handle(context.Background(), body, Sign(testSecret, body))
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestHandle_OtherEventsIgnored(t *testing.T) {
	bodies := []string{
		`{"event":"transfer.success","data":{"reference":"T1"}}`,
		`{"event":"charge.failed"}`,
		`{"event":42}`,
		`{}`,
		`[]`,
		`"charge.success"`,
		`null`,
		`7`,
	}
	for _, b := range bodies {
		t.Run(b, func(t *testing.T) {
			f := newFixture(t, Options{})
			res, err := f.svc.Handle(context.Background(), []byte(b), Sign(testSecret, []byte(b)))
			require.NoError(t, err)
			assert.Equal(t, ResultIgnored, res)
			assert.Empty(t, f.notifier.orders)
			assert.Empty(t, f.publisher.events)
		})
	}
}

func TestHandle_PublishFailureStillOK(t *testing.T) {
	f := newFixture(t, Options{})
	f.publisher.err = errors.New("broker down")
	body := []byte(chargeBody)

	res, err := f.svc.Handle(context.Background(), body, Sign(testSecret, body))
	require.NoError(t, err)
	assert.Equal(t, ResultOK, res)
	assert.Len(t, f.notifier.orders, 1)
}

func TestHandle_RedeliveryResendsByDefault(t *testing.T) {
	f := newFixture(t, Options{})
	body := []byte(chargeBody)
	for i := 0; i < 2; i++ {
		_, err := f.svc.Handle(context.Background(), body, Sign(testSecret, body))
		require.NoError(t, err)
	}
	assert.Len(t, f.notifier.orders, 2)
}

func TestHandle_DedupeSuppressesRedelivery(t *testing.T) {
	f := newFixture(t, Options{Dedupe: true, DedupeTTL: time.Hour})
	body := []byte(chargeBody)
	for i := 0; i < 3; i++ {
		res, err := f.svc.Handle(context.Background(), body, Sign(testSecret, body))
		require.NoError(t, err)
		assert.Equal(t, ResultOK, res)
	}
	assert.Len(t, f.notifier.orders, 1)
	assert.Len(t, f.publisher.events, 1)
}
