package http

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/snuzng/storefront/internal/agegate"
	"github.com/snuzng/storefront/internal/cart"
	"github.com/snuzng/storefront/internal/domain"
	"github.com/snuzng/storefront/internal/payment"
	"github.com/snuzng/storefront/internal/paystack"
	"github.com/snuzng/storefront/internal/storage"
	"github.com/snuzng/storefront/internal/web"
	"github.com/snuzng/storefront/internal/webhook"
	"github.com/stretchr/testify/require"
)

const testSecret = "sk_test_secret"

type processorCall struct {
	Method string
	Path   string
	Body   string
}

// fakeProcessor stands in for the payment processor API.
type fakeProcessor struct {
	mu     sync.Mutex
	status int
	body   string
	calls  []processorCall
}

func (f *fakeProcessor) respond(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status, f.body = status, body
}

func (f *fakeProcessor) Calls() []processorCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]processorCall(nil), f.calls...)
}

func (f *fakeProcessor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, processorCall{Method: r.Method, Path: r.URL.EscapedPath(), Body: string(body)})
	status, resp := f.status, f.body
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, resp)
}

type recordingNotifier struct {
	mu     sync.Mutex
	orders []domain.PaidOrder
}

func (n *recordingNotifier) Enqueue(order domain.PaidOrder) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, order)
	return true
}

func (n *recordingNotifier) Orders() []domain.PaidOrder {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.PaidOrder(nil), n.orders...)
}

type testApp struct {
	server    *httptest.Server
	client    *http.Client
	processor *fakeProcessor
	notifier  *recordingNotifier
	kv        *storage.MemoryKV
	carts     *cart.Manager
}

type appOptions struct {
	secret        string
	publicBaseURL string
}

func newTestApp(t *testing.T) *testApp {
	return newTestAppWith(t, appOptions{secret: testSecret})
}

func newTestAppWith(t *testing.T, opts appOptions) *testApp {
	t.Helper()

	processor := &fakeProcessor{status: http.StatusOK, body: `{}`}
	processorSrv := httptest.NewServer(processor)
	t.Cleanup(processorSrv.Close)

	kv := storage.NewMemoryKV()
	t.Cleanup(func() { kv.Close() })

	renderer, err := web.NewRenderer()
	require.NoError(t, err)

	gate := agegate.New(
		storage.NewPersistentBackend(kv),
		storage.NewSessionBackend("snuz_session", []byte("0123456789abcdef0123456789abcdef")),
		storage.NewCookieBackend(),
		storage.NewWindowTokenBackend(),
	)
	carts := cart.NewManager(kv)
	payments := payment.NewService(paystack.NewClient(processorSrv.URL, opts.secret, 5*time.Second))
	notifier := &recordingNotifier{}
	webhooks := webhook.NewService(opts.secret, notifier, nil, kv, webhook.Options{})

	pages := NewPageHandler(renderer, gate, carts, payments, 5*time.Second)
	router := NewRouter(Handlers{
		Pages:    pages,
		Checkout: NewCheckoutHandler(pages, payments, opts.publicBaseURL, 5*time.Second),
		Cart:     NewCartHandler(carts),
		AgeGate:  NewAgeGateHandler(gate),
		Payments: NewPaymentHandler(payments, webhooks, 5*time.Second, 1<<20),
	}, RouterConfig{RequestTimeout: 10 * time.Second})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testApp{
		server:    srv,
		client:    client,
		processor: processor,
		notifier:  notifier,
		kv:        kv,
		carts:     carts,
	}
}

func (a *testApp) do(t *testing.T, method, path, contentType, body string, headers ...string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, a.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := a.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(out)
}

func (a *testApp) get(t *testing.T, path string, headers ...string) (*http.Response, string) {
	return a.do(t, http.MethodGet, path, "", "", headers...)
}

func (a *testApp) postJSON(t *testing.T, path, body string, headers ...string) (*http.Response, string) {
	return a.do(t, http.MethodPost, path, "application/json", body, headers...)
}

func (a *testApp) postForm(t *testing.T, path string, form url.Values) (*http.Response, string) {
	return a.do(t, http.MethodPost, path, "application/x-www-form-urlencoded", form.Encode())
}

// visitor returns the id the app issued to this client.
func (a *testApp) visitor(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(a.server.URL)
	require.NoError(t, err)
	for _, c := range a.client.Jar.Cookies(u) {
		if c.Name == storage.VisitorCookie {
			return c.Value
		}
	}
	t.Fatal("no visitor cookie issued")
	return ""
}

// seedCart makes a request to get a visitor id, then stores items for it.
func (a *testApp) seedCart(t *testing.T, items ...domain.CartItem) string {
	t.Helper()
	a.get(t, "/api/cart")
	id := a.visitor(t)
	require.NoError(t, a.carts.Write(context.Background(), id, items))
	return id
}
