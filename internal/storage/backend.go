package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/sessions"
)

// Backend is one place a client-side signal can live. All backends share this
// read/write contract so the age gate and cart never touch a store directly.
type Backend interface {
	Name() string
	Get(r *http.Request, key string) (string, error)
	Set(w http.ResponseWriter, r *http.Request, key, value string, opts SetOptions) error
}

// SetOptions controls lifetime. A zero MaxAge means "this browser session" for
// cookie-based backends and "no expiry" for the persistent backend.
type SetOptions struct {
	MaxAge time.Duration
}

var ErrNoVisitor = errors.New("no visitor id on request")

// PersistentBackend is the local-storage analogue: a KV entry per visitor.
type PersistentBackend struct {
	kv KV
}

func NewPersistentBackend(kv KV) *PersistentBackend {
	return &PersistentBackend{kv: kv}
}

func (*PersistentBackend) Name() string { return "persistent" }

func (p *PersistentBackend) Get(r *http.Request, key string) (string, error) {
	k, err := visitorKey(r.Context(), key)
	if err != nil {
		return "", err
	}
	return p.kv.Get(r.Context(), k)
}

func (p *PersistentBackend) Set(_ http.ResponseWriter, r *http.Request, key, value string, opts SetOptions) error {
	k, err := visitorKey(r.Context(), key)
	if err != nil {
		return err
	}
	return p.kv.Set(r.Context(), k, value, opts.MaxAge)
}

func visitorKey(ctx context.Context, key string) (string, error) {
	id := VisitorID(ctx)
	if id == "" {
		return "", ErrNoVisitor
	}
	return VisitorKey(key, id), nil
}

// VisitorKey namespaces a storage key to one visitor.
func VisitorKey(key, visitorID string) string {
	return fmt.Sprintf("%s:%s", key, visitorID)
}

// SessionBackend is the session-storage analogue: values in a browser-session cookie session.
type SessionBackend struct {
	store sessions.Store
	name  string
}

// NewSessionBackend builds a cookie session store whose cookie dies with the browser session.
func NewSessionBackend(name string, keyPairs ...[]byte) *SessionBackend {
	store := sessions.NewCookieStore(keyPairs...)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   0,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionBackend{store: store, name: name}
}

func (*SessionBackend) Name() string { return "session" }

func (s *SessionBackend) Get(r *http.Request, key string) (string, error) {
	sess, err := s.store.Get(r, s.name)
	if err != nil {
		return "", fmt.Errorf("session get failed: %w", err)
	}
	v, ok := sess.Values[key].(string)
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *SessionBackend) Set(w http.ResponseWriter, r *http.Request, key, value string, _ SetOptions) error {
	// A decode error still yields a fresh session, which is what we want to overwrite.
	sess, _ := s.store.Get(r, s.name)
	if sess == nil {
		return fmt.Errorf("session %q unavailable", s.name)
	}
	sess.Values[key] = value
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("session save failed: %w", err)
	}
	return nil
}

// CookieBackend stores each key as its own cookie.
type CookieBackend struct{}

func NewCookieBackend() *CookieBackend {
	return &CookieBackend{}
}

func (*CookieBackend) Name() string { return "cookie" }

func (*CookieBackend) Get(r *http.Request, key string) (string, error) {
	c, err := r.Cookie(key)
	if errors.Is(err, http.ErrNoCookie) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	v, err := url.QueryUnescape(c.Value)
	if err != nil {
		return "", fmt.Errorf("cookie %s: %w", key, err)
	}
	return v, nil
}

func (*CookieBackend) Set(w http.ResponseWriter, r *http.Request, key, value string, opts SetOptions) error {
	c := &http.Cookie{
		Name:     key,
		Value:    url.QueryEscape(value),
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		Secure:   IsHTTPS(r),
	}
	if opts.MaxAge > 0 {
		c.MaxAge = int(opts.MaxAge / time.Second)
	}
	http.SetCookie(w, c)
	return nil
}

// IsHTTPS reports whether the client reached us over TLS, directly or through a proxy.
func IsHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// WindowNameHeader carries the client's window identifier, which survives
// reloads even when storage and cookies are blocked.
const WindowNameHeader = "X-Window-Name"

// WindowTokenBackend treats the key as a token embedded in the window identifier.
type WindowTokenBackend struct{}

func NewWindowTokenBackend() *WindowTokenBackend {
	return &WindowTokenBackend{}
}

func (*WindowTokenBackend) Name() string { return "window" }

func (*WindowTokenBackend) Get(r *http.Request, token string) (string, error) {
	if strings.Contains(r.Header.Get(WindowNameHeader), token) {
		return "true", nil
	}
	return "", ErrNotFound
}

// Set appends token to the current window identifier and returns the result in the response header.
func (*WindowTokenBackend) Set(w http.ResponseWriter, r *http.Request, token, _ string, _ SetOptions) error {
	current := w.Header().Get(WindowNameHeader)
	if current == "" {
		current = r.Header.Get(WindowNameHeader)
	}
	next := current
	if !strings.Contains(current, token) {
		if current == "" {
			next = token
		} else {
			next = current + " " + token
		}
	}
	w.Header().Set(WindowNameHeader, next)
	return nil
}
