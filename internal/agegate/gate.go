// Package agegate decides whether a visitor has already confirmed their age.
//
// The confirmation is replicated across four independent stores. Any single
// one is enough to suppress the gate, and each may be unavailable at any time.
package agegate

import (
	"net/http"
	"time"

	"github.com/snuzng/storefront/internal/storage"
)

const (
	StorageKey  = "snuz.ng:age_verified_v1"
	SessionKey  = "snuz.ng:age_verified_session_v1"
	CookieKey   = "snuz_age_verified"
	WindowToken = "snuz_age_verified:true"

	UnderagePath = "/underage"

	verifiedValue = "true"
	rememberFor   = 365 * 24 * time.Hour
)

type Gate struct {
	persistent storage.Backend
	session    storage.Backend
	cookie     storage.Backend
	window     storage.Backend
}

func New(persistent, session, cookie, window storage.Backend) *Gate {
	return &Gate{
		persistent: persistent,
		session:    session,
		cookie:     cookie,
		window:     window,
	}
}

// Verified reports whether any of the four signals is present.
func (g *Gate) Verified(r *http.Request) bool {
	return storage.AnyMatch(r,
		storage.Probe{Backend: g.persistent, Key: StorageKey, Want: verifiedValue},
		storage.Probe{Backend: g.session, Key: SessionKey, Want: verifiedValue},
		storage.Probe{Backend: g.cookie, Key: CookieKey, Want: verifiedValue},
		storage.Probe{Backend: g.window, Key: WindowToken, Want: verifiedValue},
	)
}

// Confirm records a "yes". The session flag, window token and session cookie
// are always written; remember adds the persistent flag and a one-year cookie.
func (g *Gate) Confirm(w http.ResponseWriter, r *http.Request, remember bool) {
	writes := []storage.Write{
		{Backend: g.session, Key: SessionKey, Value: verifiedValue},
		{Backend: g.window, Key: WindowToken, Value: verifiedValue},
		{Backend: g.cookie, Key: CookieKey, Value: verifiedValue},
	}
	if remember {
		writes = append(writes,
			storage.Write{Backend: g.persistent, Key: StorageKey, Value: verifiedValue},
			storage.Write{Backend: g.cookie, Key: CookieKey, Value: verifiedValue, Opts: storage.SetOptions{MaxAge: rememberFor}},
		)
	}
	storage.WriteAll(w, r, writes...)
}
