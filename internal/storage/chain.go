package storage

import (
	"fmt"
	"net/http"

	"github.com/snuzng/storefront/internal/logger"
	"go.uber.org/zap"
)

// Probe asks one backend whether key holds the wanted value.
type Probe struct {
	Backend Backend
	Key     string
	Want    string
}

// Write is a single best-effort store operation.
type Write struct {
	Backend Backend
	Key     string
	Value   string
	Opts    SetOptions
}

// AnyMatch runs probes in order and stops at the first match. A backend that
// fails or panics counts as "signal absent"; it never aborts the check.
func AnyMatch(r *http.Request, probes ...Probe) bool {
	for _, p := range probes {
		v, err := safeGet(r, p)
		if err != nil {
			logger.FromContext(r.Context()).Debug("storage probe unavailable",
				zap.String("backend", p.Backend.Name()),
				zap.String("key", p.Key),
				zap.Error(err))
			continue
		}
		if v == p.Want {
			return true
		}
	}
	return false
}

// WriteAll applies every write independently; failures are logged and swallowed.
func WriteAll(w http.ResponseWriter, r *http.Request, writes ...Write) {
	for _, wr := range writes {
		if err := safeSet(w, r, wr); err != nil {
			logger.FromContext(r.Context()).Debug("storage write failed",
				zap.String("backend", wr.Backend.Name()),
				zap.String("key", wr.Key),
				zap.Error(err))
		}
	}
}

func safeGet(r *http.Request, p Probe) (v string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("backend %s panicked: %v", p.Backend.Name(), rec)
		}
	}()
	return p.Backend.Get(r, p.Key)
}

func safeSet(w http.ResponseWriter, r *http.Request, wr Write) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("backend %s panicked: %v", wr.Backend.Name(), rec)
		}
	}()
	return wr.Backend.Set(w, r, wr.Key, wr.Value, wr.Opts)
}
