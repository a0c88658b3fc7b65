package http

import (
	"net/http"

	"github.com/snuzng/storefront/internal/agegate"
)

type AgeGateHandler struct {
	gate *agegate.Gate
}

func NewAgeGateHandler(gate *agegate.Gate) *AgeGateHandler {
	return &AgeGateHandler{gate: gate}
}

// Confirm records a "yes" and sends the visitor back where the overlay was shown.
func (h *AgeGateHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	h.gate.Confirm(w, r, r.PostFormValue("remember") != "")

	http.Redirect(w, r, localPath(r.PostFormValue("return_to"), "/"), http.StatusSeeOther)
}

// Deny handles both the "No" button and the cancel key.
func (h *AgeGateHandler) Deny(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, agegate.UnderagePath, http.StatusSeeOther)
}
