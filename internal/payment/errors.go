package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrMissingSecret is returned before any work when no secret key is configured.
var ErrMissingSecret = errors.New("PAYSTACK_SECRET_KEY is not set")

// ValidationError is a rejected client input. Message is shown to the caller as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UpstreamError is a processor answer that does not count as success.
// Details holds the processor body when it was valid JSON, nil otherwise.
type UpstreamError struct {
	Op      string
	Status  int
	Details json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("paystack %s failed with status %d", e.Op, e.Status)
}

// HTTPStatus is the processor status when it is an error status, else 500.
func (e *UpstreamError) HTTPStatus() int {
	if e.Status >= http.StatusBadRequest {
		return e.Status
	}
	return http.StatusInternalServerError
}
