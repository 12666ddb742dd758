// Package errors defines the domain error taxonomy of the matching engine and
// the mapping from those errors to HTTP responses. Centralizing the mapping
// keeps the service and handler layers free of status-code decisions.
package errors

import (
	"context"
	"errors"
	"net/http"

	"gorm.io/gorm"
)

var (
	// ErrProfileIncomplete blocks liking and candidate browsing until the
	// actor fills the required profile fields. User-correctable.
	ErrProfileIncomplete = errors.New("profile is incomplete")

	// ErrSelfReference means an actor tried to decide on themself. This is
	// a client bug; the request is rejected before any write.
	ErrSelfReference = errors.New("cannot decide on yourself")

	// ErrNotFound means a referenced user or record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrNotMatched means two users without an active match attempted an
	// operation reserved for matched pairs (e.g. messaging).
	ErrNotMatched = errors.New("users are not matched")

	// ErrStoreUnavailable is surfaced only after retries against the
	// backing store are exhausted. Callers should treat it as "try again";
	// it never implies anything about match state.
	ErrStoreUnavailable = errors.New("store unavailable, try again")
)

// Map converts domain and infra errors to an HTTP status and a safe message.
func Map(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""

	case errors.Is(err, ErrProfileIncomplete):
		return http.StatusUnprocessableEntity, ErrProfileIncomplete.Error()

	case errors.Is(err, ErrSelfReference):
		return http.StatusBadRequest, ErrSelfReference.Error()

	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, ErrNotFound.Error()

	case errors.Is(err, ErrNotMatched):
		return http.StatusForbidden, ErrNotMatched.Error()

	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable, ErrStoreUnavailable.Error()

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"

	case errors.Is(err, context.Canceled):
		return 499, "request was canceled"

	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// Is re-exports errors.Is so callers don't need both packages.
func Is(err, target error) bool { return errors.Is(err, target) }
