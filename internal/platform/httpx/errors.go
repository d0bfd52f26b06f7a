// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for domain layer. Domain packages wrap these so the edge can
// map them without importing every module.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrUnavailable  = errors.New("upstream unavailable")
)

// StatusFor returns the HTTP status that RespondError would use for err.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	switch status {
	case http.StatusNotFound:
		Problem(w, status, "Not Found", err.Error())
	case http.StatusConflict:
		if errors.Is(err, ErrDuplicate) {
			Problem(w, status, "Duplicate", err.Error())
			return
		}
		Problem(w, status, "Conflict", err.Error())
	case http.StatusBadRequest:
		Problem(w, status, "Validation Failed", err.Error())
	case http.StatusForbidden:
		Problem(w, status, "Forbidden", err.Error())
	case http.StatusUnauthorized:
		Problem(w, status, "Unauthorized", err.Error())
	case http.StatusServiceUnavailable:
		Problem(w, status, "Service Unavailable", "a backing service did not respond, retry later")
	default:
		Problem(w, status, "Internal Error", "")
	}
}
