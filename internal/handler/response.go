package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or writeError, so all responses
// share one shape. Errors always look like:
//
//	{"error": "not_found", "message": "category not found with id abc123"}
//
// "error" is the machine-readable kind and "message" is safe to show.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/linkshelf/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`           // machine-readable kind, e.g. "duplicate_name"
	Message string `json:"message"`         // human-readable description
	Field   string `json:"field,omitempty"` // input field at fault, when known
}

// writeJSON sends data with the given status code. Headers must be set
// before WriteHeader; anything after it is ignored by net/http.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status and sends it.
//
// The service layer knows nothing about HTTP. This is the one place where
// apperror sentinels become status codes:
//
//	ErrValidation          → 400 validation_error
//	ErrUnsupportedProvider → 400 unsupported_provider
//	ErrTokenRefresh        → 401 reauth_required
//	ErrNotFound            → 404 not_found
//	ErrConflict            → 409 duplicate_name / duplicate_url / conflict
//	ErrDeletionFailed      → 500 deletion_failed
//	anything else          → 500 internal_error
func writeError(w http.ResponseWriter, err error) {
	status, kind := statusFor(err)

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		// Never expose raw error text: it may carry SQL or file paths.
		writeJSON(w, status, ErrorResponse{
			Error:   kind,
			Message: "An internal error occurred",
		})
		return
	}

	writeJSON(w, status, ErrorResponse{
		Error:   kind,
		Message: appErr.Message,
		Field:   appErr.Field,
	})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnsupportedProvider):
		return http.StatusBadRequest, "unsupported_provider"
	case errors.Is(err, apperror.ErrTokenRefresh):
		return http.StatusUnauthorized, "reauth_required"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code != "" {
			return http.StatusConflict, appErr.Code
		}
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrDeletionFailed):
		return http.StatusInternalServerError, "deletion_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
