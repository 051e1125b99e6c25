package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sakif/linkshelf/internal/apperror"
	"github.com/sakif/linkshelf/internal/auth"
)

// maxBodyBytes bounds JSON request bodies. Bookmark payloads are tiny.
const maxBodyBytes = 64 << 10

// decodeJSON reads exactly one JSON object into dst. Unknown fields and
// trailing data are rejected. Field validation is left to the services.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.ValidationFailed("", "request body is too large")
		}
		return apperror.ValidationFailed("", "invalid JSON body")
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperror.ValidationFailed("", "invalid JSON body")
	}
	return nil
}

// currentIdentity returns the caller set by auth.RequireAuth. It writes a
// 401 itself when the route was mounted without the middleware.
func currentIdentity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
	}
	return id, ok
}
