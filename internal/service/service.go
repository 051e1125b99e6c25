// Package service holds the business rules between the HTTP handlers and
// the repositories.
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → validates, checks uniqueness, maps errors
//	Repository      → reads and writes the database
//
// Services validate input before any I/O and only ever return
// *apperror.AppError values: known domain errors pass through unchanged,
// anything else is logged with its raw cause and replaced by
// apperror.ErrUnknown.
package service

import (
	"errors"
	"log/slog"

	"github.com/sakif/linkshelf/internal/apperror"
)

// fail logs err and returns what the caller may see.
func fail(logger *slog.Logger, msg string, err error, attrs ...any) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		// Domain errors with a hidden cause (deletion failures) still
		// deserve a log line; plain NotFound/Conflict do not.
		if cause := appErr.Cause(); cause != nil {
			logger.Error(msg, append(attrs, slog.String("error", cause.Error()))...)
		}
		return err
	}
	logger.Error(msg, append(attrs, slog.String("error", err.Error()))...)
	return apperror.Coerce(err)
}
