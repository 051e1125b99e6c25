// Package apperror defines the domain error taxonomy shared by the stores,
// services and HTTP handlers.
//
// Every error a caller may show to a user is an *AppError. Its Err field is
// one of the sentinels below, so callers branch with errors.Is, and its
// Message is already safe to display. Raw storage or provider errors never
// end up in Message.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation error")
	ErrConflict            = errors.New("conflict")
	ErrTokenRefresh        = errors.New("token refresh failed")
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrDeletionFailed      = errors.New("deletion failed")
	ErrUnknown             = errors.New("unknown store error")
)

// Machine-readable codes for the conflict family. Each maps to ErrConflict;
// Code tells a client which value collided.
const (
	CodeDuplicateName  = "duplicate_name"
	CodeDuplicateURL   = "duplicate_url"
	CodeDuplicateEmail = "duplicate_email"
)

type AppError struct {
	Err     error  // sentinel, one of the Err* values above
	Code    string // optional finer-grained code
	Message string // human-readable, safe to display
	Field   string // optional: field causing the error

	// Status and StatusText are set for token refresh failures and carry
	// the provider's HTTP response line.
	Status     int
	StatusText string

	cause error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Cause returns the low-level error this AppError replaced, if any. It is
// meant for logs only.
func (e *AppError) Cause() error {
	return e.cause
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// DuplicateName reports that an active sibling already uses name.
func DuplicateName(resource, name string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Code:    CodeDuplicateName,
		Message: fmt.Sprintf("a %s named %q already exists", resource, name),
		Field:   "name",
	}
}

// DuplicateURL reports that the user already saved rawURL.
func DuplicateURL(rawURL string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Code:    CodeDuplicateURL,
		Message: fmt.Sprintf("the URL %s is already saved", rawURL),
		Field:   "url",
	}
}

// DuplicateEmail reports that an account already exists for email.
func DuplicateEmail(email string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Code:    CodeDuplicateEmail,
		Message: fmt.Sprintf("an account for %s already exists", email),
		Field:   "email",
	}
}

// TokenRefresh reports a rejected refresh-token exchange. status is the
// provider's HTTP status code, or 0 when the request never got a response.
func TokenRefresh(provider string, status int, statusText string, cause error) *AppError {
	return &AppError{
		Err:        ErrTokenRefresh,
		Message:    fmt.Sprintf("could not refresh the %s session, please sign in again", provider),
		Status:     status,
		StatusText: statusText,
		cause:      cause,
	}
}

func UnsupportedProvider(provider string) *AppError {
	return &AppError{
		Err:     ErrUnsupportedProvider,
		Message: fmt.Sprintf("unsupported provider: %s", provider),
		Field:   "provider",
	}
}

// DeletionFailed hides whatever went wrong during a cascading delete.
func DeletionFailed(resource string, cause error) *AppError {
	return &AppError{
		Err:     ErrDeletionFailed,
		Message: fmt.Sprintf("failed to delete %s", resource),
		cause:   cause,
	}
}

// Unknown wraps an unexpected storage failure behind a generic message.
func Unknown(cause error) *AppError {
	return &AppError{
		Err:     ErrUnknown,
		Message: "something went wrong, please try again",
		cause:   cause,
	}
}

// Coerce passes *AppError values through unchanged and wraps everything
// else with Unknown. nil stays nil.
func Coerce(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return Unknown(err)
}
