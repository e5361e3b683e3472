// Package apperror defines the error vocabulary shared by the store, the
// services and the JSON surface.
//
// Sentinels identify the KIND of failure, AppError carries the human-readable
// reason shown to the user:
//
//	repository returns: apperror.NotFound("profile", id)
//	service wraps:      fmt.Errorf("fetching profile: %w", err)
//	caller checks:      errors.Is(err, apperror.ErrNotFound) → true
//
// The taxonomy of the engagement core maps onto it like this:
//   - NotFound    → ErrNotFound    (usually absorbed as a valid "absent" state)
//   - Conflict    → ErrConflict    (duplicate-creation race, resolved by re-fetch)
//   - TotalFailure → ErrUnavailable (every source of a multi-source read failed)
//
// Plain store failures are not wrapped in an AppError; they travel as
// fmt.Errorf chains and the message is the reason.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("unavailable")
)

// AppError pairs a sentinel with a message fit for display.
type AppError struct {
	Err     error  // sentinel, matched with errors.Is
	Message string // reason shown to the user
	Field   string // optional: input field at fault
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
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

// Conflict reports a uniqueness violation on key.
func Conflict(resource, key string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s already exists for %s", resource, key),
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized means the caller's credentials were missing, wrong or expired.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Unavailable reports that none of the named sources could be read.
func Unavailable(what string, sources ...string) *AppError {
	msg := fmt.Sprintf("%s unavailable", what)
	if len(sources) > 0 {
		msg = fmt.Sprintf("%s unavailable: %s failed", what, strings.Join(sources, ", "))
	}
	return &AppError{
		Err:     ErrUnavailable,
		Message: msg,
	}
}

// Reason returns the message to show for err. AppErrors anywhere in the
// chain win over the wrapped store text.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
