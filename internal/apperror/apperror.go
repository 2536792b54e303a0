// Package apperror defines the domain errors shared by the repository, service
// and handler layers. Handlers map them to response codes with errors.Is.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("invalid params")
	ErrConflict            = errors.New("conflict")
	ErrForbidden           = errors.New("forbidden")
	ErrUnauthorized        = errors.New("not logged in")
	ErrInsufficientCredits = errors.New("insufficient credits")
)

type AppError struct {
	Err     error  // sentinel the error wraps
	Message string // human-readable message, safe to show to clients
	Field   string // optional: request field that caused the error
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

// Conflict reports a write that lost a race with a concurrent writer, or a
// duplicate key.
func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

func Unauthorized() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: "no auth, please sign-in",
	}
}

// InsufficientCredits is returned before any generation work starts when the
// caller's balance is exhausted.
func InsufficientCredits() *AppError {
	return &AppError{
		Err:     ErrInsufficientCredits,
		Message: "credits not enough, please recharge",
	}
}
