package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrAuthRequired = errors.New("authentication required")
)

type AppError struct {
	Err     error  // sentinel identifying the error class
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
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

func Conflict(resource, detail string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict: %s", resource, detail),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// AuthRequired returns an AppError for mutations attempted without a
// current identity. HTTP handlers map this to 401 Unauthorized.
func AuthRequired() *AppError {
	return &AppError{
		Err:     ErrAuthRequired,
		Message: "authentication required",
	}
}

// InvalidCredential returns an AppError for failed sign-in attempts.
// The message is deliberately the same for a wrong password and an unknown
// email so the response doesn't reveal which accounts exist.
func InvalidCredential() *AppError {
	return &AppError{
		Err:     ErrAuthRequired,
		Message: "invalid email or password",
	}
}
