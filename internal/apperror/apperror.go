// Package apperror defines the error kinds shared by the service and handler
// layers. Services return these; handlers decide how each kind is shown.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrValidation             = errors.New("validation error")
	ErrConflict               = errors.New("conflict")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrSessionRequired        = errors.New("session required")
	ErrPasswordChangeRequired = errors.New("password change required")
)

// invalidCredentialsMessage is shared by every authentication failure so the
// caller cannot tell an unknown email from a wrong password.
const invalidCredentialsMessage = "invalid email or password"

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound covers both "does not exist" and "exists but is not yours".
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

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Duplicate is a conflict that should be shown next to a form field,
// e.g. registering an email that already has an account.
func Duplicate(field, message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
		Field:   field,
	}
}

func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: invalidCredentialsMessage,
	}
}

func SessionRequired() *AppError {
	return &AppError{
		Err:     ErrSessionRequired,
		Message: "please log in to continue",
	}
}

func PasswordChangeRequired() *AppError {
	return &AppError{
		Err:     ErrPasswordChangeRequired,
		Message: "please choose a new password to continue",
	}
}

// FieldOf returns the form field an error is attached to, or "".
func FieldOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
