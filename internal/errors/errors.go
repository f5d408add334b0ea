package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents an application error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrConfiguration  ErrorCode = "CONFIGURATION"   // 500
	ErrUpstream       ErrorCode = "UPSTREAM"        // 500
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// AppError represents a structured error with code, status, and details.
type AppError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// cause is the underlying error for INTERNAL/UPSTREAM errors. It is logged, never rendered.
	cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *AppError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for missing or malformed input.
func NewInvalidRequest(msg string) *AppError {
	return &AppError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing entity.
// kind is the entity name ("meeting", "folder").
func NewNotFound(kind, id string) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
		Details: map[string]any{"kind": kind, "id": id},
	}
}

// NewConfiguration creates a 500 error for missing server-side configuration.
func NewConfiguration(msg string) *AppError {
	return &AppError{
		Code:    ErrConfiguration,
		Status:  500,
		Message: msg,
	}
}

// NewUpstream creates a 500 error for a failed vendor call.
// msg is shown to the caller and should already be truncated.
func NewUpstream(msg string, cause error) *AppError {
	return &AppError{
		Code:    ErrUpstream,
		Status:  500,
		Message: msg,
		cause:   cause,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *AppError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &AppError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if err is (or wraps) an AppError with the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// As is a shorthand for errors.As into *AppError.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
