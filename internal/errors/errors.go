package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a chartd error code.
type ErrorCode string

const (
	ErrValidation       ErrorCode = "VALIDATION"        // 400
	ErrUnauthenticated  ErrorCode = "UNAUTHENTICATED"   // 401
	ErrNotFound         ErrorCode = "NOT_FOUND"         // 404
	ErrConflict         ErrorCode = "CONFLICT"          // 409
	ErrRenderFailure    ErrorCode = "RENDER_FAILURE"    // 502
	ErrStoreUnavailable ErrorCode = "STORE_UNAVAILABLE" // 503
	ErrInternal         ErrorCode = "INTERNAL"          // 500
)

// ChartError represents a structured error with code, status, and details.
type ChartError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	cause error
}

// Error implements the error interface.
func (e *ChartError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *ChartError) Unwrap() error {
	return e.cause
}

// NewValidation creates a 400 error for input that fails validation before
// any store call is made.
func NewValidation(field, msg string) *ChartError {
	return &ChartError{
		Code:    ErrValidation,
		Status:  400,
		Message: msg,
		Details: map[string]any{"field": field},
	}
}

// NewUnauthenticated creates a 401 error for missing or invalid identity.
func NewUnauthenticated(msg string) *ChartError {
	return &ChartError{
		Code:    ErrUnauthenticated,
		Status:  401,
		Message: msg,
	}
}

// NewNotFound creates a 404 error.
func NewNotFound(kind, identifier string) *ChartError {
	return &ChartError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *ChartError {
	return &ChartError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewRenderFailure creates a 502 error when the renderer is unreachable or
// answers with a non-2xx status.
func NewRenderFailure(url string, err error) *ChartError {
	msg := "renderer failed"
	if err != nil {
		msg = fmt.Sprintf("renderer failed: %v", err)
	}
	return &ChartError{
		Code:    ErrRenderFailure,
		Status:  502,
		Message: msg,
		Details: map[string]any{"url": url},
		cause:   err,
	}
}

// NewStoreUnavailable creates a 503 error for backend failures on the
// saved charts store. The driver error stays in the cause for logs and is
// never shown to users.
func NewStoreUnavailable(op string, err error) *ChartError {
	return &ChartError{
		Code:    ErrStoreUnavailable,
		Status:  503,
		Message: fmt.Sprintf("chart store unavailable during %s", op),
		Details: map[string]any{"operation": op},
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *ChartError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &ChartError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if err (or anything it wraps) is a ChartError with the given code.
func Is(err error, code ErrorCode) bool {
	var cErr *ChartError
	if stderrors.As(err, &cErr) {
		return cErr.Code == code
	}
	return false
}

// As converts err into a ChartError, wrapping unknown errors as INTERNAL.
func As(err error) *ChartError {
	var cErr *ChartError
	if stderrors.As(err, &cErr) {
		return cErr
	}
	return NewInternal(err)
}
