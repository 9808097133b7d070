package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies failures crossing the orchestration layer.
type ErrorType string

const (
	// Startup errors
	ErrorTypeConfiguration     ErrorType = "CONFIGURATION"
	ErrorTypeDeploymentTimeout ErrorType = "DEPLOYMENT_TIMEOUT"

	// Request errors
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeNotReady   ErrorType = "NOT_READY"

	// Backend errors
	ErrorTypeUnavailable ErrorType = "BACKEND_UNAVAILABLE"
	ErrorTypeBackend     ErrorType = "BACKEND"

	ErrorTypeInternal ErrorType = "INTERNAL"
)

// AppError carries a typed failure plus the HTTP status it maps to.
// Desync between the two stores is deliberately absent from this taxonomy:
// it is a log event, never an error value returned to a caller.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	HTTPStatus int                    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails attaches structured context for the response body.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause wraps an underlying error.
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// NewConfigurationError reports missing or malformed bootstrap credentials.
// Fatal at startup; never produced on the request path.
func NewConfigurationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConfiguration,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NewDeploymentTimeoutError reports that the ledger chaincode never became
// queryable within the probe bound.
func NewDeploymentTimeoutError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeDeploymentTimeout,
		Message:    message,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// NewValidationError creates a validation error surfaced as 400.
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotReadyError is returned while the deployment gate has not confirmed
// the chaincode; callers should retry after the hinted interval.
func NewNotReadyError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotReady,
		Message:    message,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// NewUnavailableError reports a transient transport failure talking to one
// of the two backends.
func NewUnavailableError(backend string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeUnavailable,
		Message:    fmt.Sprintf("%s backend is unavailable", backend),
		Cause:      err,
		HTTPStatus: http.StatusBadGateway,
	}
}

// NewBackendError reports an error response produced by a backend itself
// (the call reached it; it refused).
func NewBackendError(backend, message string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeBackend,
		Message:    fmt.Sprintf("%s: %s", backend, message),
		Cause:      err,
		HTTPStatus: http.StatusBadGateway,
	}
}

// NewInternalError creates a generic internal error.
func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// GetAppError extracts an AppError from an error chain, or nil.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType checks whether an error chain contains an AppError of a type.
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

// IsUnavailable reports whether the error is a transient backend failure.
func IsUnavailable(err error) bool {
	return IsType(err, ErrorTypeUnavailable)
}

// IsValidation reports whether the error is a validation failure.
func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}
