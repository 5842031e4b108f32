package errors

import (
	"errors"
	"fmt"
)

// Error types for different failure domains
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeConflict    ErrorType = "conflict"
	ErrorTypeUnsupported ErrorType = "unsupported"
	ErrorTypeHandler     ErrorType = "handler"
	ErrorTypeInternal    ErrorType = "internal"
	ErrorTypeExternal    ErrorType = "external"
	ErrorTypeNotFound    ErrorType = "not_found"
)

// Well-known error codes surfaced by the clock subsystem
const (
	CodeInvalidSchedule      = "INVALID_SCHEDULE"
	CodeDuplicateLabel       = "DUPLICATE_LABEL"
	CodeNonMonotonicTime     = "NON_MONOTONIC_TIME"
	CodeUnsupportedOperation = "UNSUPPORTED_OPERATION"
	CodeReentrantAdvance     = "REENTRANT_ADVANCE"
	CodeHandlerFailure       = "HANDLER_FAILURE"
)

// AppError represents a structured application error
type AppError struct {
	Type      ErrorType              `json:"type"`
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Cause     error                  `json:"-"`
	Retryable bool                   `json:"retryable"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// Error constructors
func NewValidationError(code, message string) *AppError {
	return &AppError{
		Type:      ErrorTypeValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

func NewConflictError(code, message string) *AppError {
	return &AppError{
		Type:      ErrorTypeConflict,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:      ErrorTypeInternal,
		Code:      "INTERNAL_ERROR",
		Message:   message,
		Retryable: true,
	}
}

func NewExternalError(service, message string) *AppError {
	return &AppError{
		Type:      ErrorTypeExternal,
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("%s service error: %s", service, message),
		Retryable: true,
		Details:   map[string]interface{}{"service": service},
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:      ErrorTypeNotFound,
		Code:      "RESOURCE_NOT_FOUND",
		Message:   fmt.Sprintf("%s not found", resource),
		Retryable: false,
	}
}

// NewInvalidScheduleError reports malformed timer parameters at registration
func NewInvalidScheduleError(message string) *AppError {
	return NewValidationError(CodeInvalidSchedule, message)
}

// NewDuplicateLabelError reports a registration against an already active label
func NewDuplicateLabelError(label string) *AppError {
	return NewConflictError(CodeDuplicateLabel,
		fmt.Sprintf("label %q is already active", label))
}

// NewNonMonotonicTimeError reports a backward advancement of a test clock
func NewNonMonotonicTimeError(message string) *AppError {
	return NewValidationError(CodeNonMonotonicTime, message)
}

// NewUnsupportedOperationError reports an operation the clock variant does not support
func NewUnsupportedOperationError(operation string) *AppError {
	return &AppError{
		Type:      ErrorTypeUnsupported,
		Code:      CodeUnsupportedOperation,
		Message:   fmt.Sprintf("operation %s is not supported by this clock", operation),
		Retryable: false,
	}
}

// NewReentrantAdvanceError reports a handler advancing the clock that invoked it
func NewReentrantAdvanceError() *AppError {
	return NewConflictError(CodeReentrantAdvance,
		"clock advancement is not reentrant: a handler must not advance its own clock")
}

// NewHandlerFailureError wraps a failure recovered from a registered handler
func NewHandlerFailureError(label string, cause error) *AppError {
	return &AppError{
		Type:      ErrorTypeHandler,
		Code:      CodeHandlerFailure,
		Message:   fmt.Sprintf("handler for label %q failed", label),
		Cause:     cause,
		Retryable: false,
		Details:   map[string]interface{}{"label": label},
	}
}

// Wrap wraps an error with a message using fmt.Errorf with %w
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsCode checks if an error carries a specific code
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}
