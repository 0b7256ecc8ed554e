// Package errors defines the structured error taxonomy shared by the
// soundscribe job pipeline. Every failure an executor or sink can hit maps to
// one of the codes below, which in turn become the stable error-kind tags
// stored on failed job records.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeNotFound indicates an unknown job id or a missing storage object.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeAccessDenied indicates storage credentials or permissions rejected the operation.
	ErrCodeAccessDenied ErrorCode = "access_denied"
	// ErrCodeTransient indicates a network/storage hiccup that is safe to retry.
	ErrCodeTransient ErrorCode = "transient"
	// ErrCodeEngine indicates a transcription engine failure (non-retryable).
	ErrCodeEngine ErrorCode = "engine"
	// ErrCodeTimeout indicates a step exceeded its deadline.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeInvalidTransition indicates an internal job state-machine violation.
	ErrCodeInvalidTransition ErrorCode = "invalid_transition"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "internal"
)

// AppError represents a structured application error with a code, message, and
// optional cause. It supports error wrapping for use with errors.Is/errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the specific field that caused the error (optional, for validation errors)
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// AccessDenied creates a new AccessDenied error.
func AccessDenied(message string) *AppError {
	return &AppError{Code: ErrCodeAccessDenied, Message: message}
}

// Transient creates a new Transient error.
func Transient(message string) *AppError {
	return &AppError{Code: ErrCodeTransient, Message: message}
}

// Engine creates a new Engine error.
func Engine(message string) *AppError {
	return &AppError{Code: ErrCodeEngine, Message: message}
}

// Timeout creates a new Timeout error.
func Timeout(message string) *AppError {
	return &AppError{Code: ErrCodeTimeout, Message: message}
}

// InvalidTransition creates a new InvalidTransition error.
func InvalidTransitionf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool { return isCode(err, ErrCodeNotFound) }

// IsAccessDenied checks if an error is an AccessDenied error.
func IsAccessDenied(err error) bool { return isCode(err, ErrCodeAccessDenied) }

// IsTransient checks if an error is a Transient error.
func IsTransient(err error) bool { return isCode(err, ErrCodeTransient) }

// IsEngine checks if an error is an Engine error.
func IsEngine(err error) bool { return isCode(err, ErrCodeEngine) }

// IsTimeout checks if an error is a Timeout error.
func IsTimeout(err error) bool { return isCode(err, ErrCodeTimeout) }

// IsInvalidTransition checks if an error is an InvalidTransition error.
func IsInvalidTransition(err error) bool { return isCode(err, ErrCodeInvalidTransition) }

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool { return isCode(err, ErrCodeValidation) }

// Retryable reports whether the executor may retry the failed step.
// Only transient storage/network failures qualify.
func Retryable(err error) bool {
	return IsTransient(err)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// KindLabel maps an error to the stable kind tag recorded on failed jobs and
// exposed to status queries. Context deadline errors are normalised to the
// Timeout kind even when no AppError wrapped them.
func KindLabel(err error) string {
	if errors.Is(err, context.DeadlineExceeded) && !isCode(err, ErrCodeTimeout) {
		return "Timeout"
	}
	switch GetCode(err) {
	case ErrCodeNotFound:
		return "NotFound"
	case ErrCodeAccessDenied:
		return "AccessDenied"
	case ErrCodeTransient:
		return "Transient"
	case ErrCodeEngine:
		return "EngineError"
	case ErrCodeTimeout:
		return "Timeout"
	case ErrCodeInvalidTransition:
		return "InvalidTransition"
	case ErrCodeValidation:
		return "Validation"
	default:
		return "InternalError"
	}
}
