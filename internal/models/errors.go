package models

import (
	"errors"
	"fmt"
)

// Error codes carried by AppError.
const (
	CodeConfiguration = "CONFIGURATION_ERROR"
	CodeValidation    = "VALIDATION_ERROR"
	CodeDecode        = "DECODE_ERROR"
	CodeBackend       = "BACKEND_ERROR"
	CodeCapability    = "CAPABILITY_ERROR"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeNotFound      = "NOT_FOUND"
	CodeInternal      = "INTERNAL_ERROR"
)

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewConfigurationError reports that backend credentials are missing or invalid.
func NewConfigurationError(message string) *AppError {
	return &AppError{
		Code:    CodeConfiguration,
		Message: message,
	}
}

// NewValidationError reports a violated input rule. rule may be nil.
func NewValidationError(message string, rule ...error) *AppError {
	e := &AppError{
		Code:    CodeValidation,
		Message: message,
	}
	if len(rule) > 0 {
		e.Err = rule[0]
	}
	return e
}

// NewDecodeError reports an image payload that could not be decoded.
func NewDecodeError(err error) *AppError {
	return &AppError{
		Code:    CodeDecode,
		Message: "Failed to load image for dimension analysis",
		Err:     err,
	}
}

// NewBackendError wraps a failed backend call.
func NewBackendError(operation string, err error) *AppError {
	return &AppError{
		Code:    CodeBackend,
		Message: "Failed to " + operation,
		Err:     err,
	}
}

// NewCapabilityError reports an action disallowed by the current auth, config or record kind.
func NewCapabilityError(message string) *AppError {
	return &AppError{
		Code:    CodeCapability,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal error",
		Err:     err,
	}
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// UserMessage returns the user-facing message of err.
func UserMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
