// Package errors provides application-level error types and utilities.
// It separates validation, not found, conflict, transient and configuration failures
// so pipeline steps can decide between skipping, retrying and aborting.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation_error"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeInternal   ErrorType = "internal_error"
	ErrorTypeTransient  ErrorType = "transient_error"
	ErrorTypeConfig     ErrorType = "config_error"
)

// exitCodes maps error types to process exit codes used by the CLI.
var exitCodes = map[ErrorType]int{
	ErrorTypeValidation: 2,
	ErrorTypeNotFound:   3,
	ErrorTypeConflict:   4,
	ErrorTypeInternal:   1,
	ErrorTypeTransient:  75,
	ErrorTypeConfig:     78,
}

// AppError represents an application error with additional context
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Err     error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Type, e.Message)
	if e.Details != "" {
		fmt.Fprintf(&b, " (%s)", e.Details)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit code for this error.
func (e *AppError) ExitCode() int {
	if code, ok := exitCodes[e.Type]; ok {
		return code
	}
	return 1
}

func newAppError(t ErrorType, message string, details []string) *AppError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AppError{
		Type:    t,
		Message: message,
		Details: detail,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeValidation, message, details)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeNotFound, message, details)
}

// NewConflictError creates a new conflict error
func NewConflictError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeConflict, message, details)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeInternal, message, details)
}

// NewTransientError wraps a failure of an external resource that may succeed on retry.
func NewTransientError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeTransient, Message: message, Err: err}
}

// NewConfigError wraps a fatal configuration or environment failure.
func NewConfigError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeConfig, Message: message, Err: err}
}

// IsAppError checks if the error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from error
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

func isType(err error, t ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == t
}

// IsConflictError checks if the error is a conflict error
func IsConflictError(err error) bool {
	return isType(err, ErrorTypeConflict)
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsTransientError checks if the error is worth retrying
func IsTransientError(err error) bool {
	return isType(err, ErrorTypeTransient)
}

// IsConfigError checks if the error is a configuration error
func IsConfigError(err error) bool {
	return isType(err, ErrorTypeConfig)
}

// IsDuplicateError checks if the error is a database duplicate key error
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	return strings.Contains(errStr, "duplicate key") || strings.Contains(errStr, "unique constraint")
}

// ExitCode returns the CLI exit code for any error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if appErr := GetAppError(err); appErr != nil {
		return appErr.ExitCode()
	}
	return 1
}
