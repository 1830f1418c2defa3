// Package errors provides the error taxonomy used across the web frontend.
// Every backend call failure is normalized into an AppError so page handlers
// can decide between showing a message and redirecting to login.
package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode classifies a failure
type ErrorCode string

const (
	// CodeTransport covers network-level failures: the backend could not be
	// reached at all.
	CodeTransport ErrorCode = "TRANSPORT_ERROR"
	// CodeBackend covers application errors reported by the backend; the
	// backend message is surfaced verbatim where space allows.
	CodeBackend ErrorCode = "BACKEND_ERROR"
	// CodeUnauthorized covers missing or expired backend sessions.
	CodeUnauthorized ErrorCode = "NOT_AUTHENTICATED"
	// CodeValidation covers local form validation failures, caught before
	// any network call is made.
	CodeValidation ErrorCode = "VALIDATION_FAILED"
)

// AppError carries a classified, human-readable error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode maps the error onto an HTTP status for page responses
func (e *AppError) StatusCode() int {
	switch e.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns the text shown to the user. Transport failures
// collapse into a generic message; backend messages pass through.
func (e *AppError) UserMessage() string {
	if e.Code == CodeTransport {
		return "Failed to connect to the server. Please try again."
	}
	return e.Message
}

// NewTransportError wraps a network failure
func NewTransportError(cause error) *AppError {
	return &AppError{Code: CodeTransport, Message: "failed to connect", Cause: cause}
}

// NewBackendError carries a backend-reported message
func NewBackendError(message string) *AppError {
	if message == "" {
		message = "request failed"
	}
	return &AppError{Code: CodeBackend, Message: message}
}

// NewUnauthorizedError reports a missing or invalid backend session
func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = "not authenticated"
	}
	return &AppError{Code: CodeUnauthorized, Message: message}
}

// NewValidationError reports a local form validation failure
func NewValidationError(message string) *AppError {
	return &AppError{Code: CodeValidation, Message: message}
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return CodeBackend
}

// IsAuthFailure reports whether an error should trigger a redirect to the
// login page. Besides the explicit code, backend error strings are matched
// by content since the backend phrases session loss in more than one way.
func IsAuthFailure(err error) bool {
	if err == nil {
		return false
	}
	if GetCode(err) == CodeUnauthorized {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not authenticated") || strings.Contains(msg, "not logged in")
}
