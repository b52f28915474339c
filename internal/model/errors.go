package model

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common cases.
// Use errors.Is() to check against these.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrUpstreamError  = errors.New("upstream error")
	ErrRateLimited    = errors.New("rate limited")
	ErrExpired        = errors.New("token expired")
)

// Protocol error codes returned to the partner system before any directive runs.
// 1xx: malformed payload, 2xx: credential mismatch, 300: expired token.
const (
	CodeMalformedBody      = "Error-100"
	CodeMissingDirectives  = "Error-101"
	CodeMissingToken       = "Error-102"
	CodeMalformedToken     = "Error-103"
	CodeIntegrationIDMatch = "Error-200"
	CodeUnknownKey         = "Error-201"
	CodeDecryptionFailed   = "Error-202"
	CodeNotConfigured      = "Error-203"
	CodeExpiredToken       = "Error-300"
)

// APIError is a coded error. Protocol codes are written to the partner as-is;
// the remaining codes classify storefront failures and reach a response only
// inside a directive result message.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"` // HTTP status, not serialized
	Err        error  `json:"-"` // Wrapped error, not serialized
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewNotFoundError reports a storefront lookup that did not resolve.
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
		Err:        ErrNotFound,
	}
}

// NewValidationError reports input a storefront operation refused.
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:       "VALIDATION_ERROR",
		Message:    fmt.Sprintf("invalid %s: %s", field, reason),
		StatusCode: http.StatusBadRequest,
		Err:        ErrInvalidRequest,
	}
}

// NewUnauthorizedError reports rejected storefront API credentials.
func NewUnauthorizedError(reason string) *APIError {
	return &APIError{
		Code:       "UNAUTHORIZED",
		Message:    reason,
		StatusCode: http.StatusUnauthorized,
		Err:        ErrUnauthorized,
	}
}

// NewUpstreamError wraps a failed storefront call.
func NewUpstreamError(service string, err error) *APIError {
	return &APIError{
		Code:       "UPSTREAM_ERROR",
		Message:    fmt.Sprintf("%s request failed", service),
		StatusCode: http.StatusBadGateway,
		Err:        fmt.Errorf("%w: %v", ErrUpstreamError, err),
	}
}

// NewInternalError wraps an unexpected failure. The handler answers it with a
// 500 and a generic message.
func NewInternalError(err error) *APIError {
	return &APIError{
		Code:       "INTERNAL_ERROR",
		Message:    "an internal error occurred",
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewRateLimitError reports that the storefront throttled a call.
func NewRateLimitError(service string) *APIError {
	return &APIError{
		Code:       "RATE_LIMITED",
		Message:    fmt.Sprintf("%s rate limit exceeded, please retry later", service),
		StatusCode: http.StatusTooManyRequests,
		Err:        ErrRateLimited,
	}
}

// NewMalformedPayloadError creates an Error-1xx protocol error.
func NewMalformedPayloadError(code, reason string) *APIError {
	return &APIError{
		Code:       code,
		Message:    reason,
		StatusCode: http.StatusBadRequest,
		Err:        ErrInvalidRequest,
	}
}

// NewCredentialError creates an Error-2xx protocol error.
// The wrapped cause is kept for logging and never serialized.
func NewCredentialError(code, reason string, cause error) *APIError {
	err := ErrUnauthorized
	if cause != nil {
		err = fmt.Errorf("%w: %v", ErrUnauthorized, cause)
	}
	return &APIError{
		Code:       code,
		Message:    reason,
		StatusCode: http.StatusUnauthorized,
		Err:        err,
	}
}

// NewExpiredTokenError creates the Error-300 protocol error.
func NewExpiredTokenError() *APIError {
	return &APIError{
		Code:       CodeExpiredToken,
		Message:    "token is expired or not yet valid",
		StatusCode: http.StatusUnauthorized,
		Err:        ErrExpired,
	}
}
