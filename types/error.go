package types

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the kind of a categorized failure.
type ErrorCode string

const (
	ErrValidation     ErrorCode = "VALIDATION"
	ErrConfiguration  ErrorCode = "CONFIGURATION"
	ErrNetwork        ErrorCode = "NETWORK"
	ErrProcessing     ErrorCode = "PROCESSING"
	ErrAuthentication ErrorCode = "AUTHENTICATION"
	ErrAuthorization  ErrorCode = "AUTHORIZATION"
	ErrRateLimited    ErrorCode = "RATE_LIMITED"
	ErrTimeout        ErrorCode = "TIMEOUT"
	ErrResource       ErrorCode = "RESOURCE"
	ErrUpstreamError  ErrorCode = "UPSTREAM_ERROR"
	ErrUnknown        ErrorCode = "UNKNOWN"
)

// Error represents a categorized failure with provider metadata. Provider
// integrations produce it from raw transport errors; everything above them
// branches on Code rather than message text.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	// ProviderCode is the provider-scoped code, e.g. "OPENAI_RATE_LIMIT".
	ProviderCode string `json:"provider_code,omitempty"`
	// RetryAfter is the rate-limit hint in seconds, 0 when absent.
	RetryAfter int   `json:"retry_after,omitempty"`
	Cause      error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Category maps the error kind onto the classification taxonomy.
func (e *Error) Category() ErrorCategory {
	switch e.Code {
	case ErrValidation:
		return CategoryValidation
	case ErrConfiguration:
		return CategoryConfiguration
	case ErrNetwork, ErrUpstreamError:
		return CategoryNetwork
	case ErrProcessing:
		return CategoryProcessing
	case ErrAuthentication:
		return CategoryAuthentication
	case ErrAuthorization:
		return CategoryAuthorization
	case ErrRateLimited:
		return CategoryRateLimit
	case ErrTimeout:
		return CategoryTimeout
	case ErrResource:
		return CategoryResource
	default:
		return CategoryUnknown
	}
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// WithProviderCode sets the provider-scoped error code.
func (e *Error) WithProviderCode(code string) *Error {
	e.ProviderCode = code
	return e
}

// WithRetryAfter sets the rate-limit hint in seconds.
func (e *Error) WithRetryAfter(seconds int) *Error {
	e.RetryAfter = seconds
	return e
}

// AsError extracts a *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// IsRetryable checks whether an error chain contains a retryable *Error.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error chain, or "" if the
// chain holds no *Error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}
