package errors

import (
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"
)

// Kind is the machine-readable category of an application error.
type Kind string

const (
	KindValidation           Kind = "VALIDATION_ERROR"
	KindAuthenticationFailed Kind = "AUTHENTICATION_FAILED"
	KindPermissionDenied     Kind = "PERMISSION_DENIED"
	KindResourceNotFound     Kind = "RESOURCE_NOT_FOUND"
	KindRateLimitExceeded    Kind = "RATE_LIMIT_EXCEEDED"
	KindResponseTooLarge     Kind = "RESPONSE_TOO_LARGE"
	KindProviderError        Kind = "PROVIDER_ERROR"
	KindInternal             Kind = "INTERNAL_ERROR"
)

// DefaultStatus returns the HTTP status normally associated with a kind.
// Provider errors carry their own status and fall back to 502.
func (k Kind) DefaultStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthenticationFailed:
		return http.StatusUnauthorized
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindResourceNotFound:
		return http.StatusNotFound
	case KindRateLimitExceeded:
		return http.StatusTooManyRequests
	case KindResponseTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindProviderError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the classified error returned to API and CLI consumers.
type AppError struct {
	Kind      Kind                   `json:"error_code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details"`
	Status    int                    `json:"-"`
	Timestamp time.Time              `json:"-"`
	Wrapped   error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("[%s]", e.Kind))
	parts = append(parts, e.Message)

	if e.Wrapped != nil {
		parts = append(parts, fmt.Sprintf("caused by: %v", e.Wrapped))
	}

	return strings.Join(parts, " ")
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is an *AppError of the same kind.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithDetails adds a detail entry
func (e *AppError) WithDetails(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrorBuilder provides fluent API for building errors
type ErrorBuilder struct {
	err *AppError
}

// NewError creates a new error builder
func NewError(kind Kind, message string) *ErrorBuilder {
	return &ErrorBuilder{
		err: &AppError{
			Kind:      kind,
			Message:   message,
			Status:    kind.DefaultStatus(),
			Timestamp: time.Now(),
		},
	}
}

// WithStatus overrides the HTTP status
func (b *ErrorBuilder) WithStatus(status int) *ErrorBuilder {
	b.err.Status = status
	return b
}

// WithDetails adds context details
func (b *ErrorBuilder) WithDetails(key string, value interface{}) *ErrorBuilder {
	b.err.WithDetails(key, value)
	return b
}

// WithWrapped wraps another error
func (b *ErrorBuilder) WithWrapped(err error) *ErrorBuilder {
	b.err.Wrapped = err
	return b
}

// Build returns the built error
func (b *ErrorBuilder) Build() *AppError {
	return b.err
}

// NewInvalidValueError reports enumeration values outside the accepted set.
func NewInvalidValueError(parameter string, provided, valid []string) *AppError {
	return NewError(KindValidation, fmt.Sprintf("Invalid %s value", parameter)).
		WithStatus(http.StatusBadRequest).
		WithDetails("parameter", parameter).
		WithDetails("provided_value", provided).
		WithDetails("valid_values", valid).
		Build()
}

// NewValidationError reports a malformed or out-of-range parameter.
func NewValidationError(parameter, message string) *AppError {
	b := NewError(KindValidation, message).WithStatus(http.StatusUnprocessableEntity)
	if parameter != "" {
		b.WithDetails("parameter", parameter)
	}
	return b.Build()
}

// NewResponseTooLargeError reports a payload above the response ceiling.
func NewResponseTooLargeError(actual, limit int) *AppError {
	return NewError(KindResponseTooLarge, sizeMessage(actual, limit)).
		WithDetails("actual_size_bytes", actual).
		WithDetails("max_size_bytes", limit).
		WithDetails("actual_size_kb", math.Round(float64(actual)/1024*100)/100).
		WithDetails("max_size_kb", float64(limit)/1024).
		Build()
}

// NewAuthenticationError reports a rejected or unavailable provider credential.
func NewAuthenticationError(cause error) *AppError {
	return NewError(KindAuthenticationFailed, "Azure authentication failed. Check credentials.").
		WithWrapped(cause).
		Build()
}

// NewPermissionDeniedError reports a provider 403.
func NewPermissionDeniedError(cause error) *AppError {
	return NewError(KindPermissionDenied, "Insufficient permissions to perform this operation.").
		WithWrapped(cause).
		Build()
}

// NewNotFoundError reports a provider 404.
func NewNotFoundError(cause error) *AppError {
	return NewError(KindResourceNotFound, "The requested Azure resource was not found.").
		WithWrapped(cause).
		Build()
}

// NewRateLimitError reports provider throttling. retryAfter is the raw
// Retry-After hint and is omitted when empty.
func NewRateLimitError(retryAfter string, cause error) *AppError {
	b := NewError(KindRateLimitExceeded, "Azure API rate limit exceeded. Retry with exponential backoff.").
		WithWrapped(cause)
	if retryAfter != "" {
		b.WithDetails("retry_after", retryAfter)
	}
	return b.Build()
}

// NewProviderError passes a provider status through unchanged.
func NewProviderError(status int, providerCode string, cause error) *AppError {
	b := NewError(KindProviderError, fmt.Sprintf("Azure API error: %s", statusText(status))).
		WithStatus(status).
		WithDetails("status_code", status).
		WithWrapped(cause)
	if providerCode != "" {
		b.WithDetails("provider_error_code", providerCode)
	}
	return b.Build()
}

// NewInternalError hides an unexpected failure behind a generic message.
func NewInternalError(cause error) *AppError {
	return NewError(KindInternal, "An unexpected error occurred. Please try again.").
		WithWrapped(cause).
		Build()
}

func sizeMessage(actual, limit int) string {
	return fmt.Sprintf("Response size %d bytes exceeds limit of %d bytes (%.2fKB > %.1fKB)",
		actual, limit, float64(actual)/1024, float64(limit)/1024)
}

func statusText(status int) string {
	if text := http.StatusText(status); text != "" {
		return fmt.Sprintf("%d %s", status, text)
	}
	return fmt.Sprintf("status %d", status)
}
