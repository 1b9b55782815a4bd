package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// SizeLimitError is raised by the response size guard.
type SizeLimitError struct {
	Actual int
	Max    int
}

func (e *SizeLimitError) Error() string {
	return sizeMessage(e.Actual, e.Max)
}

// Classifier maps arbitrary failures onto the AppError taxonomy.
// Verbose adds the Go type of unclassified errors to the details.
type Classifier struct {
	Verbose bool
}

// Classify uses a non-verbose Classifier.
func Classify(err error) *AppError {
	return Classifier{}.Classify(err)
}

// Classify returns nil for a nil error. The first matching rule wins:
// size guard, already classified, provider status code, error category.
func (c Classifier) Classify(err error) *AppError {
	if err == nil {
		return nil
	}

	var sizeErr *SizeLimitError
	if stderrors.As(err, &sizeErr) {
		appErr := NewResponseTooLargeError(sizeErr.Actual, sizeErr.Max)
		appErr.Wrapped = err
		return appErr
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	var respErr *azcore.ResponseError
	if stderrors.As(err, &respErr) {
		return FromStatus(respErr.StatusCode, respErr.ErrorCode, retryAfter(respErr.RawResponse), err)
	}

	var authErr *azidentity.AuthenticationFailedError
	if stderrors.As(err, &authErr) {
		return NewAuthenticationError(err)
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return NewProviderError(http.StatusGatewayTimeout, "", err)
	}

	internal := NewInternalError(err)
	if c.Verbose {
		internal.WithDetails("error_type", fmt.Sprintf("%T", err))
	}
	return internal
}

// FromStatus classifies a provider-reported HTTP status.
func FromStatus(status int, providerCode, retryAfter string, cause error) *AppError {
	switch status {
	case http.StatusUnauthorized:
		return withProviderCode(NewAuthenticationError(cause), providerCode)
	case http.StatusForbidden:
		return withProviderCode(NewPermissionDeniedError(cause), providerCode)
	case http.StatusNotFound:
		return withProviderCode(NewNotFoundError(cause), providerCode)
	case http.StatusTooManyRequests:
		return NewRateLimitError(retryAfter, cause)
	default:
		if status == 0 {
			return NewInternalError(cause)
		}
		return NewProviderError(status, providerCode, cause)
	}
}

func withProviderCode(e *AppError, code string) *AppError {
	if code != "" {
		e.WithDetails("provider_error_code", code)
	}
	return e
}

func retryAfter(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	return resp.Header.Get("Retry-After")
}
