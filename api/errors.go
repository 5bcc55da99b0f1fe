package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrIterationExhausted is returned by PageIterator.Next once the server has
// reported no further page. It marks the normal end of a sequence.
var ErrIterationExhausted = errors.New("mopinion: iteration exhausted")

// ValidationCode classifies a ValidationError.
type ValidationCode string

const (
	CodeEndpointNotSupported ValidationCode = "endpoint_not_supported"
	CodeInvalidArgument      ValidationCode = "invalid_argument"
	CodeInvalidResource      ValidationCode = "invalid_resource"
	CodeQuietIteration       ValidationCode = "quiet_iteration"
	CodeInvalidCredentials   ValidationCode = "invalid_credentials"
)

// ValidationError is raised locally, before any network call, when a request
// cannot be expressed against the API.
type ValidationError struct {
	Code  ValidationCode
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("validation error (%s)", e.Code)
	if e.Field != "" {
		msg += fmt.Sprintf(" %s=%q", e.Field, e.Value)
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// AuthenticationBootstrapError reports a failed exchange of credentials for a
// session signing key. No client is produced when it occurs.
type AuthenticationBootstrapError struct {
	Err error
}

func (e *AuthenticationBootstrapError) Error() string {
	return fmt.Sprintf("signature token bootstrap failed: %v", e.Err)
}

func (e *AuthenticationBootstrapError) Unwrap() error {
	return e.Err
}

// RequestError represents a failed authenticated call: either a non-2xx
// response (StatusCode set) or a transport fault (Err set).
type RequestError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: request failed: %v", e.Method, e.URL, e.Err)
	}

	if e.Message != "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
	}

	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Body)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func statusOf(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}

	return 0
}

// IsValidationError reports whether err is a ValidationError with the given
// code. An empty code matches any ValidationError.
func IsValidationError(err error, code ValidationCode) bool {
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		return false
	}

	return code == "" || vErr.Code == code
}

// IsNotFoundError checks if an error is a 404 Not Found error.
func IsNotFoundError(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

// IsUnauthorizedError checks if an error is a 401 Unauthorized error.
func IsUnauthorizedError(err error) bool {
	return statusOf(err) == http.StatusUnauthorized
}

// IsForbiddenError checks if an error is a 403 Forbidden error.
func IsForbiddenError(err error) bool {
	return statusOf(err) == http.StatusForbidden
}

// IsBadRequestError checks if an error is a 400 Bad Request error.
func IsBadRequestError(err error) bool {
	return statusOf(err) == http.StatusBadRequest
}

// IsRateLimitedError checks if an error is a 429 Too Many Requests error.
func IsRateLimitedError(err error) bool {
	return statusOf(err) == http.StatusTooManyRequests
}
