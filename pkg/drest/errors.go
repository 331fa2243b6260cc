package drest

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds a failed API operation resolves to. Wrapped errors carry
// one of these sentinels; match with errors.Is or the predicates below.
var (
	// ErrAuthenticationFailed covers rejected credentials, failed form
	// logins and 401 responses.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrDoesNotExist covers 404 responses and lookups that match nothing.
	ErrDoesNotExist = errors.New("does not exist")

	// ErrBadRequest covers every other non-2xx response.
	ErrBadRequest = errors.New("bad request")

	// ErrProtocol covers responses the client cannot make sense of, such
	// as pagination that never terminates.
	ErrProtocol = errors.New("protocol error")
)

// Common static errors that can be wrapped with context.
var (
	ErrConfigRequired      = errors.New("config is required")
	ErrEndpointRequired    = errors.New("endpoint is required")
	ErrMissingID           = errors.New("record has no id")
	ErrNoMoreItems         = errors.New("no more items")
	ErrCircuitBreakerOpen  = errors.New("circuit breaker is open")
	ErrCacheDisabled       = errors.New("cache is disabled")
	ErrCacheKeyNotFound    = errors.New("key not found")
	ErrCacheEntryExpired   = errors.New("entry expired")
	ErrInvalidFieldPath    = errors.New("invalid field path")
	ErrLoginCookieMissing  = errors.New("login response carried no session cookie")
	ErrCredentialsRequired = errors.New("no credentials configured")
	ErrSkipTLSOnlyInDev    = errors.New("skipping TLS verification is only allowed in development environments")
)

// apiErrorBodyLimit bounds how much of the response body an APIError
// message repeats.
const apiErrorBodyLimit = 512

// APIError carries the HTTP details of a classified API failure. Its
// Unwrap returns the sentinel kind, so errors.Is(err, ErrDoesNotExist)
// and friends see through it.
type APIError struct {
	StatusCode int    `json:"status_code" yaml:"status_code"`
	Method     string `json:"method"      yaml:"method"`
	URL        string `json:"url"         yaml:"url"`
	Body       []byte `json:"-"           yaml:"-"`
	Err        error  `json:"-"           yaml:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("%s %s: %s (status %d)", e.Method, e.URL, e.Err, e.StatusCode)
	}

	body := e.Body
	if len(body) > apiErrorBodyLimit {
		body = body[:apiErrorBodyLimit]
	}

	return fmt.Sprintf("%s %s: %s (status %d): %s", e.Method, e.URL, e.Err, e.StatusCode, body)
}

// Unwrap returns the sentinel error kind for this failure.
func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError classifies a non-2xx response into an APIError. It returns
// nil for status codes below 400.
func NewAPIError(method, url string, statusCode int, body []byte) *APIError {
	kind := ClassifyStatus(statusCode)
	if kind == nil {
		return nil
	}

	return &APIError{
		StatusCode: statusCode,
		Method:     method,
		URL:        url,
		Body:       body,
		Err:        kind,
	}
}

// ClassifyStatus maps an HTTP status code to its sentinel error kind,
// or nil for success codes.
func ClassifyStatus(statusCode int) error {
	switch {
	case statusCode == http.StatusUnauthorized:
		return ErrAuthenticationFailed
	case statusCode == http.StatusNotFound:
		return ErrDoesNotExist
	case statusCode >= http.StatusBadRequest:
		return ErrBadRequest
	default:
		return nil
	}
}

// IsAuthenticationFailed checks if the error is an authentication failure.
func IsAuthenticationFailed(err error) bool {
	return errors.Is(err, ErrAuthenticationFailed)
}

// IsNotFound checks if the error is a missing-resource error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDoesNotExist)
}

// IsBadRequest checks if the error is a rejected-request error.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrBadRequest)
}

// IsProtocolError checks if the error is a protocol violation.
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrProtocol)
}
