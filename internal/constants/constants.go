package constants

import "time"

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations.
	ShortHTTPTimeout = 10 * time.Second
)

// DefaultUserAgent identifies the client on the wire.
const DefaultUserAgent = "drest-go/1.0"

// Retry limits.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 3

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// Concurrency and buffering limits.
const (
	// SmallBufferSize is the buffer size for streaming channels.
	SmallBufferSize = 10
)

// Session defaults. These mirror the conventions of dynamic-rest
// deployments and may all be overridden through configuration.
const (
	// DefaultTokenType is the Authorization scheme used for token auth.
	DefaultTokenType = "JWT"

	// DefaultCookieName is the session cookie consulted after form login.
	DefaultCookieName = "sessionid"

	// DefaultLoginEndpoint is the form login path on the API host.
	DefaultLoginEndpoint = "/accounts/login/"

	// LoginFieldUser is the form field carrying the username.
	LoginFieldUser = "login"

	// LoginFieldPassword is the form field carrying the password.
	LoginFieldPassword = "password"
)

// Token handling.
const (
	// TokenExpirationBuffer is the buffer time before token expiration.
	TokenExpirationBuffer = 30 * time.Second
)

// Pagination limits.
const (
	// SinglePerPage requests exactly one record per page.
	SinglePerPage = 1

	// DefaultMaxPages bounds pagination loops against servers that
	// keep advertising further pages.
	DefaultMaxPages = 10000
)

// Cache sizing and lifetimes.
const (
	// DefaultCacheSize is the default cache entry limit.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is the default cache time-to-live.
	DefaultCacheTTL = 5 * time.Minute

	// CacheCleanupInterval is how often expired entries are swept.
	CacheCleanupInterval = 1 * time.Minute

	// MaxCacheValueSize is the maximum size for cached values (1MB).
	MaxCacheValueSize = 1024 * 1024
)

// Circuit breaker thresholds.
const (
	// CircuitBreakerThreshold is the failure threshold for the circuit breaker.
	CircuitBreakerThreshold = 5

	// CircuitBreakerSuccessThreshold is the success threshold for recovery.
	CircuitBreakerSuccessThreshold = 2

	// CircuitBreakerTimeout is how long the breaker stays open.
	CircuitBreakerTimeout = 30 * time.Second
)

// Circuit breaker states.
const (
	// StatusOpen indicates an open circuit.
	StatusOpen = "open"

	// StatusHalfOpen indicates a half-open circuit.
	StatusHalfOpen = "half-open"
)
