package drest

import (
	"context"
	"errors"
	"time"
)

// Static errors for err113 compliance.
var (
	ErrDeprecatedClientConstructor = errors.New("use github.com/dynamic-rest/drest-go/pkg/drestclient.New to create a client")
)

// ResourceAPI exposes every operation of one named server resource. The
// query seeds (All, Filter, Sort, ...) build lazy queries; no request
// leaves until a terminal method runs.
type ResourceAPI interface {
	// Name returns the resource name the API is bound to.
	Name() string

	// Get fetches a single record by primary key. params may be nil.
	Get(ctx context.Context, id string, params *QueryParams) (*Record, error)

	// List fetches one page of records.
	List(ctx context.Context, params *QueryParams) (*ListResult, error)

	// Create stores a new record and returns the server's copy.
	Create(ctx context.Context, fields Fields) (*Record, error)

	// Update replaces the record with the given primary key.
	Update(ctx context.Context, id string, fields Fields) (*Record, error)

	// Delete removes the record with the given primary key.
	Delete(ctx context.Context, id string) error

	// NewRecord binds fields to this resource without saving them.
	NewRecord(fields Fields) *Record

	// All starts an unfiltered query over the resource.
	All() *Query

	// Filter starts a query with one filter condition.
	Filter(field string, value any) *Query

	// Exclude starts a query with one exclusion condition.
	Exclude(field string, value any) *Query

	// Sort starts a query ordered by the given keys.
	Sort(keys ...string) *Query

	// Including starts a query with sideloaded relations.
	Including(paths ...string) *Query

	// Excluding starts a query that drops the given fields.
	Excluding(paths ...string) *Query

	// Extra starts a query with a free-form parameter.
	Extra(key string, values ...string) *Query

	// First returns the first record of the unfiltered resource.
	First(ctx context.Context) (*Record, error)

	// MapBy fetches every record keyed by the given field ("id" when
	// empty).
	MapBy(ctx context.Context, keyField string) (map[string]*Record, error)
}

// Client is the entry point to a DREST API.
type Client interface {
	// Resource returns the API for a named resource. Calls with the same
	// name (case-insensitive) return the same instance.
	Resource(name string) ResourceAPI

	// Authenticate establishes the session eagerly. Password credentials
	// normally log in lazily on the first request; Authenticate forces
	// the login now and surfaces its error.
	Authenticate(ctx context.Context) error

	// Authenticated reports whether the session currently holds
	// credentials the server has accepted. Clients constructed without
	// any credentials are pre-authenticated and report true.
	Authenticated() bool

	// Mocks returns the client's mock registry. Resources registered
	// there are served locally.
	Mocks() *MockSet
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config represents client configuration for building a drest.Client.
//
// # Authentication precedence
//
// The following precedence is applied by the concrete client implementation
// (see pkg/drestclient and internal/client):
//  1. Token: if set, it is sent directly on every request as
//     "Authorization: <TokenType> <token>". TokenType defaults to "JWT".
//  2. Cookie: a session cookie value sent as "<CookieName>=<value>".
//     CookieName defaults to "sessionid".
//  3. Username/Password: the client form-posts them to LoginEndpoint
//     (default "/accounts/login/") before the first API request and keeps
//     the session cookie the server returns. The login is deferred; use
//     Client.Authenticate to force it eagerly.
//  4. No credentials: requests are sent without authentication.
//
// # Timeouts and retries
//
// Per-request timeouts should generally be controlled via context passed to
// client methods; HTTPTimeout bounds the underlying transport. Transient
// failures (>=500, 429, connection errors) are retried when RetryMax > 0,
// with backoff between RetryWaitMin and RetryWaitMax.
type Config struct {
	// Required fields
	// Endpoint: base URL for the API (e.g., "https://api.example.com").
	// drestclient.New normalizes this value by trimming a trailing slash
	// and adding "https://" if no scheme is present.
	Endpoint string
	// Version: optional API version inserted as a path segment between
	// the endpoint and resource paths (e.g., "v0" yields "/v0/users/").
	// Surrounding slashes are tolerated. Login requests never carry it.
	Version string

	// Authentication options (provide one)
	// Token: if set, sent directly in the Authorization header.
	Token string
	// TokenType: Authorization scheme used with Token. Defaults to "JWT".
	TokenType string
	// Cookie: session cookie value sent with every request.
	Cookie string
	// CookieName: cookie name used with Cookie and stored after form
	// login. Defaults to "sessionid".
	CookieName string
	// Username: account username for the deferred form login.
	Username string
	// Password: account password used with Username.
	Password string
	// LoginEndpoint: path the form login posts to. Defaults to
	// "/accounts/login/".
	LoginEndpoint string

	// Optional configurations
	// HTTPTimeout: optional default HTTP timeout where supported. Most
	// client calls should rely on context timeouts.
	HTTPTimeout time.Duration
	// RetryMax: maximum number of retries for transient failures. If 0,
	// requests are not retried.
	RetryMax int
	// RetryWaitMin: minimum backoff between retries. Applied when RetryMax > 0.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum backoff between retries. Applied when RetryMax > 0.
	RetryWaitMax time.Duration
	// Debug: enables verbose HTTP request/response logging when a Logger
	// is provided.
	Debug bool
	// Logger: optional structured logger used by the HTTP layer.
	Logger Logger
	// UserAgent: overrides the default User-Agent header sent by the client.
	UserAgent string
	// SkipTLSVerify: disables TLS certificate verification. Only honored
	// in explicit development environments (DREST_DEV_MODE=true).
	SkipTLSVerify bool
	// Cache: optional response cache configuration. Nil disables caching.
	Cache *CacheConfig
	// Interceptors: optional hooks run around every request. Cache
	// interceptors, when Cache is set, are appended to this chain.
	Interceptors *InterceptorChain
	// Mocks: canned records keyed by resource name. Resources named here
	// are served from the mock set and never reach the network.
	Mocks map[string][]Fields
}

// NewClient creates a new DREST API client
// Deprecated: Use github.com/dynamic-rest/drest-go/pkg/drestclient.New instead.
func NewClient(config *Config) (Client, error) {
	return nil, ErrDeprecatedClientConstructor
}
