// Package client implements the DREST client: credential wiring, the
// case-insensitive resource registry, and the per-resource API answering
// from the network or the client's mock set.
package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/dynamic-rest/drest-go/internal/auth"
	"github.com/dynamic-rest/drest-go/internal/constants"
	dresthttp "github.com/dynamic-rest/drest-go/internal/http"
	"github.com/dynamic-rest/drest-go/pkg/drest"
)

// Client implements the drest.Client interface.
type Client struct {
	httpClient *dresthttp.Client
	session    *auth.SessionManager
	logger     drest.Logger
	mocks      *drest.MockSet

	mu        sync.Mutex
	resources map[string]*resourceClient
}

// New creates a DREST client from configuration. Construction never
// touches the API: password logins stay deferred until the first
// request, and only cache backends may dial out here.
func New(ctx context.Context, config *drest.Config) (*Client, error) {
	_ = ctx

	if config == nil {
		return nil, drest.ErrConfigRequired
	}

	if config.Endpoint == "" {
		return nil, drest.ErrEndpointRequired
	}

	session := auth.NewSessionManager(&auth.Config{
		BaseURL:       config.Endpoint,
		Token:         config.Token,
		TokenType:     config.TokenType,
		Cookie:        config.Cookie,
		CookieName:    config.CookieName,
		Username:      config.Username,
		Password:      config.Password,
		LoginEndpoint: config.LoginEndpoint,
	})

	httpOpts, err := buildHTTPOptions(config)
	if err != nil {
		return nil, err
	}

	client := &Client{
		httpClient: dresthttp.NewClient(config.Endpoint, config.Version, session, httpOpts...),
		session:    session,
		logger:     config.Logger,
		mocks:      drest.NewMockSet(),
		resources:  map[string]*resourceClient{},
	}

	for resource, records := range config.Mocks {
		client.mocks.Set(resource, records)
	}

	return client, nil
}

// buildHTTPOptions translates the public configuration into transport
// options. The insecure transport must come first so later options can
// still adjust it.
func buildHTTPOptions(config *drest.Config) ([]dresthttp.Option, error) {
	var opts []dresthttp.Option

	if config.SkipTLSVerify {
		insecure, err := insecureHTTPClient()
		if err != nil {
			return nil, err
		}

		opts = append(opts, dresthttp.WithHTTPClient(insecure))
	}

	if config.Logger != nil {
		opts = append(opts, dresthttp.WithLogger(config.Logger))
	}

	if config.Debug {
		opts = append(opts, dresthttp.WithDebug(true))
	}

	if config.UserAgent != "" {
		opts = append(opts, dresthttp.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		opts = append(opts, dresthttp.WithTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 {
		waitMin := config.RetryWaitMin
		if waitMin <= 0 {
			waitMin = constants.DefaultRetryWaitMin
		}

		waitMax := config.RetryWaitMax
		if waitMax <= 0 {
			waitMax = constants.DefaultRetryWaitMax
		}

		opts = append(opts, dresthttp.WithRetryConfig(config.RetryMax, waitMin, waitMax))
	}

	chain, err := buildInterceptors(config)
	if err != nil {
		return nil, err
	}

	if chain != nil {
		opts = append(opts, dresthttp.WithInterceptors(chain))
	}

	return opts, nil
}

// buildInterceptors returns the configured chain, extended with cache
// interceptors when a cache backend is configured.
func buildInterceptors(config *drest.Config) (*drest.InterceptorChain, error) {
	chain := config.Interceptors

	if config.Cache == nil || config.Cache.Type == drest.CacheTypeNone || config.Cache.Type == "" {
		return chain, nil
	}

	cache, err := drest.NewCacheFromConfig(config.Cache)
	if err != nil {
		return nil, fmt.Errorf("building response cache: %w", err)
	}

	manager := drest.NewCacheManager(cache, config.Logger)

	if chain == nil {
		chain = drest.NewInterceptorChain()
	}

	cacheRequest, cacheResponse := drest.CacheInterceptor(manager, drest.DefaultCachingPolicy())
	chain.AddRequestInterceptor(cacheRequest)
	chain.AddResponseInterceptor(cacheResponse)
	chain.AddResponseInterceptor(drest.CacheInvalidationInterceptor(manager))

	return chain, nil
}

// insecureHTTPClient builds a transport that skips certificate
// verification. Guarded behind DREST_DEV_MODE so production configs
// cannot turn verification off by accident.
func insecureHTTPClient() (*http.Client, error) {
	if !isDevelopmentEnvironment() {
		return nil, fmt.Errorf("%w (set DREST_DEV_MODE=true)", drest.ErrSkipTLSOnlyInDev)
	}

	return &http.Client{
		Timeout: constants.DefaultHTTPTimeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402 -- Protected by development environment check above
		},
	}, nil
}

// isDevelopmentEnvironment checks if we're in a development environment.
func isDevelopmentEnvironment() bool {
	devMode := os.Getenv("DREST_DEV_MODE")

	return devMode == "true" || devMode == "1"
}

// Resource implements drest.Client. Lookups are case-insensitive and
// cached: every spelling of a name shares one handle.
func (c *Client) Resource(name string) drest.ResourceAPI {
	return c.handle(name)
}

func (c *Client) handle(name string) *resourceClient {
	key := strings.ToLower(name)

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.resources[key]; ok {
		return existing
	}

	created := &resourceClient{name: key, client: c}
	c.resources[key] = created

	return created
}

// Authenticate implements drest.Client. Clients without credentials
// have nothing to establish and return nil.
func (c *Client) Authenticate(ctx context.Context) error {
	if c.session.Mode() == auth.ModeNone {
		return nil
	}

	if err := c.session.Authenticate(ctx); err != nil {
		return fmt.Errorf("authenticating session: %w", err)
	}

	return nil
}

// Authenticated implements drest.Client. Clients without credentials
// are pre-authenticated.
func (c *Client) Authenticated() bool {
	if c.session.Mode() == auth.ModeNone {
		return true
	}

	return c.session.Authenticated()
}

// Mocks implements drest.Client.
func (c *Client) Mocks() *drest.MockSet {
	return c.mocks
}
