// Package http implements the transport for the DREST client: URL
// building, session headers, JSON bodies, retries, interceptor hook
// points, and HTTP status classification.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/dynamic-rest/drest-go/internal/constants"
	"github.com/dynamic-rest/drest-go/pkg/drest"
)

// Authenticator supplies session state for outgoing requests.
type Authenticator interface {
	// Ensure performs any deferred authentication before a request.
	Ensure(ctx context.Context) error

	// Headers returns the authentication headers for the next request.
	Headers() map[string]string

	// Authenticated reports whether the session holds usable credentials.
	Authenticated() bool
}

// Client executes DREST API requests against one base URL. An optional
// version is inserted as a path segment between the base URL and every
// request path. A nil Authenticator sends requests without
// authentication.
type Client struct {
	baseURL      string
	version      string
	session      Authenticator
	retryClient  *retryablehttp.Client
	logger       drest.Logger
	debug        bool
	userAgent    string
	interceptors *drest.InterceptorChain
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.retryClient.HTTPClient = httpClient
	}
}

// WithLogger sets the logger.
func WithLogger(logger drest.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request/response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithTimeout bounds each request attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.retryClient.HTTPClient.Timeout = timeout
	}
}

// WithRetryConfig enables retries for transient failures.
func WithRetryConfig(maxRetries int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.retryClient.RetryMax = maxRetries
		c.retryClient.RetryWaitMin = waitMin
		c.retryClient.RetryWaitMax = waitMax
	}
}

// WithInterceptors installs an interceptor chain around every request.
func WithInterceptors(chain *drest.InterceptorChain) Option {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// NewClient creates a new HTTP client for the given base URL and
// optional API version segment. Retries are off until WithRetryConfig
// enables them; retried statuses are limited to 429 and 5xx.
func NewClient(baseURL, version string, session Authenticator, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.Logger = nil
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout

	client := &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		version:     strings.Trim(version, "/"),
		session:     session,
		retryClient: retryClient,
		userAgent:   constants.DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Request is an API request.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    interface{}
	Headers map[string]string
}

// Response is an API response with its body read in full.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// BuildURL joins the base URL, the version segment, and a path,
// tolerating slashes on either side of each join. The path's own
// trailing slash is preserved.
func (c *Client) BuildURL(path string) string {
	base := c.baseURL
	if c.version != "" {
		base += "/" + c.version
	}

	if path == "" {
		return base + "/"
	}

	return base + "/" + strings.TrimPrefix(path, "/")
}

// Do executes the request. The session is ensured first, interceptors
// run around the exchange, and a non-2xx status is returned as a
// classified error alongside the response.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if c.session != nil {
		err := c.session.Ensure(ctx)
		if err != nil {
			return nil, fmt.Errorf("ensuring session: %w", err)
		}
	}

	fullURL := c.BuildURL(req.Path)
	pathWithQuery := req.Path

	if len(req.Query) > 0 {
		encoded := req.Query.Encode()
		fullURL += "?" + encoded
		pathWithQuery += "?" + encoded
	}

	var bodyBytes []byte

	if req.Body != nil {
		var err error

		bodyBytes, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
	}

	ireq := &drest.Request{
		Method:   req.Method,
		Path:     pathWithQuery,
		Headers:  http.Header{},
		Body:     bodyBytes,
		Metadata: map[string]interface{}{},
	}

	if c.interceptors != nil {
		err := c.interceptors.ExecuteRequestInterceptors(ctx, ireq)
		if err != nil {
			return nil, err
		}

		if cached, ok := ireq.Metadata["cached_response"].([]byte); ok {
			return &Response{
				StatusCode: http.StatusOK,
				Headers:    http.Header{},
				Body:       cached,
			}, nil
		}
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, bodyBytes)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	c.setHeaders(httpReq, req, ireq)

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": req.Method,
			"url":    fullURL,
		})
	}

	httpResp, err := c.retryClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing %s %s: %w", req.Method, fullURL, err)
	}

	defer func() {
		_ = httpResp.Body.Close()
	}()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"method": req.Method,
			"url":    fullURL,
			"status": httpResp.StatusCode,
		})
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
	}

	var apiErr error
	if classified := drest.NewAPIError(req.Method, fullURL, httpResp.StatusCode, body); classified != nil {
		apiErr = classified
	}

	if c.interceptors != nil {
		iresp := &drest.Response{
			StatusCode: httpResp.StatusCode,
			Headers:    httpResp.Header,
			Body:       body,
			Error:      apiErr,
		}

		err = c.interceptors.ExecuteResponseInterceptors(ctx, ireq, iresp)
		if err != nil {
			return resp, err
		}
	}

	if apiErr != nil {
		return resp, apiErr
	}

	return resp, nil
}

// setHeaders layers defaults, session headers, interceptor headers, and
// per-request headers, in that order.
func (c *Client) setHeaders(httpReq *retryablehttp.Request, req *Request, ireq *drest.Request) {
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if c.session != nil {
		for key, value := range c.session.Headers() {
			httpReq.Header.Set(key, value)
		}
	}

	for key, values := range ireq.Headers {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  query,
	})
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   body,
	})
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodPut,
		Path:   path,
		Body:   body,
	})
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodPatch,
		Path:   path,
		Body:   body,
	})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodDelete,
		Path:   path,
	})
}

// Authenticated reports whether the underlying session holds usable
// credentials.
func (c *Client) Authenticated() bool {
	if c.session == nil {
		return false
	}

	return c.session.Authenticated()
}
