package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dresthttp "github.com/dynamic-rest/drest-go/internal/http"
	"github.com/dynamic-rest/drest-go/pkg/drest"
)

// MockSession for testing.
type MockSession struct {
	headers     map[string]string
	ensureErr   error
	ensureCalls atomic.Int64
}

func (m *MockSession) Ensure(ctx context.Context) error {
	m.ensureCalls.Add(1)

	return m.ensureErr
}

func (m *MockSession) Headers() map[string]string {
	return m.headers
}

func (m *MockSession) Authenticated() bool {
	return len(m.headers) > 0
}

// MockLogger for testing.
type MockLogger struct {
	logs []map[string]interface{}
}

func (l *MockLogger) Debug(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "debug", "msg": msg, "fields": fields})
}

func (l *MockLogger) Info(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "info", "msg": msg, "fields": fields})
}

func (l *MockLogger) Warn(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "warn", "msg": msg, "fields": fields})
}

func (l *MockLogger) Error(msg string, fields map[string]interface{}) {
	l.logs = append(l.logs, map[string]interface{}{"level": "error", "msg": msg, "fields": fields})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Do(t *testing.T) {
	t.Parallel()
	t.Run("successful request", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/users/", request.URL.Path)
			assert.Equal(t, "GET", request.Method)
			assert.Equal(t, "JWT test-token", request.Header.Get("Authorization"))
			assert.Equal(t, "application/json", request.Header.Get("Accept"))

			response := map[string]string{"id": "1", "name": "ada"}
			_ = json.NewEncoder(writer).Encode(response)
		}))
		defer server.Close()

		session := &MockSession{headers: map[string]string{"Authorization": "JWT test-token"}}
		client := dresthttp.NewClient(server.URL, "", session)

		req := &dresthttp.Request{
			Method: "GET",
			Path:   "/users/",
		}

		resp, err := client.Do(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, int64(1), session.ensureCalls.Load())

		var result map[string]string

		err = json.Unmarshal(resp.Body, &result)
		require.NoError(t, err)
		assert.Equal(t, "1", result["id"])
		assert.Equal(t, "ada", result["name"])
	})

	t.Run("request with query parameters", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/users/", request.URL.Path)
			assert.Equal(t, "page=2", request.URL.RawQuery)
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := dresthttp.NewClient(server.URL, "", nil)

		req := &dresthttp.Request{
			Method: "GET",
			Path:   "/users/",
			Query:  url.Values{"page": []string{"2"}},
		}

		resp, err := client.Do(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("request with body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "POST", request.Method)
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))

			var body map[string]string

			_ = json.NewDecoder(request.Body).Decode(&body)
			assert.Equal(t, "ada", body["name"])

			writer.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := dresthttp.NewClient(server.URL, "", nil)

		req := &dresthttp.Request{
			Method: "POST",
			Path:   "/users/",
			Body:   map[string]string{"name": "ada"},
		}

		resp, err := client.Do(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 201, resp.StatusCode)
	})

	t.Run("custom headers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "custom-value", request.Header.Get("X-Custom-Header"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := dresthttp.NewClient(server.URL, "", nil)

		req := &dresthttp.Request{
			Method: "GET",
			Path:   "/users/",
			Headers: map[string]string{
				"X-Custom-Header": "custom-value",
			},
		}

		resp, err := client.Do(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("session ensure failure stops the request", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			t.Error("request should not reach the server")
		}))
		defer server.Close()

		session := &MockSession{ensureErr: drest.ErrAuthenticationFailed}
		client := dresthttp.NewClient(server.URL, "", session)

		_, err := client.Do(context.Background(), &dresthttp.Request{Method: "GET", Path: "/users/"})
		require.Error(t, err)
		assert.ErrorIs(t, err, drest.ErrAuthenticationFailed)
	})

	t.Run("with debug logging", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(writer).Encode(map[string]string{"result": "ok"})
		}))
		defer server.Close()

		logger := &MockLogger{}
		client := dresthttp.NewClient(server.URL, "", nil, dresthttp.WithLogger(logger), dresthttp.WithDebug(true))

		req := &dresthttp.Request{
			Method: "GET",
			Path:   "/users/",
		}

		_, err := client.Do(context.Background(), req)
		require.NoError(t, err)

		// Should have logged request and response
		assert.Len(t, logger.logs, 2)
		assert.Equal(t, "HTTP Request", logger.logs[0]["msg"])
		assert.Equal(t, "HTTP Response", logger.logs[1]["msg"])
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_ErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{
			name:     "401 is an authentication failure",
			status:   http.StatusUnauthorized,
			sentinel: drest.ErrAuthenticationFailed,
		},
		{
			name:     "404 is a missing resource",
			status:   http.StatusNotFound,
			sentinel: drest.ErrDoesNotExist,
		},
		{
			name:     "400 is a bad request",
			status:   http.StatusBadRequest,
			sentinel: drest.ErrBadRequest,
		},
		{
			name:     "422 is a bad request",
			status:   http.StatusUnprocessableEntity,
			sentinel: drest.ErrBadRequest,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				writer.WriteHeader(testCase.status)
				_ = json.NewEncoder(writer).Encode(map[string]string{"detail": "nope"})
			}))
			defer server.Close()

			client := dresthttp.NewClient(server.URL, "", nil)

			resp, err := client.Get(context.Background(), "/users/missing/", nil)
			require.Error(t, err)
			assert.Equal(t, testCase.status, resp.StatusCode)
			assert.ErrorIs(t, err, testCase.sentinel)

			apiErr := &drest.APIError{}
			ok := errors.As(err, &apiErr)
			require.True(t, ok)
			assert.Equal(t, testCase.status, apiErr.StatusCode)
			assert.Contains(t, apiErr.URL, "/users/missing/")
		})
	}
}

func TestClient_BuildURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		baseURL  string
		version  string
		path     string
		expected string
	}{
		{
			name:     "no slashes at the join",
			baseURL:  "https://api.example.com",
			path:     "users/",
			expected: "https://api.example.com/users/",
		},
		{
			name:     "slash on both sides",
			baseURL:  "https://api.example.com/",
			path:     "/users/",
			expected: "https://api.example.com/users/",
		},
		{
			name:     "slash on base only",
			baseURL:  "https://api.example.com/",
			path:     "users/",
			expected: "https://api.example.com/users/",
		},
		{
			name:     "slash on path only",
			baseURL:  "https://api.example.com",
			path:     "/users/",
			expected: "https://api.example.com/users/",
		},
		{
			name:     "nested path",
			baseURL:  "https://api.example.com",
			path:     "users/42/",
			expected: "https://api.example.com/users/42/",
		},
		{
			name:     "empty path",
			baseURL:  "https://api.example.com",
			path:     "",
			expected: "https://api.example.com/",
		},
		{
			name:     "version segment",
			baseURL:  "https://api.example.com",
			version:  "v0",
			path:     "users/",
			expected: "https://api.example.com/v0/users/",
		},
		{
			name:     "version with surrounding slashes",
			baseURL:  "https://api.example.com/",
			version:  "/v0/",
			path:     "/users/",
			expected: "https://api.example.com/v0/users/",
		},
		{
			name:     "version with empty path",
			baseURL:  "https://api.example.com",
			version:  "v0",
			path:     "",
			expected: "https://api.example.com/v0/",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			client := dresthttp.NewClient(testCase.baseURL, testCase.version, nil)
			assert.Equal(t, testCase.expected, client.BuildURL(testCase.path))
		})
	}
}

func TestClient_Methods(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		fn     func(*dresthttp.Client, context.Context) (*dresthttp.Response, error)
	}{
		{
			name:   "GET",
			method: "GET",
			fn: func(c *dresthttp.Client, ctx context.Context) (*dresthttp.Response, error) {
				return c.Get(ctx, "/test", nil)
			},
		},
		{
			name:   "POST",
			method: "POST",
			fn: func(c *dresthttp.Client, ctx context.Context) (*dresthttp.Response, error) {
				return c.Post(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "PUT",
			method: "PUT",
			fn: func(c *dresthttp.Client, ctx context.Context) (*dresthttp.Response, error) {
				return c.Put(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "PATCH",
			method: "PATCH",
			fn: func(c *dresthttp.Client, ctx context.Context) (*dresthttp.Response, error) {
				return c.Patch(ctx, "/test", map[string]string{"key": "value"})
			},
		},
		{
			name:   "DELETE",
			method: "DELETE",
			fn: func(c *dresthttp.Client, ctx context.Context) (*dresthttp.Response, error) {
				return c.Delete(ctx, "/test")
			},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				assert.Equal(t, testCase.method, request.Method)
				assert.Equal(t, "/test", request.URL.Path)
				writer.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			client := dresthttp.NewClient(server.URL, "", nil)
			resp, err := testCase.fn(client, context.Background())
			require.NoError(t, err)
			assert.Equal(t, 200, resp.StatusCode)
		})
	}
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_RetryLogic(t *testing.T) {
	t.Parallel()
	t.Run("retries on 5xx errors", func(t *testing.T) {
		t.Parallel()

		attempts := 0

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts++
			if attempts < 3 {
				writer.WriteHeader(http.StatusInternalServerError)
			} else {
				writer.WriteHeader(http.StatusOK)
			}
		}))
		defer server.Close()

		client := dresthttp.NewClient(server.URL, "", nil, dresthttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, 3, attempts)
	})

	t.Run("retries on rate limiting", func(t *testing.T) {
		t.Parallel()

		attempts := 0

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts++
			if attempts < 2 {
				writer.WriteHeader(http.StatusTooManyRequests)
			} else {
				writer.WriteHeader(http.StatusOK)
			}
		}))
		defer server.Close()

		client := dresthttp.NewClient(server.URL, "", nil, dresthttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, 2, attempts)
	})

	t.Run("does not retry on client errors", func(t *testing.T) {
		t.Parallel()

		attempts := 0

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts++

			writer.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		client := dresthttp.NewClient(server.URL, "", nil, dresthttp.WithRetryConfig(3, 10*time.Millisecond, 100*time.Millisecond))

		resp, err := client.Get(context.Background(), "/test", nil)
		require.Error(t, err)
		assert.Equal(t, 400, resp.StatusCode)
		assert.Equal(t, 1, attempts) // Should not retry
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Interceptors(t *testing.T) {
	t.Parallel()
	t.Run("cached response short-circuits the network", func(t *testing.T) {
		t.Parallel()

		var requests atomic.Int64

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			requests.Add(1)
			_ = json.NewEncoder(writer).Encode(map[string]string{"id": "1"})
		}))
		defer server.Close()

		cache := drest.NewMemoryCache(10)
		manager := drest.NewCacheManager(cache, nil)

		chain := drest.NewInterceptorChain()
		cacheReq, cacheResp := drest.CacheInterceptor(manager, drest.DefaultCachingPolicy())
		chain.AddRequestInterceptor(cacheReq)
		chain.AddResponseInterceptor(cacheResp)

		client := dresthttp.NewClient(server.URL, "", nil, dresthttp.WithInterceptors(chain))

		first, err := client.Get(context.Background(), "/users/", nil)
		require.NoError(t, err)

		second, err := client.Get(context.Background(), "/users/", nil)
		require.NoError(t, err)

		assert.Equal(t, int64(1), requests.Load())
		assert.Equal(t, first.Body, second.Body)
	})

	t.Run("request interceptor headers reach the wire", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "injected", request.Header.Get("X-Trace"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		chain := drest.NewInterceptorChain()
		chain.AddRequestInterceptor(drest.HeaderInterceptor(map[string]string{"X-Trace": "injected"}))

		client := dresthttp.NewClient(server.URL, "", nil, dresthttp.WithInterceptors(chain))

		resp, err := client.Get(context.Background(), "/users/", nil)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("mutating methods invalidate cached pages", func(t *testing.T) {
		t.Parallel()

		var listRequests atomic.Int64

		mux := http.NewServeMux()
		mux.HandleFunc("/users/", func(writer http.ResponseWriter, request *http.Request) {
			if request.Method == http.MethodGet {
				listRequests.Add(1)
			}

			_ = json.NewEncoder(writer).Encode(map[string]string{"id": "1"})
		})

		server := httptest.NewServer(mux)
		defer server.Close()

		cache := drest.NewMemoryCache(10)
		manager := drest.NewCacheManager(cache, nil)

		chain := drest.NewInterceptorChain()
		cacheReq, cacheResp := drest.CacheInterceptor(manager, drest.DefaultCachingPolicy())
		chain.AddRequestInterceptor(cacheReq)
		chain.AddResponseInterceptor(cacheResp)
		chain.AddResponseInterceptor(drest.CacheInvalidationInterceptor(manager))

		client := dresthttp.NewClient(server.URL, "", nil, dresthttp.WithInterceptors(chain))

		_, err := client.Get(context.Background(), "/users/", nil)
		require.NoError(t, err)

		_, err = client.Get(context.Background(), "/users/", nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), listRequests.Load())

		_, err = client.Post(context.Background(), "/users/", map[string]string{"name": "ada"})
		require.NoError(t, err)

		_, err = client.Get(context.Background(), "/users/", nil)
		require.NoError(t, err)
		assert.Equal(t, int64(2), listRequests.Load())
	})
}
