package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dynamic-rest/drest-go/pkg/drest"
)

// Helpers shared by the package tests.

// NewTestClient creates a client pointed at a test server.
func NewTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	c, err := New(context.Background(), &drest.Config{Endpoint: baseURL})
	require.NoError(t, err)

	return c
}

// NewTestClientWithConfig creates a client from a full configuration.
func NewTestClientWithConfig(t *testing.T, config *drest.Config) *Client {
	t.Helper()

	c, err := New(context.Background(), config)
	require.NoError(t, err)

	return c
}

// NewTestServer wraps httptest.NewServer and closes it with the test.
func NewTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return server
}

// WriteJSON encodes payload onto the response with the given status.
func WriteJSON(t *testing.T, w http.ResponseWriter, status int, payload any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(payload)
	require.NoError(t, err)
}

// ListEnvelope builds a DREST collection envelope.
func ListEnvelope(resource string, records []drest.Fields, meta *drest.Meta) map[string]any {
	envelope := map[string]any{resource: records}
	if meta != nil {
		envelope[drest.MetaKey] = meta
	}

	return envelope
}

// SingleEnvelope builds a DREST single-record envelope.
func SingleEnvelope(key string, fields drest.Fields) map[string]any {
	return map[string]any{key: fields}
}

// PagedMeta builds the meta block for page n of totalPages, perPage
// records each, advertising the next page when one remains.
func PagedMeta(page, perPage, totalPages, totalResults int) *drest.Meta {
	meta := &drest.Meta{
		Page:         page,
		PerPage:      perPage,
		TotalPages:   totalPages,
		TotalResults: totalResults,
	}

	if page < totalPages {
		next := page + 1
		meta.NextPage = &next
	}

	return meta
}

// DecodeBody decodes the request body into a field map.
func DecodeBody(t *testing.T, r *http.Request) drest.Fields {
	t.Helper()

	var fields drest.Fields

	err := json.NewDecoder(r.Body).Decode(&fields)
	require.NoError(t, err)

	return fields
}
