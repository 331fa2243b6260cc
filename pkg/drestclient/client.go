// Package drestclient provides the main entry point for creating DREST API clients
package drestclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/dynamic-rest/drest-go/internal/client"
	"github.com/dynamic-rest/drest-go/pkg/drest"
)

// New creates a new DREST API client from configuration.
func New(ctx context.Context, config *drest.Config) (drest.Client, error) {
	if config == nil {
		return nil, drest.ErrConfigRequired
	}

	if config.Endpoint == "" {
		return nil, drest.ErrEndpointRequired
	}

	config.Endpoint = normalizeEndpoint(config.Endpoint)

	drestClient, err := client.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return drestClient, nil
}

// normalizeEndpoint trims a trailing slash and defaults the scheme to
// https. An explicit http scheme is honored.
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSuffix(endpoint, "/")
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	return endpoint
}

// NewWithEndpoint creates a new client with just an endpoint (no auth).
func NewWithEndpoint(ctx context.Context, endpoint string) (drest.Client, error) {
	return New(ctx, &drest.Config{
		Endpoint: endpoint,
	})
}

// NewWithToken creates a new client authenticating with a static token.
func NewWithToken(ctx context.Context, endpoint, token string) (drest.Client, error) {
	return New(ctx, &drest.Config{
		Endpoint: endpoint,
		Token:    token,
	})
}

// NewWithCookie creates a new client authenticating with a session cookie.
func NewWithCookie(ctx context.Context, endpoint, cookie string) (drest.Client, error) {
	return New(ctx, &drest.Config{
		Endpoint: endpoint,
		Cookie:   cookie,
	})
}

// NewWithPassword creates a new client using username/password
// authentication. The form login is deferred until the first request.
func NewWithPassword(ctx context.Context, endpoint, username, password string) (drest.Client, error) {
	return New(ctx, &drest.Config{
		Endpoint: endpoint,
		Username: username,
		Password: password,
	})
}
