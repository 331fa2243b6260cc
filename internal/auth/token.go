// Package auth manages DREST session credentials: static tokens, static
// session cookies, and deferred form logins.
package auth

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dynamic-rest/drest-go/internal/constants"
)

// Token is a static API token with optional expiry metadata.
type Token struct {
	// Value is the raw token sent in the Authorization header.
	Value string

	// Type is the Authorization scheme, "JWT" by default.
	Type string

	// ExpiresAt is the introspected expiry. The zero value means the
	// expiry is unknown and the token is treated as non-expiring.
	ExpiresAt time.Time
}

// NewToken builds a token, introspecting the expiry claim when the value
// parses as a JWT. Opaque tokens come back with no expiry.
func NewToken(value, tokenType string) *Token {
	if tokenType == "" {
		tokenType = constants.DefaultTokenType
	}

	token := &Token{
		Value: value,
		Type:  tokenType,
	}

	expiresAt, err := IntrospectExpiry(value)
	if err == nil {
		token.ExpiresAt = expiresAt
	}

	return token
}

// Valid returns true when the token is usable: non-empty and not within
// the expiration buffer of its expiry. Tokens without expiry metadata
// are always usable.
func (t *Token) Valid() bool {
	if t == nil || t.Value == "" {
		return false
	}

	if t.ExpiresAt.IsZero() {
		return true
	}

	return time.Now().Add(constants.TokenExpirationBuffer).Before(t.ExpiresAt)
}

// Header returns the Authorization header value for the token.
func (t *Token) Header() string {
	return t.Type + " " + t.Value
}

// IntrospectExpiry reads the exp claim out of a JWT without verifying its
// signature. The claim is informational; the server remains the authority
// on token validity.
func IntrospectExpiry(value string) (time.Time, error) {
	parser := jwt.NewParser()

	token, _, err := parser.ParseUnverified(value, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", constants.ErrInvalidJWTFormat, err)
	}

	expiresAt, err := token.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", constants.ErrNoExpirationClaim, err)
	}

	if expiresAt == nil {
		return time.Time{}, constants.ErrNoExpirationClaim
	}

	return expiresAt.Time, nil
}

// TokenStore provides thread-safe token storage.
type TokenStore struct {
	mu    sync.RWMutex
	token *Token
}

// NewTokenStore creates an empty token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Get returns the stored token, or nil.
func (s *TokenStore) Get() *Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

// Set stores a token.
func (s *TokenStore) Set(token *Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
}

// Clear removes the stored token.
func (s *TokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = nil
}
