package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/dynamic-rest/drest-go/internal/constants"
	"github.com/dynamic-rest/drest-go/pkg/drest"
)

// Mode identifies how a session authenticates.
type Mode string

const (
	// ModeNone sends requests without authentication.
	ModeNone Mode = "none"

	// ModeToken sends a static token in the Authorization header.
	ModeToken Mode = "token"

	// ModeCookie sends a static session cookie.
	ModeCookie Mode = "cookie"

	// ModeLogin form-posts credentials before the first request and
	// reuses the session cookie the server hands back.
	ModeLogin Mode = "login"
)

// Config carries the credential material for a session. Providing more
// than one kind of credential resolves in the order token, cookie,
// username/password.
type Config struct {
	BaseURL       string
	Token         string
	TokenType     string
	Cookie        string
	CookieName    string
	Username      string
	Password      string
	LoginEndpoint string
	HTTPClient    *http.Client
}

// SessionManager resolves request authentication headers and performs
// the deferred form login. It is safe for concurrent use; at most one
// login request is in flight at a time.
type SessionManager struct {
	mu         sync.Mutex
	mode       Mode
	store      *TokenStore
	cookie     string
	cookieName string
	username   string
	password   string
	loginURL   string
	httpClient *http.Client
}

// NewSessionManager builds a session from the configured credentials.
func NewSessionManager(config *Config) *SessionManager {
	cookieName := config.CookieName
	if cookieName == "" {
		cookieName = constants.DefaultCookieName
	}

	loginEndpoint := config.LoginEndpoint
	if loginEndpoint == "" {
		loginEndpoint = constants.DefaultLoginEndpoint
	}

	manager := &SessionManager{
		mode:       ModeNone,
		store:      NewTokenStore(),
		cookieName: cookieName,
		username:   config.Username,
		password:   config.Password,
		loginURL:   joinURL(config.BaseURL, loginEndpoint),
		httpClient: loginClient(config.HTTPClient),
	}

	switch {
	case config.Token != "":
		manager.mode = ModeToken
		manager.store.Set(NewToken(config.Token, config.TokenType))
	case config.Cookie != "":
		manager.mode = ModeCookie
		manager.cookie = config.Cookie
	case config.Username != "" && config.Password != "":
		manager.mode = ModeLogin
	}

	return manager
}

// loginClient derives an HTTP client that surfaces redirect responses
// instead of following them. The login endpoint answers a successful
// form post with a redirect, and its Set-Cookie header must be read off
// that response.
func loginClient(base *http.Client) *http.Client {
	client := &http.Client{
		Timeout: constants.ShortHTTPTimeout,
	}

	if base != nil {
		client.Transport = base.Transport
		if base.Timeout > 0 {
			client.Timeout = base.Timeout
		}
	}

	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return client
}

func joinURL(base, path string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}

// Mode returns how the session authenticates.
func (m *SessionManager) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.mode
}

// Ensure performs any deferred authentication. Token and cookie sessions
// need no setup; login sessions post the form once and reuse the cookie.
func (m *SessionManager) Ensure(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode != ModeLogin || m.cookie != "" {
		return nil
	}

	return m.login(ctx)
}

// Authenticate establishes the session eagerly. Login sessions post the
// form even when a previous login succeeded, refreshing the cookie.
// Sessions without credentials report ErrCredentialsRequired.
func (m *SessionManager) Authenticate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.mode {
	case ModeToken, ModeCookie:
		return nil
	case ModeLogin:
		return m.login(ctx)
	default:
		return drest.ErrCredentialsRequired
	}
}

// Headers returns the authentication headers for the next request.
func (m *SessionManager) Headers() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	headers := map[string]string{}

	switch m.mode {
	case ModeToken:
		token := m.store.Get()
		if token != nil && token.Value != "" {
			headers["Authorization"] = token.Header()
		}
	case ModeCookie, ModeLogin:
		if m.cookie != "" {
			cookie := http.Cookie{Name: m.cookieName, Value: m.cookie}
			headers["Cookie"] = cookie.String()
		}
	case ModeNone:
	}

	return headers
}

// Authenticated reports whether the session holds usable credentials.
// For login sessions that means a login has already succeeded.
func (m *SessionManager) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.mode {
	case ModeToken:
		return m.store.Get().Valid()
	case ModeCookie, ModeLogin:
		return m.cookie != ""
	default:
		return false
	}
}

// SetToken switches the session to a static token.
func (m *SessionManager) SetToken(value, tokenType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mode = ModeToken
	m.store.Set(NewToken(value, tokenType))
}

// SetCookie switches the session to a static cookie.
func (m *SessionManager) SetCookie(value string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mode = ModeCookie
	m.cookie = value
}

// login posts the credential form and stores the returned session
// cookie. The caller holds the lock.
func (m *SessionManager) login(ctx context.Context) error {
	form := url.Values{}
	form.Set(constants.LoginFieldUser, m.username)
	form.Set(constants.LoginFieldPassword, m.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building login request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting login form: %w", err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("login at %s returned status %d: %w", m.loginURL, resp.StatusCode, drest.ErrAuthenticationFailed)
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == m.cookieName && cookie.Value != "" {
			m.cookie = cookie.Value

			return nil
		}
	}

	// A login page re-rendered without the session cookie means the
	// server rejected the credentials.
	return fmt.Errorf("login at %s: %w: %w", m.loginURL, drest.ErrAuthenticationFailed, drest.ErrLoginCookieMissing)
}
