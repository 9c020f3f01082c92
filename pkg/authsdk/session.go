package authsdk

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/kbauth/pkg/cryptox"
)

// refreshSkew refreshes slightly before the server would reject the token.
const refreshSkew = 30 * time.Second

// Session holds a token pair and rotates it transparently.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	scopes       map[string]bool
}

// newSession creates a new authenticated session from a token response.
func newSession(client *SDKClient, tokenResp *TokenResponse) *Session {
	s := &Session{client: client}
	s.apply(tokenResp)
	return s
}

func (s *Session) apply(tokenResp *TokenResponse) {
	s.accessToken = tokenResp.AccessToken
	s.refreshToken = tokenResp.RefreshToken
	s.expiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - refreshSkew)
	s.scopes = parseScopes(tokenResp.Scope)
}

// parseScopes parses a space-delimited scope string into a set.
func parseScopes(scopeStr string) map[string]bool {
	parts := strings.Fields(scopeStr)
	scopes := make(map[string]bool, len(parts))
	for _, scope := range parts {
		scopes[scope] = true
	}
	return scopes
}

// getValidToken returns a valid access token, refreshing if expired.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// another goroutine may have refreshed while we waited
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}

	if err := s.refreshLocked(ctx); err != nil {
		return "", err
	}
	return s.accessToken, nil
}

// Refresh rotates the token pair now.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Session) refreshLocked(ctx context.Context) error {
	if s.refreshToken == "" {
		return fmt.Errorf("access token expired and no refresh token available")
	}

	tokenResp, err := s.client.RefreshGrant(ctx, s.refreshToken, "")
	if err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}
	s.apply(tokenResp)
	return nil
}

// AccessToken returns the current access token without checking expiration.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// HasScope returns true if the session has the specified scope.
func (s *Session) HasScope(scope string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scopes[scope]
}

// GetPrincipal calls the guarded /v1/principal endpoint.
func (s *Session) GetPrincipal(ctx context.Context) (*PrincipalResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/principal", nil)
	if err != nil {
		return nil, err
	}

	var p PrincipalResponse
	if err := decodeJSON(resp, &p, http.StatusOK); err != nil {
		return nil, err
	}
	return &p, nil
}

// AuthorizeAndExchange runs the whole code flow for a registered client:
// PKCE, login, consent and code exchange.
func (c *SDKClient) AuthorizeAndExchange(
	ctx context.Context,
	redirectURI string,
	scopes []string,
	creds Credentials,
) (*Session, error) {
	pkce, err := GeneratePKCEChallenge()
	if err != nil {
		return nil, err
	}
	state, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return nil, err
	}

	cb, err := c.NewBrowser().Authorize(ctx, c.BuildAuthorizeURL(redirectURI, state, scopes, pkce), creds, true)
	if err != nil {
		return nil, err
	}
	if cb.State != state {
		return nil, fmt.Errorf("authsdk: state mismatch in callback")
	}

	return c.AuthenticateWithCode(ctx, cb.Code, redirectURI, pkce.Verifier)
}
