package authsdk

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
)

// SDKClient talks to a kbauth authorization server. It covers the public
// endpoints (discovery, registration, token) and creates Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// ClientID and ClientSecret identify the registered client. The secret
	// is empty for public clients.
	ClientID     string
	ClientSecret string

	// UseBasicAuth sends the secret with HTTP Basic instead of the form.
	UseBasicAuth bool

	mu       sync.Mutex
	metadata *AuthorizationServerMetadata
}

// NewSDKClient creates a new client for the server at baseURL.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WithCredentials sets the client credentials, typically from Register.
func (c *SDKClient) WithCredentials(clientID, clientSecret string) *SDKClient {
	c.ClientID = clientID
	c.ClientSecret = clientSecret
	return c
}

// AuthenticateWithCode exchanges an authorization code and wraps the result
// in a Session that refreshes itself.
func (c *SDKClient) AuthenticateWithCode(ctx context.Context, code, redirectURI, codeVerifier string) (*Session, error) {
	tokenResp, err := c.ExchangeAuthorizationCode(ctx, code, redirectURI, codeVerifier)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokenResp), nil
}

// AuthenticateWithRefreshToken creates an authenticated session from an existing refresh token.
func (c *SDKClient) AuthenticateWithRefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	tokenResp, err := c.RefreshGrant(ctx, refreshToken, "")
	if err != nil {
		return nil, err
	}
	return newSession(c, tokenResp), nil
}

// endpoint resolves a path against discovered metadata, falling back to
// BaseURL when discovery has not run.
func (c *SDKClient) endpoint(pick func(*AuthorizationServerMetadata) string, fallback string) string {
	c.mu.Lock()
	md := c.metadata
	c.mu.Unlock()

	if md != nil {
		if u := pick(md); u != "" {
			return u
		}
	}
	return c.BaseURL + fallback
}
