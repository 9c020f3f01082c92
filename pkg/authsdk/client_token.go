package authsdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ExchangeAuthorizationCode redeems code for tokens. codeVerifier is the
// PKCE verifier generated alongside the authorize URL.
func (c *SDKClient) ExchangeAuthorizationCode(
	ctx context.Context,
	code, redirectURI, codeVerifier string,
) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"code_verifier": {codeVerifier},
	}

	return c.requestToken(ctx, data)
}

// RefreshGrant rotates refreshToken. scope may narrow the granted scope;
// leave it empty to keep it.
func (c *SDKClient) RefreshGrant(ctx context.Context, refreshToken, scope string) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	if scope != "" {
		data.Set("scope", scope)
	}

	return c.requestToken(ctx, data)
}

func (c *SDKClient) requestToken(ctx context.Context, data url.Values) (*TokenResponse, error) {
	tokenURL := c.endpoint(func(md *AuthorizationServerMetadata) string { return md.TokenEndpoint }, "/token")

	basic := c.UseBasicAuth && c.ClientSecret != ""
	if !basic {
		data.Set("client_id", c.ClientID)
		if c.ClientSecret != "" {
			data.Set("client_secret", c.ClientSecret)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if basic {
		// RFC 6749 section 2.3.1: credentials are form-encoded before Basic
		req.SetBasicAuth(url.QueryEscape(c.ClientID), url.QueryEscape(c.ClientSecret))
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	var tokenResp TokenResponse
	if err := decodeJSON(resp, &tokenResp, http.StatusOK); err != nil {
		return nil, err
	}

	return &tokenResp, nil
}
