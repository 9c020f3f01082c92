package authsdk

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/kbauth/pkg/cryptox"
)

// PKCEChallenge holds the PKCE verifier and challenge pair.
// The verifier is kept secret by the client, and the challenge is sent to the authorization endpoint.
type PKCEChallenge struct {
	// Verifier is the high-entropy cryptographic random string (kept secret)
	Verifier string

	// Challenge is the base64url-encoded SHA256 hash of the verifier (sent to server)
	Challenge string

	// Method is always "S256"
	Method string
}

// GeneratePKCEChallenge creates a new PKCE code verifier and challenge pair
// per RFC 7636. The verifier is 43 characters of base64url.
func GeneratePKCEChallenge() (*PKCEChallenge, error) {
	verifier, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PKCE verifier: %w", err)
	}

	return &PKCEChallenge{
		Verifier:  verifier,
		Challenge: cryptox.S256Challenge(verifier),
		Method:    "S256",
	}, nil
}

// BuildAuthorizeURL constructs the authorization URL for the code flow.
// pkce is mandatory on this server; the parameter is nil-able only so tests
// can exercise the rejection.
//
// Example:
//
//	pkce, _ := authsdk.GeneratePKCEChallenge()
//	u := client.BuildAuthorizeURL("https://app.example/callback", "xyz", []string{"kb:read"}, pkce)
func (c *SDKClient) BuildAuthorizeURL(redirectURI, state string, scopes []string, pkce *PKCEChallenge) string {
	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", c.ClientID)
	params.Set("redirect_uri", redirectURI)

	if state != "" {
		params.Set("state", state)
	}

	if len(scopes) > 0 {
		params.Set("scope", strings.Join(scopes, " "))
	}

	if pkce != nil {
		params.Set("code_challenge", pkce.Challenge)
		params.Set("code_challenge_method", pkce.Method)
	}

	base := c.endpoint(func(md *AuthorizationServerMetadata) string { return md.AuthorizationEndpoint }, "/authorize")
	return base + "?" + params.Encode()
}

// AuthorizationCallback is what the server appended to the redirect URI.
type AuthorizationCallback struct {
	Code  string
	State string
}

// ParseAuthorizationCallback extracts code and state from a redirect. An
// error redirect becomes an *OAuth2Error.
func ParseAuthorizationCallback(callbackURL string) (*AuthorizationCallback, error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse callback URL: %w", err)
	}

	query := u.Query()

	if errorCode := query.Get("error"); errorCode != "" {
		return nil, &OAuth2Error{
			StatusCode:  302,
			Code:        errorCode,
			Description: query.Get("error_description"),
		}
	}

	code := query.Get("code")
	if code == "" {
		return nil, fmt.Errorf("callback missing authorization code")
	}

	return &AuthorizationCallback{Code: code, State: query.Get("state")}, nil
}
