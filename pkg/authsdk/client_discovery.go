package authsdk

import (
	"context"
	"net/http"
)

// Discover fetches the authorization server metadata and uses its
// endpoints for every later call.
func (c *SDKClient) Discover(ctx context.Context) (*AuthorizationServerMetadata, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, c.BaseURL+"/.well-known/oauth-authorization-server", nil, nil)
	if err != nil {
		return nil, err
	}

	var md AuthorizationServerMetadata
	if err := decodeJSON(resp, &md, http.StatusOK); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.metadata = &md
	c.mu.Unlock()

	return &md, nil
}

// GetProtectedResourceMetadata fetches the RFC 9728 document.
func (c *SDKClient) GetProtectedResourceMetadata(ctx context.Context) (*ProtectedResourceMetadata, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, c.BaseURL+"/.well-known/oauth-protected-resource", nil, nil)
	if err != nil {
		return nil, err
	}

	var md ProtectedResourceMetadata
	if err := decodeJSON(resp, &md, http.StatusOK); err != nil {
		return nil, err
	}
	return &md, nil
}

// GetJWKS retrieves the JSON Web Key Set for token verification.
func (c *SDKClient) GetJWKS(ctx context.Context) (*JWKSResponse, error) {
	url := c.endpoint(func(md *AuthorizationServerMetadata) string { return md.JWKSURI }, "/.well-known/jwks.json")
	resp, err := c.doRequest(ctx, http.MethodGet, url, nil, nil)
	if err != nil {
		return nil, err
	}

	var jwks JWKSResponse
	if err := decodeJSON(resp, &jwks, http.StatusOK); err != nil {
		return nil, err
	}

	return &jwks, nil
}
