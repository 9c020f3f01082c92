package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Register performs dynamic client registration and stores the returned
// credentials on the client.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	url := c.endpoint(func(md *AuthorizationServerMetadata) string { return md.RegistrationEndpoint }, "/register")
	resp, err := c.doRequest(ctx, http.MethodPost, url, bytes.NewReader(body), map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return nil, err
	}

	var out RegisterResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}

	c.WithCredentials(out.ClientID, out.ClientSecret)
	c.UseBasicAuth = out.TokenEndpointAuthMethod == "client_secret_basic"
	return &out, nil
}
