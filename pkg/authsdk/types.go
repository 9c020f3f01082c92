package authsdk

import (
	"github.com/aussiebroadwan/kbauth/pkg/jwtx"
)

// ErrorResponse represents a standard OAuth2 error response per RFC 6749.
type ErrorResponse struct {
	// Error is the OAuth2 error code (e.g., "invalid_request", "invalid_grant")
	Error string `json:"error" example:"invalid_grant"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description,omitempty" example:"the provided grant is invalid"`
}

// ============================================================================
// Registration Types (RFC 7591)
// ============================================================================

// RegisterRequest is the dynamic client registration request body.
type RegisterRequest struct {
	RedirectURIs            []string `json:"redirect_uris" example:"https://app.example/callback"`
	ClientName              string   `json:"client_name,omitempty" example:"Chat Assistant"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method,omitempty" example:"none"`
	GrantTypes              []string `json:"grant_types,omitempty"`
	ResponseTypes           []string `json:"response_types,omitempty"`
	Scope                   string   `json:"scope,omitempty"`
}

// RegisterResponse is the client information response. ClientSecret is
// only present for confidential clients, and only in this response.
type RegisterResponse struct {
	ClientID                string   `json:"client_id" example:"01JB2Q7M8X5K3ZJ4T6N9P0R1S2"`
	ClientSecret            string   `json:"client_secret,omitempty"`
	ClientIDIssuedAt        int64    `json:"client_id_issued_at"`
	ClientSecretExpiresAt   int64    `json:"client_secret_expires_at"`
	ClientName              string   `json:"client_name,omitempty"`
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
}

// ============================================================================
// Token Types
// ============================================================================

// TokenResponse represents the OAuth2 token endpoint response per RFC 6749.
type TokenResponse struct {
	// AccessToken is the JWT access token used to call protected endpoints
	AccessToken string `json:"access_token"`

	// TokenType is always "bearer"
	TokenType string `json:"token_type" example:"bearer"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int `json:"expires_in" example:"3600"`

	// RefreshToken is the opaque refresh token used to obtain new access tokens
	RefreshToken string `json:"refresh_token,omitempty"`

	// Scope is the space-delimited list of scopes granted to this token
	Scope string `json:"scope,omitempty" example:"kb:read kb:write"`
}

// ============================================================================
// Discovery Types
// ============================================================================

// AuthorizationServerMetadata is the RFC 8414 document.
type AuthorizationServerMetadata struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	RegistrationEndpoint              string   `json:"registration_endpoint"`
	JWKSURI                           string   `json:"jwks_uri"`
	ScopesSupported                   []string `json:"scopes_supported"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
}

// ProtectedResourceMetadata is the RFC 9728 document.
type ProtectedResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers"`
	ScopesSupported        []string `json:"scopes_supported"`
	BearerMethodsSupported []string `json:"bearer_methods_supported"`
}

// ============================================================================
// Resource Types
// ============================================================================

// PrincipalResponse is returned by GET /v1/principal.
type PrincipalResponse struct {
	Subject   string   `json:"sub" example:"owner"`
	ClientID  string   `json:"client_id" example:"01JB2Q7M8X5K3ZJ4T6N9P0R1S2"`
	Scopes    []string `json:"scopes"`
	ExpiresAt int64    `json:"exp"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status" example:"ok"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database indicates the store connection status
	Database string `json:"database"`

	// Signer indicates the JWT signing capability status
	Signer string `json:"signer"`

	// RateLimiter indicates the shared limiter status, when one is configured
	RateLimiter string `json:"rate_limiter,omitempty"`
}

// JWKSResponse contains the JSON Web Key Set served at /.well-known/jwks.json.
type JWKSResponse jwtx.JWKS
