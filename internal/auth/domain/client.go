package domain

import (
	"slices"
	"time"
)

// Token endpoint authentication methods a client may register with.
const (
	AuthMethodNone              = "none"
	AuthMethodClientSecretPost  = "client_secret_post"
	AuthMethodClientSecretBasic = "client_secret_basic"
)

// Client is a dynamically registered OAuth client. Clients are immutable
// once registered and never expire.
type Client struct {
	ID                      string
	Name                    string
	SecretHash              string // empty for public clients
	RedirectURIs            []string
	TokenEndpointAuthMethod string
	CreatedAt               time.Time
}

// IsPublic reports whether the client authenticates with PKCE alone.
func (c Client) IsPublic() bool {
	return c.TokenEndpointAuthMethod == AuthMethodNone || c.SecretHash == ""
}

// HasRedirectURI does an exact string comparison against the registered
// URIs. No normalisation, no prefix matching.
func (c Client) HasRedirectURI(uri string) bool {
	return slices.Contains(c.RedirectURIs, uri)
}
