package jwtx

import (
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Access token lifetime. Clients are told this value in expires_in.
const DefaultAccessTokenTTL = time.Hour

// Claims are the access-token claims. The shape follows RFC 9068: aud is
// the client the token was issued to and scope is space-delimited.
type Claims struct {
	jwt.RegisteredClaims

	// Scope granted to the token, space-delimited ("kb:read kb:write").
	Scope string `json:"scope,omitempty"`

	// ClientID mirrors aud so resource handlers need not care whether aud
	// was encoded as a string or an array.
	ClientID string `json:"client_id,omitempty"`
}

// NewAccessClaims builds access-token claims for subject acting through
// clientID, valid from now for ttl.
func NewAccessClaims(issuer, subject, clientID, scope string, ttl time.Duration, now time.Time) Claims {
	now = now.UTC()
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{clientID},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Scope:    scope,
		ClientID: clientID,
	}
}

// Scopes splits Scope into its individual values.
func (c Claims) Scopes() []string {
	return strings.Fields(c.Scope)
}

// HasScope reports whether scope was granted.
func (c Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes(), scope)
}

// ValidateIssuer checks the iss claim. An empty expectation is not enforced.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected != "" && c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience runs the audience policy against aud.
func (c *Claims) ValidateAudience(policy AudiencePolicy) error {
	if policy == nil {
		policy = AnyAudience()
	}
	if !policy.Allow(c.Audience) {
		return ErrAudience
	}
	return nil
}

// ValidateExpiry checks exp and nbf against now, allowing leeway either way.
// A token without exp is rejected: access tokens always carry one.
func (c *Claims) ValidateExpiry(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt == nil {
		return ErrExpired
	}
	if !now.Before(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
