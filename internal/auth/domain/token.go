package domain

import "time"

// RefreshTokenTTL bounds every refresh token, rotated or not.
const RefreshTokenTTL = 30 * 24 * time.Hour

// TokenPair represents what the token endpoint returns: the short-lived
// access token (JWT) and the opaque refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    time.Duration
	Scope        string
}

// RefreshToken models the stored refresh token record. Rotation revokes
// the presented token and creates a successor pointing back at it, so each
// chain has at most one active member.
type RefreshToken struct {
	ID            string
	TokenHash     string // deterministic fingerprint (base64url SHA-256)
	ClientID      string
	Subject       string
	Scope         string
	IssuedAt      time.Time
	ExpiresAt     time.Time
	Revoked       bool
	PredecessorID *string
}

// Expired reports whether the token is past its lifetime at now.
func (t RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
