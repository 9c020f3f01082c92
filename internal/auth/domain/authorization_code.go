package domain

import "time"

// AuthorizationCodeTTL is how long an issued code may be exchanged. It must
// not be shorter than the login ticket lifetime: an expired code row is what
// stops its ticket from being used again.
const AuthorizationCodeTTL = 10 * time.Minute

// AuthorizationCode binds a one-time code to everything the token endpoint
// must check. Only the fingerprint of the code is stored.
type AuthorizationCode struct {
	ID                  string
	CodeHash            string
	ClientID            string
	RedirectURI         string
	CodeChallenge       string
	CodeChallengeMethod string
	Scope               string
	Subject             string
	// TicketID is the login ticket the code was issued under. A ticket
	// yields at most one code.
	TicketID  string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Consumed  bool
}

// Expired reports whether the code can no longer be exchanged at now.
func (c AuthorizationCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
