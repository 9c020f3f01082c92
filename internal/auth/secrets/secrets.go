// Package secrets reads key material and credential hashes from an external
// secret store. The auth server never writes secrets.
package secrets

import (
	"context"
	"errors"
)

// Well-known secret names.
const (
	SigningKey        = "signing-key"
	OwnerPasswordHash = "owner-password-hash"
	OwnerTOTPSecret   = "owner-totp-secret"
	PasswordPepper    = "password-pepper"
	TicketKey         = "ticket-key"
)

// ErrNotFound means the store has no secret under that name.
var ErrNotFound = errors.New("secrets: not found")

// Store is get-by-name access to secret values.
type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
}

// GetOptional returns nil, nil when the secret is absent.
func GetOptional(ctx context.Context, s Store, name string) ([]byte, error) {
	v, err := s.Get(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return v, err
}
