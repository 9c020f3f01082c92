package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/kbauth/internal/auth/domain"
	"github.com/aussiebroadwan/kbauth/internal/auth/service"
	"github.com/aussiebroadwan/kbauth/pkg/cryptox"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestOwnerVerify(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		ok       bool
	}{
		{"correct", ownerEmail, ownerPass, true},
		{"email is case insensitive", "  Owner@Example.COM ", ownerPass, true},
		{"wrong password", ownerEmail, "wrong", false},
		{"wrong email", "someone@example.com", ownerPass, false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := h.owner.Verify(ctx, tt.email, tt.password, "")
			if tt.ok {
				require.NoError(t, err)
				require.Equal(t, ownerSubject, sub)
				return
			}
			require.ErrorIs(t, err, service.ErrInvalidCredentials)
		})
	}
}

func TestOwnerVerifyTOTP(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	key, err := totp.Generate(totp.GenerateOpts{Issuer: "kbauth", AccountName: ownerEmail})
	require.NoError(t, err)

	hasher := cryptox.PasswordHasher{}
	hash, err := hasher.Hash(ownerPass)
	require.NoError(t, err)

	v := &service.OwnerVerifier{
		Owner:  domain.Owner{Email: ownerEmail, Subject: ownerSubject, PasswordHash: hash, TOTPSecret: key.Secret()},
		Hasher: hasher,
		Now:    func() time.Time { return now },
	}
	require.True(t, v.RequiresOTP())

	code, err := totp.GenerateCode(key.Secret(), now)
	require.NoError(t, err)

	sub, err := v.Verify(ctx, ownerEmail, ownerPass, code)
	require.NoError(t, err)
	require.Equal(t, ownerSubject, sub)

	_, err = v.Verify(ctx, ownerEmail, ownerPass, "")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	stale, err := totp.GenerateCode(key.Secret(), now.Add(-5*time.Minute))
	require.NoError(t, err)
	_, err = v.Verify(ctx, ownerEmail, ownerPass, stale)
	require.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestOwnerVerifyBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte(ownerPass), bcrypt.MinCost)
	require.NoError(t, err)

	v := &service.OwnerVerifier{
		Owner:  domain.Owner{Email: ownerEmail, Subject: ownerSubject, PasswordHash: string(hash)},
		Hasher: cryptox.PasswordHasher{Pepper: "ignored for bcrypt"},
	}
	_, err = v.Verify(context.Background(), ownerEmail, ownerPass, "")
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), ownerEmail, "nope", "")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)
}
