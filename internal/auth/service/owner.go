package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/kbauth/internal/auth/domain"
	"github.com/aussiebroadwan/kbauth/pkg/cryptox"
	"github.com/aussiebroadwan/kbauth/pkg/slogx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// OwnerVerifier checks the single resource owner's credentials. Every
// mismatch, whichever factor failed, is reported as ErrInvalidCredentials.
type OwnerVerifier struct {
	Owner  domain.Owner
	Hasher cryptox.PasswordHasher
	Now    func() time.Time
}

// Verify returns the owner's subject when email, password and (if enrolled)
// the TOTP code all match.
func (v *OwnerVerifier) Verify(ctx context.Context, email, password, code string) (string, error) {
	emailOK := subtle.ConstantTimeCompare(
		[]byte(strings.ToLower(strings.TrimSpace(email))),
		[]byte(strings.ToLower(v.Owner.Email)),
	) == 1

	// The hash is checked even for a wrong email so both paths cost the same.
	err := v.Hasher.Verify(password, v.Owner.PasswordHash)
	if err != nil && !errors.Is(err, cryptox.ErrPasswordMismatch) {
		slogx.FromContext(ctx).Error("owner password hash unusable", "error", err)
	}
	if !emailOK || err != nil {
		return "", ErrInvalidCredentials
	}

	if v.Owner.RequiresOTP() {
		ok, err := totp.ValidateCustom(strings.TrimSpace(code), v.Owner.TOTPSecret, v.now(), totp.ValidateOpts{
			Period:    30,
			Skew:      1,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		})
		if err != nil || !ok {
			return "", ErrInvalidCredentials
		}
	}
	return v.Owner.Subject, nil
}

// RequiresOTP reports whether the login form must ask for a code.
func (v *OwnerVerifier) RequiresOTP() bool { return v.Owner.RequiresOTP() }

func (v *OwnerVerifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}
