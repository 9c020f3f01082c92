package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/kbauth/internal/auth/secrets"
	"github.com/aussiebroadwan/kbauth/pkg/jwtx"
)

// InitAuthKeys builds the KeyManager for the configured key mode.
//
// Key modes:
//   - "secret": the PEM private key is read from the secret store under
//     "signing-key". The kid is the key's thumbprint, so it is stable
//     across restarts and replicas sharing the secret.
//   - "ephemeral": a key is generated in memory at startup. Every issued
//     token stops verifying when the process exits. Development only.
//
// Supported algorithms: EdDSA, RS256, ES256
func InitAuthKeys(ctx context.Context, cfg Config, sec secrets.Store, logger *slog.Logger) (*jwtx.KeyManager, error) {
	opts := jwtx.KeyManagerOptions{
		Algorithm: cfg.Algorithm,
		Issuer:    cfg.Issuer,
		Leeway:    cfg.ClockSkew,
	}
	if len(cfg.Audiences) > 0 {
		opts.Audience = jwtx.AllowAudiences(cfg.Audiences...)
	}

	var (
		keyManager *jwtx.KeyManager
		err        error
	)

	switch cfg.KeyMode {
	case KeyModeEphemeral:
		keyManager, err = jwtx.NewEphemeralKeyManager(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to generate ephemeral signing key: %w", err)
		}
		logger.Warn("ephemeral signing key generated, tokens will not survive a restart",
			"algorithm", keyManager.Algorithm(),
			"kid", keyManager.Signer.KID(),
		)

	default:
		opts.PEM, err = sec.Get(ctx, secrets.SigningKey)
		if errors.Is(err, secrets.ErrNotFound) {
			return nil, fmt.Errorf("secret %q is not set, create one with `kbauth gen-key`", secrets.SigningKey)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read signing key: %w", err)
		}

		keyManager, err = jwtx.NewKeyManager(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to load signing key: %w", err)
		}
		logger.Info("signing key loaded",
			"algorithm", keyManager.Algorithm(),
			"kid", keyManager.Signer.KID(),
			"issuer", cfg.Issuer,
		)
	}

	return keyManager, nil
}
