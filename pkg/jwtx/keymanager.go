package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/kbauth/pkg/cryptox"
)

// KeyManager ties the active Signer, the published KeySet and a Verifier
// bound to that KeySet together. One exists per process.
type KeyManager struct {
	Signer   Signer
	Verifier Verifier
	KeySet   *KeySet
}

// KeyManagerOptions configures a KeyManager.
type KeyManagerOptions struct {
	// Algorithm is the signing algorithm: "EdDSA", "RS256" or "ES256".
	// With NewKeyManager it may be left empty and is inferred from the key.
	Algorithm string

	// PEM is the private signing key. Only used by NewKeyManager.
	PEM []byte

	// KID overrides the key id. Defaults to the public key thumbprint.
	KID string

	// Issuer is the iss every issued and accepted token carries.
	Issuer string

	// Audience decides which aud values the verifier accepts.
	Audience AudiencePolicy

	// Leeway tolerates clock skew when verifying.
	Leeway time.Duration

	// RSABits for ephemeral RS256 keys. Defaults to 2048.
	RSABits int

	// Now overrides the verifier clock, for tests.
	Now func() time.Time
}

// NewKeyManager loads the signing key from opts.PEM.
func NewKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, errors.New("jwtx: Issuer is required")
	}
	if len(opts.PEM) == 0 {
		return nil, errors.New("jwtx: PEM is required")
	}

	signer, err := NewSigner(opts.Algorithm, opts.KID, opts.PEM)
	if err != nil {
		return nil, err
	}
	return assemble(signer, opts)
}

// NewEphemeralKeyManager generates a fresh key in memory. Tokens signed by
// it stop verifying once the process exits.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, errors.New("jwtx: Issuer is required")
	}

	var (
		pemKey []byte
		err    error
	)
	switch opts.Algorithm {
	case AlgorithmEdDSA, "":
		opts.Algorithm = AlgorithmEdDSA
		pemKey, err = cryptox.GenerateEd25519Key()
	case AlgorithmES256:
		pemKey, err = cryptox.GenerateES256Key()
	case AlgorithmRS256:
		bits := opts.RSABits
		if bits == 0 {
			bits = cryptox.MinRSABits
		}
		pemKey, err = cryptox.GenerateRSAKey(bits)
	default:
		return nil, fmt.Errorf("jwtx: unsupported algorithm %q", opts.Algorithm)
	}
	if err != nil {
		return nil, fmt.Errorf("jwtx: generate %s key: %w", opts.Algorithm, err)
	}

	signer, err := NewSigner(opts.Algorithm, opts.KID, pemKey)
	if err != nil {
		return nil, err
	}
	return assemble(signer, opts)
}

func assemble(signer Signer, opts KeyManagerOptions) (*KeyManager, error) {
	ks := NewKeySet()
	if err := ks.AddSigner(signer); err != nil {
		return nil, fmt.Errorf("jwtx: publish key: %w", err)
	}

	return &KeyManager{
		Signer: signer,
		KeySet: ks,
		Verifier: NewVerifier(ks, VerifyOptions{
			Issuer:   opts.Issuer,
			Audience: opts.Audience,
			Leeway:   opts.Leeway,
			Now:      opts.Now,
		}),
	}, nil
}

// Algorithm of the active signing key.
func (km *KeyManager) Algorithm() string { return km.Signer.Alg() }

// IsReady reports whether the manager can sign and verify.
func (km *KeyManager) IsReady() bool {
	return km != nil && km.Signer != nil && km.Verifier != nil && km.KeySet.IsReady()
}
