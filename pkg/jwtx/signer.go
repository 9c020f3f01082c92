package jwtx

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/kbauth/pkg/cryptox"
	"github.com/golang-jwt/jwt/v5"
)

// Supported JWT signing algorithms
const (
	AlgorithmRS256 = "RS256"
	AlgorithmES256 = "ES256"
	AlgorithmEdDSA = "EdDSA"
)

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)
	PublicJWK() JWK
}

// keySigner signs with one private key. The algorithm is fixed by the key
// type: Ed25519 signs EdDSA, RSA signs RS256, P-256 signs ES256.
type keySigner struct {
	kid    string
	method jwt.SigningMethod
	key    any
	jwk    JWK
}

// NewSigner loads a private key from PEM. If alg is non-empty it must agree
// with the key type. If kid is empty the key's thumbprint is used, so every
// process loading the same key publishes the same kid.
func NewSigner(alg, kid string, pemKey []byte) (Signer, error) {
	key, err := cryptox.ParsePrivateKeyPEM(pemKey)
	if err != nil {
		return nil, fmt.Errorf("jwtx: %w", err)
	}

	var (
		method jwt.SigningMethod
		pub    any
	)
	switch k := key.(type) {
	case ed25519.PrivateKey:
		method, pub = jwt.SigningMethodEdDSA, k.Public()
	case *rsa.PrivateKey:
		if k.N.BitLen() < cryptox.MinRSABits {
			return nil, fmt.Errorf("jwtx: RSA key too small (%d bits)", k.N.BitLen())
		}
		method, pub = jwt.SigningMethodRS256, &k.PublicKey
	case *ecdsa.PrivateKey:
		if k.Curve != elliptic.P256() {
			return nil, errors.New("jwtx: only P-256 ECDSA keys are supported")
		}
		method, pub = jwt.SigningMethodES256, &k.PublicKey
	default:
		return nil, fmt.Errorf("jwtx: unsupported private key type %T", key)
	}

	if alg != "" && alg != method.Alg() {
		return nil, fmt.Errorf("jwtx: key is %s but algorithm %s was requested", method.Alg(), alg)
	}

	if kid == "" {
		kid, err = cryptox.PublicKeyThumbprint(pub)
		if err != nil {
			return nil, fmt.Errorf("jwtx: %w", err)
		}
	}

	jwk, err := NewJWK(kid, method.Alg(), pub)
	if err != nil {
		return nil, err
	}

	return &keySigner{kid: kid, method: method, key: key, jwk: jwk}, nil
}

func (s *keySigner) Alg() string    { return s.method.Alg() }
func (s *keySigner) KID() string    { return s.kid }
func (s *keySigner) PublicJWK() JWK { return s.jwk }

// Sign turns claims into a compact JWS with the kid header set.
func (s *keySigner) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(s.method, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}
