package jwtx

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
)

// JWK is a public key in JSON Web Key format (RFC 7517).
type JWK struct {
	Kty string `json:"kty"`           // "RSA", "OKP" or "EC"
	Use string `json:"use,omitempty"` // always "sig" here
	Alg string `json:"alg,omitempty"`
	Kid string `json:"kid,omitempty"`

	// RSA
	N string `json:"n,omitempty"`
	E string `json:"e,omitempty"`

	// OKP and EC
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
}

// JWKS is a JSON Web Key Set (RFC 7517).
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// NewJWK describes pub as a signing JWK.
func NewJWK(kid, alg string, pub any) (JWK, error) {
	b64 := base64.RawURLEncoding.EncodeToString

	switch k := pub.(type) {
	case ed25519.PublicKey:
		return JWK{Kty: "OKP", Use: "sig", Alg: alg, Kid: kid, Crv: "Ed25519", X: b64(k)}, nil
	case *rsa.PublicKey:
		return JWK{
			Kty: "RSA", Use: "sig", Alg: alg, Kid: kid,
			N: b64(k.N.Bytes()),
			E: b64(big.NewInt(int64(k.E)).Bytes()),
		}, nil
	case *ecdsa.PublicKey:
		// P-256 coordinates are left padded to 32 bytes
		x := make([]byte, 32)
		y := make([]byte, 32)
		k.X.FillBytes(x)
		k.Y.FillBytes(y)
		return JWK{Kty: "EC", Use: "sig", Alg: alg, Kid: kid, Crv: "P-256", X: b64(x), Y: b64(y)}, nil
	default:
		return JWK{}, fmt.Errorf("jwtx: unsupported public key type %T", pub)
	}
}

// PublicKey converts the JWK back into a crypto public key.
func (j JWK) PublicKey() (any, error) {
	dec := base64.RawURLEncoding.DecodeString

	switch j.Kty {
	case "RSA":
		nb, err := dec(j.N)
		if err != nil {
			return nil, err
		}
		eb, err := dec(j.E)
		if err != nil {
			return nil, err
		}
		return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: int(new(big.Int).SetBytes(eb).Int64())}, nil

	case "OKP":
		if j.Crv != "Ed25519" {
			return nil, errors.New("jwtx: unsupported OKP curve " + j.Crv)
		}
		xb, err := dec(j.X)
		if err != nil {
			return nil, err
		}
		if len(xb) != ed25519.PublicKeySize {
			return nil, errors.New("jwtx: invalid Ed25519 public key size")
		}
		return ed25519.PublicKey(xb), nil

	case "EC":
		if j.Crv != "P-256" {
			return nil, errors.New("jwtx: unsupported EC curve " + j.Crv)
		}
		xb, err := dec(j.X)
		if err != nil {
			return nil, err
		}
		yb, err := dec(j.Y)
		if err != nil {
			return nil, err
		}
		return &ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(xb),
			Y:     new(big.Int).SetBytes(yb),
		}, nil

	default:
		return nil, errors.New("jwtx: unsupported kty " + j.Kty)
	}
}
