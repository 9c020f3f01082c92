package jwtx

import (
	"errors"
	"slices"
	"sync"
)

var ErrNoKey = errors.New("jwtx: key not found")

// KeySet holds public verification keys by kid. It backs both the JWKS
// endpoint and the Resource Guard.
type KeySet struct {
	mu   sync.RWMutex
	keys []JWK
	pub  map[string]keyEntry
}

type keyEntry struct {
	alg string
	key any
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{pub: make(map[string]keyEntry)}
}

// AddSigner publishes a Signer's public key.
func (k *KeySet) AddSigner(s Signer) error {
	return k.AddJWK(s.PublicJWK())
}

// AddJWK adds j, replacing any key with the same kid.
func (k *KeySet) AddJWK(j JWK) error {
	key, err := j.PublicKey()
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	k.keys = slices.DeleteFunc(k.keys, func(existing JWK) bool { return existing.Kid == j.Kid })
	k.keys = append(k.keys, j)
	k.pub[j.Kid] = keyEntry{alg: j.Alg, key: key}
	return nil
}

// Get returns the public key and its algorithm for kid.
func (k *KeySet) Get(kid string) (key any, alg string, err error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if e, ok := k.pub[kid]; ok {
		return e.key, e.alg, nil
	}
	return nil, "", ErrNoKey
}

// PublicJWKS returns a copy of the set for serving.
func (k *KeySet) PublicJWKS() JWKS {
	k.mu.RLock()
	defer k.mu.RUnlock()
	keys := slices.Clone(k.keys)
	if keys == nil {
		keys = []JWK{}
	}
	return JWKS{Keys: keys}
}

// IsReady reports whether at least one key is loaded.
func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.pub) > 0
}
