package jwtx

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"math/big"
	"sync"
)

var ErrNoKey = errors.New("jwtx: key not found")

// KeySet holds the provider's public verification keys, refreshed from its
// JWKS endpoint. Safe for concurrent use.
type KeySet struct {
	mu  sync.RWMutex
	pub map[string]any // kid -> *rsa.PublicKey | ed25519.PublicKey | *ecdsa.PublicKey
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{pub: make(map[string]any)}
}

// Get returns the public key for the given kid.
func (k *KeySet) Get(kid string) (any, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if pk, ok := k.pub[kid]; ok {
		return pk, nil
	}
	return nil, ErrNoKey
}

// IsReady returns true if the KeySet has at least one key loaded.
func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.pub) > 0
}

// ResetFromJWKS replaces all keys. Nothing changes if any key fails to parse.
func (k *KeySet) ResetFromJWKS(jwks JWKS) error {
	next := make(map[string]any, len(jwks.Keys))
	for _, j := range jwks.Keys {
		key, err := parseJWK(j)
		if err != nil {
			return err
		}
		next[j.Kid] = key
	}

	k.mu.Lock()
	k.pub = next
	k.mu.Unlock()
	return nil
}

func parseJWK(j JWK) (any, error) {
	b64 := base64.RawURLEncoding

	switch j.Kty {
	case "RSA":
		nb, err := b64.DecodeString(j.N)
		if err != nil {
			return nil, err
		}
		eb, err := b64.DecodeString(j.E)
		if err != nil {
			return nil, err
		}
		return &rsa.PublicKey{
			N: new(big.Int).SetBytes(nb),
			E: int(new(big.Int).SetBytes(eb).Int64()),
		}, nil

	case "OKP":
		if j.Crv != "Ed25519" {
			return nil, errors.New("jwtx: unsupported OKP curve " + j.Crv)
		}
		xb, err := b64.DecodeString(j.X)
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
		xb, err := b64.DecodeString(j.X)
		if err != nil {
			return nil, err
		}
		yb, err := b64.DecodeString(j.Y)
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
