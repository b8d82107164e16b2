package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/healthify/internal/healthify/session"
	"github.com/aussiebroadwan/healthify/pkg/authsdk"
	"github.com/aussiebroadwan/healthify/pkg/cryptox"
)

// SealPurpose is the HKDF purpose the secure store derives its key for.
const SealPurpose = "healthify-secure-kv"

// SecureKV encrypts every value before it reaches the underlying KV. The key
// is bound as additional data, so a value copied to another key fails to open.
type SecureKV struct {
	kv     KV
	sealer *cryptox.Sealer
}

// NewSecureKV wraps kv. master is the process master key.
func NewSecureKV(kv KV, master []byte) (*SecureKV, error) {
	sealer, err := cryptox.NewSealer(master, SealPurpose)
	if err != nil {
		return nil, err
	}
	return &SecureKV{kv: kv, sealer: sealer}, nil
}

func (s *SecureKV) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	plain, err := s.sealer.Open(sealed, key)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", key, err)
	}
	return plain, nil
}

func (s *SecureKV) Put(ctx context.Context, key string, value []byte) error {
	sealed, err := s.sealer.Seal(value, key)
	if err != nil {
		return fmt.Errorf("seal %q: %w", key, err)
	}
	return s.kv.Put(ctx, key, sealed)
}

func (s *SecureKV) Delete(ctx context.Context, key string) error {
	return s.kv.Delete(ctx, key)
}

// SessionCache is the session snapshot cache over a KV.
type SessionCache struct {
	kv KV
}

var _ session.Cache = (*SessionCache)(nil)

func NewSessionCache(kv KV) *SessionCache { return &SessionCache{kv: kv} }

func (c *SessionCache) Put(ctx context.Context, key string, value []byte) error {
	return c.kv.Put(ctx, key, value)
}

func (c *SessionCache) Remove(ctx context.Context, key string) error {
	return c.kv.Delete(ctx, key)
}

// Snapshot returns the cached user, nil when nothing is cached.
func (c *SessionCache) Snapshot(ctx context.Context) (*session.User, error) {
	b, err := c.kv.Get(ctx, session.CacheKey)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session.DecodeUser(b)
}

// TokenStorage persists the provider's refresh token in a KV.
type TokenStorage struct {
	kv KV
}

var _ authsdk.TokenStorage = (*TokenStorage)(nil)

func NewTokenStorage(kv KV) *TokenStorage { return &TokenStorage{kv: kv} }

func (t *TokenStorage) LoadToken(ctx context.Context) (*authsdk.StoredToken, error) {
	b, err := t.kv.Get(ctx, authsdk.TokenStorageKey)
	if errors.Is(err, ErrNotFound) {
		return nil, authsdk.ErrNoToken
	}
	if err != nil {
		return nil, err
	}

	var tok authsdk.StoredToken
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("decode stored token: %w", err)
	}
	return &tok, nil
}

func (t *TokenStorage) SaveToken(ctx context.Context, tok *authsdk.StoredToken) error {
	b, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return t.kv.Put(ctx, authsdk.TokenStorageKey, b)
}

func (t *TokenStorage) DeleteToken(ctx context.Context) error {
	return t.kv.Delete(ctx, authsdk.TokenStorageKey)
}
