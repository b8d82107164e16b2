package authsdk

import (
	"context"
	"errors"
	"sync"
)

// TokenStorageKey is the key Auth persists its token under.
const TokenStorageKey = "auth-token"

// ErrNoToken is returned by TokenStorage.LoadToken when nothing is stored.
var ErrNoToken = errors.New("authsdk: no stored token")

// StoredToken is what Auth persists between runs to restore a session.
type StoredToken struct {
	ClientID     string `json:"client_id"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope,omitempty"`
}

// TokenStorage persists the refresh token across restarts.
type TokenStorage interface {
	LoadToken(ctx context.Context) (*StoredToken, error)
	SaveToken(ctx context.Context, tok *StoredToken) error
	DeleteToken(ctx context.Context) error
}

// MemoryStorage keeps the token in memory only.
type MemoryStorage struct {
	mu  sync.Mutex
	tok *StoredToken
}

func (m *MemoryStorage) LoadToken(context.Context) (*StoredToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tok == nil {
		return nil, ErrNoToken
	}
	cp := *m.tok
	return &cp, nil
}

func (m *MemoryStorage) SaveToken(_ context.Context, tok *StoredToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *tok
	m.tok = &cp
	return nil
}

func (m *MemoryStorage) DeleteToken(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tok = nil
	return nil
}
