package authsdk

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// expiryBuffer is subtracted from expires_in so tokens refresh before the
// provider rejects them.
const expiryBuffer = 30 * time.Second

// Session holds one signed-in token set and refreshes the access token on
// demand.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	clientID     string
	expiresAt    time.Time
	scopes       map[string]bool

	// onRefresh runs after a successful refresh, with mu held. It must not
	// call back into the Session.
	onRefresh func(*TokenResponse)
}

func newSession(client *SDKClient, clientID string, tokenResp *TokenResponse) *Session {
	s := &Session{client: client, clientID: clientID}
	s.applyLocked(tokenResp)
	return s
}

func (s *Session) applyLocked(tokenResp *TokenResponse) {
	s.accessToken = tokenResp.AccessToken
	if tokenResp.RefreshToken != "" {
		s.refreshToken = tokenResp.RefreshToken
	}
	s.expiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - expiryBuffer)
	s.scopes = parseScopes(tokenResp.Scope)
}

// parseScopes parses a space-delimited scope string into a set.
func parseScopes(scopeStr string) map[string]bool {
	parts := strings.Fields(scopeStr)
	scopes := make(map[string]bool, len(parts))
	for _, scope := range parts {
		scopes[scope] = true
	}
	return scopes
}

// ValidToken returns an access token, refreshing first if it has expired.
func (s *Session) ValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited.
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}
	if err := s.refreshLocked(ctx); err != nil {
		return "", err
	}
	return s.accessToken, nil
}

// Refresh forces a refresh grant regardless of expiry.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Session) refreshLocked(ctx context.Context) error {
	if s.refreshToken == "" {
		return fmt.Errorf("access token expired and no refresh token available")
	}

	tokenResp, err := s.client.RefreshGrant(ctx, s.clientID, s.refreshToken)
	if err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}

	s.applyLocked(tokenResp)
	if s.onRefresh != nil {
		s.onRefresh(tokenResp)
	}
	return nil
}

// Revoke revokes the current refresh token, invalidating this session.
func (s *Session) Revoke(ctx context.Context) error {
	s.mu.RLock()
	refreshToken := s.refreshToken
	clientID := s.clientID
	s.mu.RUnlock()

	if refreshToken == "" {
		return fmt.Errorf("no refresh token to revoke")
	}
	return s.client.RevokeToken(ctx, clientID, refreshToken)
}

// AccessToken returns the current access token without checking expiration.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// ExpiresAt returns when the access token should be treated as expired.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Scopes returns the granted scopes, sorted.
func (s *Session) Scopes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scopes := make([]string, 0, len(s.scopes))
	for scope := range s.scopes {
		scopes = append(scopes, scope)
	}
	slices.Sort(scopes)
	return scopes
}

// HasScope returns true if the session has the specified scope.
func (s *Session) HasScope(scope string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scopes[scope]
}
