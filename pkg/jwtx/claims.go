package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access-token claims issued by the identity provider.
type Claims struct {
	jwt.RegisteredClaims

	// Session ID
	SID string `json:"sid,omitempty"`

	// Permission scopes, e.g. "profile:read"
	Scopes []string `json:"scopes,omitempty"`

	// Authentication methods reference, e.g. ["pwd","mfa"]
	AMR []string `json:"amr,omitempty"`

	Username      string `json:"username,omitempty"`
	PreferredName string `json:"preferred_name,omitempty"`
}

// ValidateIssuer checks the issuer. An empty expectation accepts any.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" || c.Issuer == expected {
		return nil
	}
	return ErrIssuer
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateExpiryWithLeeway checks exp and nbf, allowing leeway of clock skew.
func (c *Claims) ValidateExpiryWithLeeway(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
