package jwtx

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrUnknownKID  = errors.New("jwtx: unknown kid")

	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrAudience    = errors.New("jwtx: audience mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// VerifyOptions captures the expectations a token must meet.
type VerifyOptions struct {
	// Issuer the token must have (claims.iss). Empty means "don't care".
	Issuer string

	// Audience values the token must contain (claims.aud). Empty means "don't care".
	Audience []string

	// Leeway allows small clock skew when validating exp/nbf.
	Leeway time.Duration
}

// KeySetVerifier verifies EdDSA, RS256 and ES256 tokens against a KeySet.
// The key selected by kid must match the token's algorithm.
type KeySetVerifier struct {
	keys *KeySet
	opts VerifyOptions
	now  func() time.Time
}

// NewKeySetVerifier returns a verifier backed by keys.
func NewKeySetVerifier(keys *KeySet, opts VerifyOptions) *KeySetVerifier {
	return &KeySetVerifier{keys: keys, opts: opts, now: time.Now}
}

// Verify validates tokenStr and returns its claims.
func (v *KeySetVerifier) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"EdDSA", "RS256", "ES256"}),
		jwt.WithoutClaimsValidation(),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, v.keyFunc)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownKID), errors.Is(err, ErrAlgMismatch):
			return Claims{}, err
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, ErrMalformed
		}
		return Claims{}, fmt.Errorf("jwtx: parse or verify: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrMalformed
	}

	if err := claims.ValidateIssuer(v.opts.Issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateAudience(v.opts.Audience); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiryWithLeeway(v.now(), v.opts.Leeway); err != nil {
		return Claims{}, err
	}

	return *claims, nil
}

func (v *KeySetVerifier) keyFunc(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, fmt.Errorf("%w: missing kid", ErrUnknownKID)
	}

	pub, err := v.keys.Get(kid)
	if err != nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownKID, kid)
	}

	alg := t.Method.Alg()
	switch pub.(type) {
	case ed25519.PublicKey:
		if alg == "EdDSA" {
			return pub, nil
		}
	case *rsa.PublicKey:
		if alg == "RS256" {
			return pub, nil
		}
	case *ecdsa.PublicKey:
		if alg == "ES256" {
			return pub, nil
		}
	}
	return nil, fmt.Errorf("%w: %s token for kid %q", ErrAlgMismatch, alg, kid)
}
