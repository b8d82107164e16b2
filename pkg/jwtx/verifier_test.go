package jwtx_test

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/healthify/pkg/jwtx"
)

const exampleIssuer = "https://auth.example.test"

func newClaims(subject string, ttl time.Duration) jwtx.Claims {
	now := time.Now()
	return jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    exampleIssuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{"healthify"},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Scopes:        []string{"profile:read"},
		Username:      "ada",
		PreferredName: "Ada",
	}
}

func sign(t *testing.T, method jwt.SigningMethod, kid string, key any, c jwtx.Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(method, c)
	tok.Header["kid"] = kid
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func rsaJWK(kid string, pub *rsa.PublicKey) jwtx.JWK {
	return jwtx.JWK{
		Kty: "RSA", Use: "sig", Alg: "RS256", Kid: kid,
		N: base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E: base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

func TestKeySetVerifier_Algorithms(t *testing.T) {
	edPub, edPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	ecPriv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	rsaPriv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	keys := jwtx.NewKeySet()
	require.False(t, keys.IsReady())
	require.NoError(t, keys.ResetFromJWKS(jwtx.JWKS{Keys: []jwtx.JWK{
		jwtx.NewEd25519JWK("ed", edPub),
		jwtx.NewES256JWK("ec", &ecPriv.PublicKey),
		rsaJWK("rsa", &rsaPriv.PublicKey),
	}}))
	require.True(t, keys.IsReady())

	v := jwtx.NewKeySetVerifier(keys, jwtx.VerifyOptions{Issuer: exampleIssuer, Audience: []string{"healthify"}})

	tests := []struct {
		name   string
		method jwt.SigningMethod
		kid    string
		key    any
	}{
		{"EdDSA", jwt.SigningMethodEdDSA, "ed", edPriv},
		{"ES256", jwt.SigningMethodES256, "ec", ecPriv},
		{"RS256", jwt.SigningMethodRS256, "rsa", rsaPriv},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := sign(t, tt.method, tt.kid, tt.key, newClaims("user-1", 5*time.Minute))

			c, err := v.Verify(tok)
			require.NoError(t, err)
			require.Equal(t, "user-1", c.Subject)
			require.Equal(t, "ada", c.Username)
			require.Equal(t, []string{"profile:read"}, c.Scopes)
		})
	}

	t.Run("alg must match key", func(t *testing.T) {
		tok := sign(t, jwt.SigningMethodES256, "ed", ecPriv, newClaims("user-1", time.Minute))
		_, err := v.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrAlgMismatch)
	})

	t.Run("unknown kid", func(t *testing.T) {
		tok := sign(t, jwt.SigningMethodEdDSA, "missing", edPriv, newClaims("user-1", time.Minute))
		_, err := v.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrUnknownKID)
	})
}

func TestKeySetVerifier_Claims(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.ResetFromJWKS(jwtx.JWKS{Keys: []jwtx.JWK{jwtx.NewEd25519JWK("k1", pub)}}))

	t.Run("expired", func(t *testing.T) {
		v := jwtx.NewKeySetVerifier(keys, jwtx.VerifyOptions{})
		tok := sign(t, jwt.SigningMethodEdDSA, "k1", priv, newClaims("u", -time.Minute))
		_, err := v.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("expired within leeway", func(t *testing.T) {
		v := jwtx.NewKeySetVerifier(keys, jwtx.VerifyOptions{Leeway: 2 * time.Minute})
		tok := sign(t, jwt.SigningMethodEdDSA, "k1", priv, newClaims("u", -time.Minute))
		_, err := v.Verify(tok)
		require.NoError(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		v := jwtx.NewKeySetVerifier(keys, jwtx.VerifyOptions{Issuer: "someone-else"})
		tok := sign(t, jwt.SigningMethodEdDSA, "k1", priv, newClaims("u", time.Minute))
		_, err := v.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("wrong audience", func(t *testing.T) {
		v := jwtx.NewKeySetVerifier(keys, jwtx.VerifyOptions{Audience: []string{"admin"}})
		tok := sign(t, jwt.SigningMethodEdDSA, "k1", priv, newClaims("u", time.Minute))
		_, err := v.Verify(tok)
		require.ErrorIs(t, err, jwtx.ErrAudience)
	})

	t.Run("malformed", func(t *testing.T) {
		v := jwtx.NewKeySetVerifier(keys, jwtx.VerifyOptions{})
		_, err := v.Verify("not.a.jwt")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})
}

func TestKeySet_ResetFromJWKS(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.ResetFromJWKS(jwtx.JWKS{Keys: []jwtx.JWK{jwtx.NewEd25519JWK("k1", pub)}}))

	err = keys.ResetFromJWKS(jwtx.JWKS{Keys: []jwtx.JWK{{Kty: "OKP", Crv: "X25519", Kid: "bad"}}})
	require.Error(t, err)

	_, err = keys.Get("k1")
	require.NoError(t, err, "failed reset must keep previous keys")

	_, err = keys.Get("bad")
	require.ErrorIs(t, err, jwtx.ErrNoKey)
}
