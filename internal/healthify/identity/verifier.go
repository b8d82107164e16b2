package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/healthify/pkg/authsdk"
	"github.com/aussiebroadwan/healthify/pkg/jwtx"
)

// VerifierConfig describes what access tokens from the provider must carry.
type VerifierConfig struct {
	Issuer   string
	Audience []string
	Leeway   time.Duration
}

// NewVerifier fetches the provider's JWKS and returns a verifier over it.
func NewVerifier(ctx context.Context, client *authsdk.SDKClient, cfg VerifierConfig) (*jwtx.KeySetVerifier, error) {
	jwks, err := client.GetJWKS(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}

	keys := jwtx.NewKeySet()
	if err := keys.ResetFromJWKS(jwtx.JWKS(*jwks)); err != nil {
		return nil, fmt.Errorf("load jwks: %w", err)
	}

	return jwtx.NewKeySetVerifier(keys, jwtx.VerifyOptions{
		Issuer:   cfg.Issuer,
		Audience: cfg.Audience,
		Leeway:   cfg.Leeway,
	}), nil
}
