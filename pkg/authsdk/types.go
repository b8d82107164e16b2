package authsdk

import (
	"github.com/aussiebroadwan/healthify/pkg/jwtx"
)

// ErrorResponse is the wire form of an OAuth2 error.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// TokenResponse represents the OAuth2 token endpoint response per RFC 6749.
// Returned from POST /v1/oauth2/token for the authorization_code and
// refresh_token grants.
type TokenResponse struct {
	// AccessToken is the JWT access token used to authenticate API requests
	AccessToken string `json:"access_token"`

	// RefreshToken is the opaque refresh token used to obtain new access tokens
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is always "Bearer" per OAuth2 spec
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int `json:"expires_in"`

	// Scope is the space-delimited list of scopes granted to this token
	Scope string `json:"scope,omitempty"`
}

// UserInfoResponse is returned from GET /v1/userinfo. Requires profile:read.
type UserInfoResponse struct {
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	PreferredName string `json:"preferred_name"`
	Role          string `json:"role"`
}

// HealthResponse is returned by the provider's /livez endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime,omitempty"`
	Version string `json:"version,omitempty"`
}

// JWKSResponse is the provider's key set from /.well-known/jwks.json.
type JWKSResponse jwtx.JWKS

// RedeemInviteRequest creates an account from an invite token.
type RedeemInviteRequest struct {
	InviteToken string `json:"invite_token"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	ClientID    string `json:"client_id"`
}

// RedeemInviteResponse contains information about the newly created user.
type RedeemInviteResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}
