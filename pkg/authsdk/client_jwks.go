package authsdk

import (
	"context"
	"net/http"
)

// GetJWKS retrieves the JSON Web Key Set for token verification.
func (c *SDKClient) GetJWKS(ctx context.Context) (*JWKSResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/.well-known/jwks.json", "", nil, nil)
	if err != nil {
		return nil, err
	}

	var jwks JWKSResponse
	if err := decodeJSON(resp, &jwks, http.StatusOK); err != nil {
		return nil, err
	}
	return &jwks, nil
}

// GetUserInfo returns the profile for accessToken. Requires profile:read.
func (c *SDKClient) GetUserInfo(ctx context.Context, accessToken string) (*UserInfoResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/userinfo", accessToken, nil, nil)
	if err != nil {
		return nil, err
	}

	var info UserInfoResponse
	if err := decodeJSON(resp, &info, http.StatusOK); err != nil {
		return nil, err
	}
	return &info, nil
}
