package authsdk

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// RefreshGrant requests new tokens using a refresh token. The provider
// rotates refresh tokens, so the response carries a new one.
func (c *SDKClient) RefreshGrant(ctx context.Context, clientID, refreshToken string) (*TokenResponse, error) {
	return c.requestToken(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {clientID},
	})
}

// ExchangeAuthorizationCode trades an authorization code for tokens.
// codeVerifier is the PKCE verifier matching the challenge sent to authorize.
func (c *SDKClient) ExchangeAuthorizationCode(ctx context.Context, clientID, code, redirectURI, codeVerifier string) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":   {"authorization_code"},
		"client_id":    {clientID},
		"code":         {code},
		"redirect_uri": {redirectURI},
	}
	if codeVerifier != "" {
		data.Set("code_verifier", codeVerifier)
	}
	return c.requestToken(ctx, data)
}

// RevokeToken revokes a refresh token.
func (c *SDKClient) RevokeToken(ctx context.Context, clientID, token string) error {
	resp, err := c.postForm(ctx, "/v1/oauth2/revoke", url.Values{
		"token":     {token},
		"client_id": {clientID},
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("revoke: %w", parseErrorResponse(resp, body))
	}
	return nil
}

func (c *SDKClient) requestToken(ctx context.Context, data url.Values) (*TokenResponse, error) {
	resp, err := c.postForm(ctx, "/v1/oauth2/token", data)
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := decodeJSON(resp, &tokenResp, http.StatusOK); err != nil {
		return nil, err
	}
	return &tokenResp, nil
}
