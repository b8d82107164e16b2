package authsdk

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/healthify/pkg/cryptox"
)

// PKCEChallenge holds the PKCE verifier and challenge pair.
// The verifier is kept secret by the client, and the challenge is sent to the authorization endpoint.
type PKCEChallenge struct {
	// Verifier is the random secret sent with the code exchange
	Verifier string

	// Challenge is the base64url-encoded SHA256 hash of the verifier (sent to server)
	Challenge string

	// Method is always "S256"
	Method string
}

// GeneratePKCEChallenge creates a new PKCE code verifier and challenge pair.
func GeneratePKCEChallenge() (*PKCEChallenge, error) {
	verifier, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PKCE verifier: %w", err)
	}

	hash := sha256.Sum256([]byte(verifier))
	return &PKCEChallenge{
		Verifier:  verifier,
		Challenge: base64.RawURLEncoding.EncodeToString(hash[:]),
		Method:    "S256",
	}, nil
}

// AuthorizeWithPassword posts credentials to the authorize endpoint and
// returns the authorization code. If MFA is required, returns *MFARequiredError.
func (c *SDKClient) AuthorizeWithPassword(
	ctx context.Context,
	clientID, redirectURI, username, password string,
	scopes []string,
	pkce *PKCEChallenge,
) (string, error) {
	data := authorizeForm(clientID, redirectURI, scopes, pkce)
	data.Set("username", username)
	data.Set("password", password)
	return c.authorize(ctx, data)
}

// AuthorizeWithPasswordAndMFA completes authorization with an MFA code.
// Use this after receiving an *MFARequiredError from AuthorizeWithPassword.
func (c *SDKClient) AuthorizeWithPasswordAndMFA(
	ctx context.Context,
	clientID, redirectURI string,
	mfaErr *MFARequiredError,
	method, code string,
	scopes []string,
	pkce *PKCEChallenge,
) (string, error) {
	if mfaErr == nil || mfaErr.MFAToken == "" {
		return "", errors.New("authsdk: missing MFA token")
	}

	data := authorizeForm(clientID, redirectURI, scopes, pkce)
	data.Set("mfa_token", mfaErr.MFAToken)
	data.Set("mfa_method", method)
	data.Set("mfa_code", code)
	return c.authorize(ctx, data)
}

func authorizeForm(clientID, redirectURI string, scopes []string, pkce *PKCEChallenge) url.Values {
	data := url.Values{
		"response_type": {"code"},
		"client_id":     {clientID},
		"redirect_uri":  {redirectURI},
	}
	if len(scopes) > 0 {
		data.Set("scope", strings.Join(scopes, " "))
	}
	if pkce != nil {
		data.Set("code_challenge", pkce.Challenge)
		data.Set("code_challenge_method", pkce.Method)
	}
	return data
}

// authorize posts to /v1/oauth2/authorize without following the redirect and
// pulls the code out of Location.
func (c *SDKClient) authorize(ctx context.Context, data url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/v1/oauth2/authorize"), strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.noRedirectClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusFound {
		return "", parseErrorResponse(resp, body)
	}

	return codeFromRedirect(resp.Header.Get("Location"))
}

func codeFromRedirect(location string) (string, error) {
	if location == "" {
		return "", errors.New("redirect response missing Location header")
	}

	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("failed to parse redirect URL: %w", err)
	}

	q := u.Query()
	if code := q.Get("code"); code != "" {
		return code, nil
	}
	if errCode := q.Get("error"); errCode != "" {
		return "", &OAuth2Error{StatusCode: http.StatusFound, Code: errCode, Description: q.Get("error_description")}
	}
	return "", errors.New("redirect missing authorization code")
}
