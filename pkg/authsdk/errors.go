package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// OAuth2 error codes per RFC 6749, plus the provider's MFA extension.
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeInvalidClient  = "invalid_client"
	ErrorCodeInvalidGrant   = "invalid_grant"
	ErrorCodeInvalidScope   = "invalid_scope"
	ErrorCodeServerError    = "server_error"
	ErrorCodeInvalidToken   = "invalid_token"
	ErrorCodeMFARequired    = "mfa_required"
	ErrorCodeAccessDenied   = "access_denied"
)

// ErrNotSignedIn is returned by operations that need a session when there is none.
var ErrNotSignedIn = errors.New("authsdk: not signed in")

// ErrSignedOutDuringSignIn is returned by a sign-in that completed after a
// concurrent SignOut. The new grant is revoked.
var ErrSignedOutDuringSignIn = errors.New("authsdk: signed out during sign-in")

// OAuth2Error represents a standard OAuth2 error response per RFC 6749.
type OAuth2Error struct {
	// StatusCode is the HTTP status code of the response
	StatusCode int `json:"-"`

	// Code is the OAuth2 error code (e.g., "invalid_request", "invalid_grant")
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`
}

// Error implements the error interface.
func (e *OAuth2Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// MFARequiredError is returned when MFA is required to complete authentication.
// The provider answers 409 Conflict with an mfa_token to continue the flow.
type MFARequiredError struct {
	// MFAToken is the token to use when submitting the MFA response
	MFAToken string `json:"mfa_token"`

	// Methods lists the available MFA methods (e.g., ["totp", "backup_codes"])
	Methods []string `json:"mfa_methods"`
}

// Error implements the error interface.
func (e *MFARequiredError) Error() string {
	return fmt.Sprintf("MFA required: available methods=%v", e.Methods)
}

// IsInvalidGrant reports whether err is an OAuth2 invalid_grant error, which
// means the refresh token or credentials are no longer accepted.
func IsInvalidGrant(err error) bool {
	var oe *OAuth2Error
	return errors.As(err, &oe) && oe.Code == ErrorCodeInvalidGrant
}

// parseErrorResponse turns a non-2xx response into a typed error.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusConflict {
		var mfa struct {
			Error      string   `json:"error"`
			MFAToken   string   `json:"mfa_token"`
			MFAMethods []string `json:"mfa_methods"`
		}
		if err := json.Unmarshal(body, &mfa); err == nil && mfa.Error == ErrorCodeMFARequired && mfa.MFAToken != "" {
			return &MFARequiredError{MFAToken: mfa.MFAToken, Methods: mfa.MFAMethods}
		}
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &OAuth2Error{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	return &OAuth2Error{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
