package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/healthify/internal/healthify/session"
	"github.com/aussiebroadwan/healthify/pkg/authsdk"
	"github.com/aussiebroadwan/healthify/pkg/httpx"
	"github.com/aussiebroadwan/healthify/pkg/slogx"
)

// SessionHandler exposes the session state and the login flow. Sign-in goes
// through Auth; the Manager picks the change up from Auth's events.
type SessionHandler struct {
	Manager *session.Manager
	Auth    *authsdk.Auth
}

// HandleGet returns the current session state.
//
//	@Summary		Current session
//	@Description	Returns readiness and the signed-in user. Before the stored session is resolved is_ready is false and user is null.
//	@Tags			Session
//	@Produce		json
//	@Success		200	{object}	SessionResponse
//	@Router			/v1/session [get].
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, sessionResponse(h.Manager.State()))
}

// HandleLogin signs in with username and password.
//
//	@Summary		Sign in
//	@Description	Runs the password login against the identity provider. Accounts with a second factor get 409 with an mfa_token for POST /v1/session/mfa.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginRequest			true	"Credentials"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	httpx.ErrorResponse		"Missing username or password"
//	@Failure		401		{object}	httpx.ErrorResponse		"Invalid credentials"
//	@Failure		409		{object}	MFARequiredResponse		"Second factor required"
//	@Failure		502		{object}	httpx.ErrorResponse		"Identity provider unavailable"
//	@Router			/v1/session/login [post].
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, errCodeInvalidRequest, "username and password are required")
		return
	}

	_, err := h.Auth.SignInWithPassword(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeAuthError(w, r, err, http.StatusUnauthorized)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sessionResponse(h.Manager.State()))
}

// HandleSignup creates an account from an invite and signs it in.
//
//	@Summary		Sign up
//	@Description	Redeems an invite token with the identity provider, then signs the new account in. The profile row is created on sign-in.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Param			request	body		SignupRequest		true	"Invite token and credentials"
//	@Success		201		{object}	SessionResponse
//	@Failure		400		{object}	httpx.ErrorResponse	"Missing fields, invalid invite or username taken"
//	@Failure		502		{object}	httpx.ErrorResponse	"Identity provider unavailable"
//	@Router			/v1/session/signup [post].
func (h *SessionHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	req.InviteToken = strings.TrimSpace(req.InviteToken)
	req.Username = strings.TrimSpace(req.Username)
	if req.InviteToken == "" || req.Username == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, errCodeInvalidRequest, "invite_token, username and password are required")
		return
	}

	if _, err := h.Auth.SignUp(r.Context(), req.InviteToken, req.Username, req.Password); err != nil {
		h.writeAuthError(w, r, err, http.StatusBadRequest)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, sessionResponse(h.Manager.State()))
}

// HandleMFA completes a login that answered 409.
//
//	@Summary		Complete MFA
//	@Description	Submits the second factor for a pending login.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Param			request	body		MFARequest			true	"MFA token, method and code"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	httpx.ErrorResponse	"Missing fields"
//	@Failure		401		{object}	httpx.ErrorResponse	"Invalid code or expired MFA token"
//	@Failure		502		{object}	httpx.ErrorResponse	"Identity provider unavailable"
//	@Router			/v1/session/mfa [post].
func (h *SessionHandler) HandleMFA(w http.ResponseWriter, r *http.Request) {
	var req MFARequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if req.MFAToken == "" || req.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, errCodeInvalidRequest, "mfa_token and code are required")
		return
	}
	if req.Method == "" {
		req.Method = "totp"
	}

	pending := &authsdk.MFARequiredError{MFAToken: req.MFAToken, Methods: []string{req.Method}}
	if _, err := h.Auth.CompleteMFA(r.Context(), pending, req.Method, strings.TrimSpace(req.Code)); err != nil {
		h.writeAuthError(w, r, err, http.StatusUnauthorized)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sessionResponse(h.Manager.State()))
}

// HandleLogout ends the session. It always succeeds; a failed revocation is
// logged by the Manager and local state is cleared anyway.
//
//	@Summary		Sign out
//	@Tags			Session
//	@Success		204
//	@Router			/v1/session/logout [post].
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	_ = h.Manager.LogOut(r.Context())
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// writeAuthError maps a provider failure. Requests the provider rejected
// answer with rejected.
func (h *SessionHandler) writeAuthError(w http.ResponseWriter, r *http.Request, err error, rejected int) {
	var mfaErr *authsdk.MFARequiredError
	if errors.As(err, &mfaErr) {
		httpx.WriteJSON(w, http.StatusConflict, MFARequiredResponse{
			Error:      authsdk.ErrorCodeMFARequired,
			MFAToken:   mfaErr.MFAToken,
			MFAMethods: mfaErr.Methods,
		})
		return
	}

	var oauthErr *authsdk.OAuth2Error
	if errors.As(err, &oauthErr) && oauthErr.StatusCode >= 400 && oauthErr.StatusCode < 500 {
		httpx.WriteError(w, rejected, oauthErr.Code, oauthErr.Description)
		return
	}

	slogx.FromContext(r.Context()).Warn("identity provider call failed", "err", err)
	httpx.WriteError(w, http.StatusBadGateway, errCodeServerError, "Identity provider unavailable")
}
