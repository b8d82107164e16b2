// Package authsdktest provides an in-process identity provider speaking the
// subset of the OAuth2 API that authsdk uses. It is meant for tests.
package authsdktest

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"

	"github.com/aussiebroadwan/healthify/pkg/cryptox"
	"github.com/aussiebroadwan/healthify/pkg/idx"
	"github.com/aussiebroadwan/healthify/pkg/jwtx"
)

const (
	// ClientID is the only client the server accepts.
	ClientID = "healthify-test"
	// Audience is stamped on every access token.
	Audience = "healthify"

	keyID = "test-ed25519"
)

type user struct {
	id            string
	username      string
	password      string
	preferredName string
	totpSecret    string
}

type codeGrant struct {
	userID      string
	redirectURI string
	challenge   string
	scope       string
}

type mfaPending struct {
	userID string
}

type invite struct {
	reusable bool
	used     bool
}

// Server is a fake identity provider backed by httptest.
type Server struct {
	*httptest.Server

	pub  ed25519.PublicKey
	priv ed25519.PrivateKey

	mu          sync.Mutex
	tokenTTL    time.Duration
	users       map[string]*user // by username
	codes       map[string]codeGrant
	mfa         map[string]mfaPending
	refresh     map[string]string // refresh token -> user id
	invites     map[string]*invite
	revokeCalls int
	refreshes   int
	failRevoke  bool
}

// NewServer starts a Server and stops it when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	s := &Server{
		pub:      pub,
		priv:     priv,
		tokenTTL: 15 * time.Minute,
		users:    make(map[string]*user),
		codes:    make(map[string]codeGrant),
		mfa:      make(map[string]mfaPending),
		refresh:  make(map[string]string),
		invites:  make(map[string]*invite),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/oauth2/authorize", s.handleAuthorize)
	mux.HandleFunc("POST /v1/oauth2/token", s.handleToken)
	mux.HandleFunc("POST /v1/oauth2/revoke", s.handleRevoke)
	mux.HandleFunc("GET /v1/userinfo", s.handleUserInfo)
	mux.HandleFunc("POST /v1/invites/redeem", s.handleRedeemInvite)
	mux.HandleFunc("GET /.well-known/jwks.json", s.handleJWKS)
	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Issuer is the iss claim on issued tokens.
func (s *Server) Issuer() string { return s.URL }

// AddUser registers a user and returns its id.
func (s *Server) AddUser(username, password, preferredName string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := idx.New().String()
	s.users[username] = &user{id: id, username: username, password: password, preferredName: preferredName}
	return id
}

// EnableTOTP turns on TOTP for username and returns the shared secret.
func (s *Server) EnableTOTP(t testing.TB, username string) string {
	t.Helper()

	key, err := totp.Generate(totp.GenerateOpts{Issuer: "healthify-test", AccountName: username})
	if err != nil {
		t.Fatalf("generate totp: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username].totpSecret = key.Secret()
	return key.Secret()
}

// SetTokenTTL changes the access token lifetime for tokens issued from now on.
func (s *Server) SetTokenTTL(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenTTL = d
}

// FailRevoke makes the revoke endpoint answer 500.
func (s *Server) FailRevoke(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRevoke = fail
}

// RevokeAll invalidates every refresh token, like an admin-side sign out.
func (s *Server) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.refresh)
}

// RevokeCalls reports how many revoke requests were received.
func (s *Server) RevokeCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revokeCalls
}

// Refreshes reports how many refresh grants succeeded.
func (s *Server) Refreshes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshes
}

// ActiveRefreshTokens reports how many refresh tokens are still valid.
func (s *Server) ActiveRefreshTokens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.refresh)
}

// IssueRefreshToken mints a refresh token for username without a login,
// for seeding token storage.
func (s *Server) IssueRefreshToken(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok := randomToken()
	s.refresh[tok] = s.users[username].id
	return tok
}

// MintInvite returns an invite token for ClientID.
func (s *Server) MintInvite(reusable bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok := randomToken()
	s.invites[tok] = &invite{reusable: reusable}
	return tok
}

// UserExists reports whether username has an account.
func (s *Server) UserExists(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[username]
	return ok
}

func (s *Server) handleRedeemInvite(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid form body")
		return
	}

	token := r.PostForm.Get("invite_token")
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if token == "" || username == "" || password == "" || r.PostForm.Get("client_id") == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid invite redemption parameters")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invites[token]
	switch {
	case !ok:
		writeError(w, http.StatusBadRequest, "invalid_grant", "Invite token is invalid or expired")
		return
	case r.PostForm.Get("client_id") != ClientID:
		writeError(w, http.StatusBadRequest, "invalid_grant", "Invite was issued for a different client")
		return
	case inv.used && !inv.reusable:
		writeError(w, http.StatusBadRequest, "invalid_grant", "Invite has already been used")
		return
	}
	if _, taken := s.users[username]; taken {
		writeError(w, http.StatusBadRequest, "invalid_request", "Username is already taken")
		return
	}

	inv.used = true
	u := &user{id: idx.New().String(), username: username, password: password, preferredName: username}
	s.users[username] = u

	writeJSON(w, http.StatusOK, map[string]string{"user_id": u.id, "username": u.username})
}

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid form body")
		return
	}
	if r.PostForm.Get("client_id") != ClientID {
		writeError(w, http.StatusUnauthorized, "invalid_client", "unknown client")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	form := r.PostForm

	if mfaToken := form.Get("mfa_token"); mfaToken != "" {
		pending, ok := s.mfa[mfaToken]
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid_grant", "unknown mfa token")
			return
		}
		u := s.userByID(pending.userID)
		if form.Get("mfa_method") != "totp" || !totp.Validate(form.Get("mfa_code"), u.totpSecret) {
			writeError(w, http.StatusUnauthorized, "invalid_grant", "invalid MFA code")
			return
		}
		delete(s.mfa, mfaToken)
		s.redirectWithCode(w, u.id, form)
		return
	}

	u, ok := s.users[form.Get("username")]
	if !ok || u.password != form.Get("password") {
		writeError(w, http.StatusUnauthorized, "invalid_grant", "invalid credentials")
		return
	}

	if u.totpSecret != "" {
		tok := randomToken()
		s.mfa[tok] = mfaPending{userID: u.id}
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":             "mfa_required",
			"error_description": "Multi-factor authentication is required to complete this request",
			"mfa_token":         tok,
			"mfa_methods":       []string{"totp"},
		})
		return
	}

	s.redirectWithCode(w, u.id, form)
}

func (s *Server) redirectWithCode(w http.ResponseWriter, userID string, form url.Values) {
	code := randomToken()
	s.codes[code] = codeGrant{
		userID:      userID,
		redirectURI: form.Get("redirect_uri"),
		challenge:   form.Get("code_challenge"),
		scope:       form.Get("scope"),
	}

	target, err := url.Parse(form.Get("redirect_uri"))
	if err != nil || target.String() == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid redirect_uri")
		return
	}
	q := target.Query()
	q.Set("code", code)
	target.RawQuery = q.Encode()

	w.Header().Set("Location", target.String())
	w.WriteHeader(http.StatusFound)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid form body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	form := r.PostForm
	switch form.Get("grant_type") {
	case "authorization_code":
		grant, ok := s.codes[form.Get("code")]
		delete(s.codes, form.Get("code"))
		if !ok || grant.redirectURI != form.Get("redirect_uri") {
			writeError(w, http.StatusBadRequest, "invalid_grant", "invalid authorization code")
			return
		}
		sum := sha256.Sum256([]byte(form.Get("code_verifier")))
		if grant.challenge != base64.RawURLEncoding.EncodeToString(sum[:]) {
			writeError(w, http.StatusBadRequest, "invalid_grant", "PKCE verification failed")
			return
		}
		s.writeTokens(w, grant.userID, grant.scope)

	case "refresh_token":
		userID, ok := s.refresh[form.Get("refresh_token")]
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_grant", "refresh token is invalid or expired")
			return
		}
		delete(s.refresh, form.Get("refresh_token"))
		s.refreshes++
		s.writeTokens(w, userID, "profile:read")

	default:
		writeError(w, http.StatusBadRequest, "unsupported_grant_type", "grant type not supported")
	}
}

func (s *Server) writeTokens(w http.ResponseWriter, userID, scope string) {
	u := s.userByID(userID)
	now := time.Now()

	claims := jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.URL,
			Subject:   u.id,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			ID:        idx.New().String(),
		},
		Scopes:        strings.Fields(scope),
		AMR:           []string{"pwd"},
		Username:      u.username,
		PreferredName: u.preferredName,
	}
	if u.totpSecret != "" {
		claims.AMR = append(claims.AMR, "mfa")
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	tok.Header["kid"] = keyID
	access, err := tok.SignedString(s.priv)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	refresh := randomToken()
	s.refresh[refresh] = u.id

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "Bearer",
		"expires_in":    int(s.tokenTTL.Seconds()),
		"scope":         scope,
	})
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid form body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.revokeCalls++
	if s.failRevoke {
		writeError(w, http.StatusInternalServerError, "server_error", "revocation unavailable")
		return
	}
	delete(s.refresh, r.PostForm.Get("token"))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "missing bearer token")
		return
	}

	var claims jwtx.Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) { return s.pub, nil },
		jwt.WithValidMethods([]string{"EdDSA"}))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_token", "token verification failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"user_id":        claims.Subject,
		"username":       claims.Username,
		"preferred_name": claims.PreferredName,
		"role":           "user",
	})
}

func (s *Server) handleJWKS(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, jwtx.JWKS{Keys: []jwtx.JWK{jwtx.NewEd25519JWK(keyID, s.pub)}})
}

func (s *Server) userByID(id string) *user {
	for _, u := range s.users {
		if u.id == id {
			return u
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errCode, desc string) {
	writeJSON(w, code, map[string]string{"error": errCode, "error_description": desc})
}

func randomToken() string {
	tok, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		panic(err)
	}
	return tok
}
