package authsdk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/aussiebroadwan/healthify/pkg/jwtx"
)

// AuthChangeEvent names a session transition pushed to listeners.
type AuthChangeEvent string

const (
	EventSignedIn       AuthChangeEvent = "SIGNED_IN"
	EventSignedOut      AuthChangeEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthChangeEvent = "TOKEN_REFRESHED"
	EventUserUpdated    AuthChangeEvent = "USER_UPDATED"
)

// User is the signed-in identity as seen by Auth.
type User struct {
	ID            string
	Username      string
	PreferredName string
	Scopes        []string
}

func (u *User) clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Scopes = slices.Clone(u.Scopes)
	return &c
}

// Config configures Auth.
type Config struct {
	ClientID    string
	RedirectURI string
	Scopes      []string

	// Storage persists the refresh token. Defaults to MemoryStorage.
	Storage TokenStorage

	// Verifier, when set, derives the user from access-token claims.
	// Otherwise the provider's userinfo endpoint is called.
	Verifier jwtx.Verifier

	Logger *slog.Logger
}

// Auth is a long-lived client for one user's session with the identity
// provider. It persists its token, restores it on start, refreshes it and
// notifies listeners of every transition.
type Auth struct {
	client  *SDKClient
	cfg     Config
	storage TokenStorage
	logger  *slog.Logger

	mu      sync.RWMutex
	session *Session
	user    *User
	// signOuts counts sign-outs and expiries. A grant obtained before the
	// count moved is discarded instead of installed.
	signOuts uint64

	// emitMu orders installs and sign-outs with the events they emit.
	emitMu sync.Mutex

	// restoreMu single-flights CurrentSession's refresh grant.
	restoreMu sync.Mutex

	subsMu sync.Mutex
	subs   map[uint64]func(AuthChangeEvent, *User)
	nextID uint64
}

// NewAuth returns an Auth using client for the wire calls.
func NewAuth(client *SDKClient, cfg Config) *Auth {
	a := &Auth{
		client:  client,
		cfg:     cfg,
		storage: cfg.Storage,
		logger:  cfg.Logger,
		subs:    make(map[uint64]func(AuthChangeEvent, *User)),
	}
	if a.storage == nil {
		a.storage = &MemoryStorage{}
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// Client returns the underlying SDK client.
func (a *Auth) Client() *SDKClient { return a.client }

// User returns the signed-in user or nil.
func (a *Auth) User() *User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.user.clone()
}

func (a *Auth) current() (*Session, *User) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session, a.user.clone()
}

func (a *Auth) generation() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.signOuts
}

// CurrentSession returns the signed-in user. With no in-memory session it
// restores one from storage using the refresh grant and emits
// TOKEN_REFRESHED. It returns nil, nil when there is nothing to restore or
// the stored token was rejected.
func (a *Auth) CurrentSession(ctx context.Context) (*User, error) {
	if s, u := a.current(); s != nil {
		return u, nil
	}

	a.restoreMu.Lock()
	defer a.restoreMu.Unlock()

	if s, u := a.current(); s != nil {
		return u, nil
	}

	gen := a.generation()
	tok, err := a.storage.LoadToken(ctx)
	if errors.Is(err, ErrNoToken) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load stored token: %w", err)
	}

	clientID := tok.ClientID
	if clientID == "" {
		clientID = a.cfg.ClientID
	}

	resp, err := a.client.RefreshGrant(ctx, clientID, tok.RefreshToken)
	if err != nil {
		if IsInvalidGrant(err) {
			a.logger.Info("stored session rejected by provider, discarding")
			if derr := a.storage.DeleteToken(ctx); derr != nil {
				a.logger.Warn("failed to delete stored token", "error", derr)
			}
			return nil, nil
		}
		return nil, fmt.Errorf("restore session: %w", err)
	}

	user, err := a.establish(ctx, clientID, resp, EventTokenRefreshed, gen)
	if errors.Is(err, ErrSignedOutDuringSignIn) {
		return nil, nil
	}
	return user, err
}

// SignInWithPassword runs the PKCE authorization code flow with username
// and password. Returns *MFARequiredError when a second factor is needed;
// finish with CompleteMFA.
func (a *Auth) SignInWithPassword(ctx context.Context, username, password string) (*User, error) {
	gen := a.generation()
	pkce, err := GeneratePKCEChallenge()
	if err != nil {
		return nil, err
	}

	code, err := a.client.AuthorizeWithPassword(ctx, a.cfg.ClientID, a.cfg.RedirectURI, username, password, a.cfg.Scopes, pkce)
	if err != nil {
		return nil, err
	}
	return a.exchange(ctx, code, pkce, gen)
}

// SignUp creates an account by redeeming inviteToken for this client and
// then signs the new user in with the same credentials.
func (a *Auth) SignUp(ctx context.Context, inviteToken, username, password string) (*User, error) {
	created, err := a.client.RedeemInvite(ctx, RedeemInviteRequest{
		InviteToken: inviteToken,
		Username:    username,
		Password:    password,
		ClientID:    a.cfg.ClientID,
	})
	if err != nil {
		return nil, err
	}
	a.logger.Info("account created", "user_id", created.UserID)

	return a.SignInWithPassword(ctx, username, password)
}

// CompleteMFA finishes a sign-in that returned *MFARequiredError.
func (a *Auth) CompleteMFA(ctx context.Context, mfaErr *MFARequiredError, method, code string) (*User, error) {
	gen := a.generation()
	pkce, err := GeneratePKCEChallenge()
	if err != nil {
		return nil, err
	}

	authCode, err := a.client.AuthorizeWithPasswordAndMFA(ctx, a.cfg.ClientID, a.cfg.RedirectURI, mfaErr, method, code, a.cfg.Scopes, pkce)
	if err != nil {
		return nil, err
	}
	return a.exchange(ctx, authCode, pkce, gen)
}

func (a *Auth) exchange(ctx context.Context, code string, pkce *PKCEChallenge, gen uint64) (*User, error) {
	resp, err := a.client.ExchangeAuthorizationCode(ctx, a.cfg.ClientID, code, a.cfg.RedirectURI, pkce.Verifier)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return a.establish(ctx, a.cfg.ClientID, resp, EventSignedIn, gen)
}

// establish installs a new session, persists its refresh token and emits
// event. gen is the sign-out count observed before the grant was requested;
// if a sign-out happened since, the grant is revoked and
// ErrSignedOutDuringSignIn is returned.
func (a *Auth) establish(ctx context.Context, clientID string, resp *TokenResponse, event AuthChangeEvent, gen uint64) (*User, error) {
	s := newSession(a.client, clientID, resp)

	user, err := a.resolveUser(ctx, resp.AccessToken, s.Scopes())
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	s.onRefresh = func(r *TokenResponse) { a.refreshed(s, clientID, r) }

	a.persist(ctx, clientID, resp)

	a.emitMu.Lock()
	a.mu.Lock()
	live := a.signOuts == gen
	if live {
		a.session = s
		a.user = user
	}
	a.mu.Unlock()
	if live {
		a.emit(event, user)
	}
	a.emitMu.Unlock()

	if !live {
		a.discard(ctx, clientID, resp)
		return nil, ErrSignedOutDuringSignIn
	}
	return user.clone(), nil
}

// discard undoes a grant that lost to a sign-out: the token it persisted is
// removed and its refresh token revoked.
func (a *Auth) discard(ctx context.Context, clientID string, resp *TokenResponse) {
	a.logger.Info("signed out while a session was being established, discarding it")
	if resp.RefreshToken == "" {
		return
	}

	if tok, err := a.storage.LoadToken(ctx); err == nil && tok.RefreshToken == resp.RefreshToken {
		if err := a.storage.DeleteToken(ctx); err != nil {
			a.logger.Warn("failed to delete stored token", "error", err)
		}
	}
	if err := a.client.RevokeToken(context.WithoutCancel(ctx), clientID, resp.RefreshToken); err != nil {
		a.logger.Warn("failed to revoke discarded token", "error", err)
	}
}

func (a *Auth) resolveUser(ctx context.Context, accessToken string, scopes []string) (*User, error) {
	if a.cfg.Verifier != nil {
		claims, err := a.cfg.Verifier.Verify(accessToken)
		if err != nil {
			return nil, err
		}
		if len(claims.Scopes) > 0 {
			scopes = claims.Scopes
		}
		return &User{
			ID:            claims.Subject,
			Username:      claims.Username,
			PreferredName: claims.PreferredName,
			Scopes:        scopes,
		}, nil
	}

	info, err := a.client.GetUserInfo(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return &User{
		ID:            info.UserID,
		Username:      info.Username,
		PreferredName: info.PreferredName,
		Scopes:        scopes,
	}, nil
}

func (a *Auth) persist(ctx context.Context, clientID string, resp *TokenResponse) {
	if resp.RefreshToken == "" {
		return
	}
	err := a.storage.SaveToken(ctx, &StoredToken{
		ClientID:     clientID,
		RefreshToken: resp.RefreshToken,
		Scope:        resp.Scope,
	})
	if err != nil {
		a.logger.Warn("failed to persist token", "error", err)
	}
}

// refreshed runs inside Session.refreshLocked. Refreshes of a session that
// has since been replaced or signed out are ignored.
func (a *Auth) refreshed(s *Session, clientID string, resp *TokenResponse) {
	a.emitMu.Lock()
	defer a.emitMu.Unlock()

	a.mu.RLock()
	live := a.session == s
	user := a.user.clone()
	a.mu.RUnlock()
	if !live {
		return
	}

	a.persist(context.Background(), clientID, resp)
	a.emit(EventTokenRefreshed, user)
}

// AccessToken returns a valid access token for the signed-in user,
// refreshing it when expired. A rejected refresh signs the user out locally.
func (a *Auth) AccessToken(ctx context.Context) (string, error) {
	s, _ := a.current()
	if s == nil {
		return "", ErrNotSignedIn
	}

	tok, err := s.ValidToken(ctx)
	if err != nil {
		if IsInvalidGrant(err) {
			a.expire(ctx, s)
		}
		return "", err
	}
	return tok, nil
}

// SignOut revokes the refresh token, clears local and stored state and
// emits SIGNED_OUT. Local state is cleared even when revocation fails; the
// revocation error is returned.
func (a *Auth) SignOut(ctx context.Context) error {
	a.mu.Lock()
	s := a.session
	a.session = nil
	a.user = nil
	a.signOuts++
	a.mu.Unlock()

	var errs []error

	switch {
	case s != nil:
		if err := s.Revoke(ctx); err != nil {
			errs = append(errs, err)
		}
	default:
		// A stored token that was never restored is still a live grant.
		if tok, err := a.storage.LoadToken(ctx); err == nil && tok.RefreshToken != "" {
			clientID := tok.ClientID
			if clientID == "" {
				clientID = a.cfg.ClientID
			}
			if err := a.client.RevokeToken(ctx, clientID, tok.RefreshToken); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if err := a.storage.DeleteToken(ctx); err != nil {
		errs = append(errs, fmt.Errorf("delete stored token: %w", err))
	}

	a.emitMu.Lock()
	a.emit(EventSignedOut, nil)
	a.emitMu.Unlock()
	return errors.Join(errs...)
}

// expire drops s after the provider rejected its refresh token.
func (a *Auth) expire(ctx context.Context, s *Session) {
	a.mu.Lock()
	if a.session != s {
		a.mu.Unlock()
		return
	}
	a.session = nil
	a.user = nil
	a.signOuts++
	a.mu.Unlock()

	a.logger.Info("session expired, signing out locally")
	if err := a.storage.DeleteToken(ctx); err != nil {
		a.logger.Warn("failed to delete stored token", "error", err)
	}
	a.emitMu.Lock()
	a.emit(EventSignedOut, nil)
	a.emitMu.Unlock()
}

// Subscription is returned by OnAuthStateChange.
type Subscription struct {
	auth *Auth
	id   uint64
	once sync.Once
}

// Unsubscribe removes the listener. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.auth.subsMu.Lock()
		delete(s.auth.subs, s.id)
		s.auth.subsMu.Unlock()
	})
}

// OnAuthStateChange registers fn for every session transition. fn runs on
// the goroutine that caused the transition and must not call SignOut.
func (a *Auth) OnAuthStateChange(fn func(AuthChangeEvent, *User)) *Subscription {
	a.subsMu.Lock()
	defer a.subsMu.Unlock()

	a.nextID++
	a.subs[a.nextID] = fn
	return &Subscription{auth: a, id: a.nextID}
}

func (a *Auth) emit(event AuthChangeEvent, user *User) {
	a.subsMu.Lock()
	ids := make([]uint64, 0, len(a.subs))
	for id := range a.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(AuthChangeEvent, *User), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, a.subs[id])
	}
	a.subsMu.Unlock()

	a.logger.Debug("auth state change", "event", string(event))
	for _, fn := range fns {
		fn(event, user.clone())
	}
}
