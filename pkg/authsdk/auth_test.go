package authsdk_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/healthify/pkg/authsdk"
	"github.com/aussiebroadwan/healthify/pkg/authsdk/authsdktest"
	"github.com/aussiebroadwan/healthify/pkg/jwtx"
	"github.com/aussiebroadwan/healthify/pkg/slogx"
)

const redirectURI = "http://localhost:8080/callback"

type recorded struct {
	event authsdk.AuthChangeEvent
	user  *authsdk.User
}

type eventLog struct {
	mu     sync.Mutex
	events []recorded
}

func (l *eventLog) record(event authsdk.AuthChangeEvent, user *authsdk.User) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, recorded{event: event, user: user})
}

func (l *eventLog) names() []authsdk.AuthChangeEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]authsdk.AuthChangeEvent, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.event)
	}
	return out
}

func (l *eventLog) last() recorded {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events[len(l.events)-1]
}

func newAuth(t *testing.T, srv *authsdktest.Server, storage authsdk.TokenStorage) (*authsdk.Auth, *eventLog) {
	t.Helper()

	a := authsdk.NewAuth(authsdk.NewSDKClient(srv.URL), authsdk.Config{
		ClientID:    authsdktest.ClientID,
		RedirectURI: redirectURI,
		Scopes:      []string{"profile:read"},
		Storage:     storage,
		Logger:      slogx.Discard(),
	})

	log := &eventLog{}
	sub := a.OnAuthStateChange(log.record)
	t.Cleanup(sub.Unsubscribe)
	return a, log
}

func TestAuth_SignInWithPassword(t *testing.T) {
	srv := authsdktest.NewServer(t)
	id := srv.AddUser("alice", "hunter22", "Alice")
	storage := &authsdk.MemoryStorage{}
	a, log := newAuth(t, srv, storage)

	user, err := a.SignInWithPassword(context.Background(), "alice", "hunter22")
	require.NoError(t, err)
	require.Equal(t, id, user.ID)
	require.Equal(t, "alice", user.Username)
	require.Equal(t, "Alice", user.PreferredName)
	require.Equal(t, []string{"profile:read"}, user.Scopes)

	require.Equal(t, []authsdk.AuthChangeEvent{authsdk.EventSignedIn}, log.names())
	require.Equal(t, id, log.last().user.ID)

	stored, err := storage.LoadToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, authsdktest.ClientID, stored.ClientID)
	require.NotEmpty(t, stored.RefreshToken)

	tok, err := a.AccessToken(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, tok)
}

func TestAuth_SignInWithPassword_BadCredentials(t *testing.T) {
	srv := authsdktest.NewServer(t)
	srv.AddUser("alice", "hunter22", "Alice")
	a, log := newAuth(t, srv, nil)

	_, err := a.SignInWithPassword(context.Background(), "alice", "wrong")
	require.Error(t, err)
	require.True(t, authsdk.IsInvalidGrant(err))

	require.Nil(t, a.User())
	require.Empty(t, log.names())

	_, err = a.AccessToken(context.Background())
	require.ErrorIs(t, err, authsdk.ErrNotSignedIn)
}

func TestAuth_SignInWithVerifier(t *testing.T) {
	srv := authsdktest.NewServer(t)
	id := srv.AddUser("bob", "pw", "Bobby")

	client := authsdk.NewSDKClient(srv.URL)
	jwks, err := client.GetJWKS(context.Background())
	require.NoError(t, err)

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.ResetFromJWKS(jwtx.JWKS(*jwks)))

	a := authsdk.NewAuth(client, authsdk.Config{
		ClientID:    authsdktest.ClientID,
		RedirectURI: redirectURI,
		Scopes:      []string{"profile:read", "profile:write"},
		Verifier: jwtx.NewKeySetVerifier(keys, jwtx.VerifyOptions{
			Issuer:   srv.Issuer(),
			Audience: []string{authsdktest.Audience},
			Leeway:   5 * time.Second,
		}),
		Logger: slogx.Discard(),
	})

	user, err := a.SignInWithPassword(context.Background(), "bob", "pw")
	require.NoError(t, err)
	require.Equal(t, id, user.ID)
	require.Equal(t, "Bobby", user.PreferredName)
	require.ElementsMatch(t, []string{"profile:read", "profile:write"}, user.Scopes)
}

func TestAuth_SignUp(t *testing.T) {
	srv := authsdktest.NewServer(t)
	invite := srv.MintInvite(false)
	storage := &authsdk.MemoryStorage{}
	a, log := newAuth(t, srv, storage)

	user, err := a.SignUp(context.Background(), invite, "kate", "pw")
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	require.Equal(t, "kate", user.Username)
	require.Equal(t, []authsdk.AuthChangeEvent{authsdk.EventSignedIn}, log.names())

	_, err = storage.LoadToken(context.Background())
	require.NoError(t, err)

	t.Run("invite already used", func(t *testing.T) {
		other, _ := newAuth(t, srv, nil)
		_, err := other.SignUp(context.Background(), invite, "liam", "pw")

		var oe *authsdk.OAuth2Error
		require.True(t, errors.As(err, &oe))
		require.Equal(t, authsdk.ErrorCodeInvalidGrant, oe.Code)
		require.False(t, srv.UserExists("liam"))
		require.Nil(t, other.User())
	})

	t.Run("unknown invite", func(t *testing.T) {
		other, _ := newAuth(t, srv, nil)
		_, err := other.SignUp(context.Background(), "not-an-invite", "mia", "pw")
		require.True(t, authsdk.IsInvalidGrant(err))
	})

	t.Run("reusable invite", func(t *testing.T) {
		shared := srv.MintInvite(true)
		for _, name := range []string{"nora", "owen"} {
			other, _ := newAuth(t, srv, nil)
			u, err := other.SignUp(context.Background(), shared, name, "pw")
			require.NoError(t, err)
			require.Equal(t, name, u.Username)
		}
	})
}

func TestAuth_CompleteMFA(t *testing.T) {
	srv := authsdktest.NewServer(t)
	id := srv.AddUser("carol", "pw", "Carol")
	secret := srv.EnableTOTP(t, "carol")
	a, log := newAuth(t, srv, nil)

	_, err := a.SignInWithPassword(context.Background(), "carol", "pw")
	var mfaErr *authsdk.MFARequiredError
	require.True(t, errors.As(err, &mfaErr))
	require.Equal(t, []string{"totp"}, mfaErr.Methods)
	require.Nil(t, a.User())

	_, err = a.CompleteMFA(context.Background(), mfaErr, "totp", "000000x")
	require.True(t, authsdk.IsInvalidGrant(err))

	// The rejected attempt did not consume the MFA token.
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	user, err := a.CompleteMFA(context.Background(), mfaErr, "totp", code)
	require.NoError(t, err)
	require.Equal(t, id, user.ID)
	require.Equal(t, []authsdk.AuthChangeEvent{authsdk.EventSignedIn}, log.names())
}

func TestAuth_CurrentSession(t *testing.T) {
	t.Run("nothing stored", func(t *testing.T) {
		srv := authsdktest.NewServer(t)
		a, log := newAuth(t, srv, nil)

		user, err := a.CurrentSession(context.Background())
		require.NoError(t, err)
		require.Nil(t, user)
		require.Empty(t, log.names())
	})

	t.Run("restores from storage", func(t *testing.T) {
		srv := authsdktest.NewServer(t)
		id := srv.AddUser("dave", "pw", "Dave")
		storage := &authsdk.MemoryStorage{}
		seeded := srv.IssueRefreshToken("dave")
		require.NoError(t, storage.SaveToken(context.Background(), &authsdk.StoredToken{RefreshToken: seeded}))

		a, log := newAuth(t, srv, storage)

		user, err := a.CurrentSession(context.Background())
		require.NoError(t, err)
		require.NotNil(t, user)
		require.Equal(t, id, user.ID)
		require.Equal(t, []authsdk.AuthChangeEvent{authsdk.EventTokenRefreshed}, log.names())

		// Refresh tokens rotate, so the stored one must have been replaced.
		stored, err := storage.LoadToken(context.Background())
		require.NoError(t, err)
		require.NotEqual(t, seeded, stored.RefreshToken)
		require.Equal(t, authsdktest.ClientID, stored.ClientID)

		// A second call answers from memory.
		again, err := a.CurrentSession(context.Background())
		require.NoError(t, err)
		require.Equal(t, id, again.ID)
		require.Equal(t, 1, srv.Refreshes())
	})

	t.Run("rejected token is discarded", func(t *testing.T) {
		srv := authsdktest.NewServer(t)
		storage := &authsdk.MemoryStorage{}
		require.NoError(t, storage.SaveToken(context.Background(), &authsdk.StoredToken{RefreshToken: "stale"}))

		a, log := newAuth(t, srv, storage)

		user, err := a.CurrentSession(context.Background())
		require.NoError(t, err)
		require.Nil(t, user)
		require.Empty(t, log.names())

		_, err = storage.LoadToken(context.Background())
		require.ErrorIs(t, err, authsdk.ErrNoToken)
	})

	t.Run("provider unreachable", func(t *testing.T) {
		srv := authsdktest.NewServer(t)
		storage := &authsdk.MemoryStorage{}
		require.NoError(t, storage.SaveToken(context.Background(), &authsdk.StoredToken{RefreshToken: "whatever"}))

		a, _ := newAuth(t, srv, storage)
		srv.Close()

		_, err := a.CurrentSession(context.Background())
		require.Error(t, err)

		// A transport failure keeps the stored token for the next attempt.
		_, err = storage.LoadToken(context.Background())
		require.NoError(t, err)
	})
}

func TestAuth_SignOut(t *testing.T) {
	srv := authsdktest.NewServer(t)
	srv.AddUser("erin", "pw", "Erin")
	storage := &authsdk.MemoryStorage{}
	a, log := newAuth(t, srv, storage)

	_, err := a.SignInWithPassword(context.Background(), "erin", "pw")
	require.NoError(t, err)
	require.Equal(t, 1, srv.ActiveRefreshTokens())

	require.NoError(t, a.SignOut(context.Background()))
	require.Nil(t, a.User())
	require.Equal(t, 1, srv.RevokeCalls())
	require.Zero(t, srv.ActiveRefreshTokens())

	_, err = storage.LoadToken(context.Background())
	require.ErrorIs(t, err, authsdk.ErrNoToken)

	require.Equal(t, []authsdk.AuthChangeEvent{authsdk.EventSignedIn, authsdk.EventSignedOut}, log.names())
	require.Nil(t, log.last().user)
}

func TestAuth_SignOut_RevokeFails(t *testing.T) {
	srv := authsdktest.NewServer(t)
	srv.AddUser("frank", "pw", "Frank")
	storage := &authsdk.MemoryStorage{}
	a, log := newAuth(t, srv, storage)

	_, err := a.SignInWithPassword(context.Background(), "frank", "pw")
	require.NoError(t, err)

	srv.FailRevoke(true)
	err = a.SignOut(context.Background())
	require.Error(t, err)

	var oe *authsdk.OAuth2Error
	require.True(t, errors.As(err, &oe))
	require.Equal(t, authsdk.ErrorCodeServerError, oe.Code)

	// Local state is cleared regardless.
	require.Nil(t, a.User())
	_, err = storage.LoadToken(context.Background())
	require.ErrorIs(t, err, authsdk.ErrNoToken)
	require.Equal(t, authsdk.EventSignedOut, log.last().event)
}

func TestAuth_SignOut_RevokesUnrestoredToken(t *testing.T) {
	srv := authsdktest.NewServer(t)
	srv.AddUser("gina", "pw", "Gina")
	storage := &authsdk.MemoryStorage{}
	require.NoError(t, storage.SaveToken(context.Background(), &authsdk.StoredToken{
		RefreshToken: srv.IssueRefreshToken("gina"),
	}))

	a, _ := newAuth(t, srv, storage)

	require.NoError(t, a.SignOut(context.Background()))
	require.Equal(t, 1, srv.RevokeCalls())
	require.Zero(t, srv.ActiveRefreshTokens())
}

// gatedStorage holds the first SaveToken until release is closed.
type gatedStorage struct {
	authsdk.TokenStorage
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedStorage(inner authsdk.TokenStorage) *gatedStorage {
	return &gatedStorage{
		TokenStorage: inner,
		entered:      make(chan struct{}),
		release:      make(chan struct{}),
	}
}

func (g *gatedStorage) SaveToken(ctx context.Context, tok *authsdk.StoredToken) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.TokenStorage.SaveToken(ctx, tok)
}

func TestAuth_SignOutDuringRestore(t *testing.T) {
	srv := authsdktest.NewServer(t)
	srv.AddUser("dave", "pw", "Dave")
	inner := &authsdk.MemoryStorage{}
	require.NoError(t, inner.SaveToken(context.Background(), &authsdk.StoredToken{
		RefreshToken: srv.IssueRefreshToken("dave"),
	}))

	storage := newGatedStorage(inner)
	a, log := newAuth(t, srv, storage)

	type result struct {
		user *authsdk.User
		err  error
	}
	done := make(chan result, 1)
	go func() {
		user, err := a.CurrentSession(context.Background())
		done <- result{user, err}
	}()

	// The refresh grant has been answered and the rotated token is about
	// to be persisted.
	<-storage.entered

	require.NoError(t, a.SignOut(context.Background()))
	require.Equal(t, []authsdk.AuthChangeEvent{authsdk.EventSignedOut}, log.names())

	close(storage.release)
	res := <-done
	require.NoError(t, res.err)
	require.Nil(t, res.user)

	require.Nil(t, a.User())
	require.Equal(t, []authsdk.AuthChangeEvent{authsdk.EventSignedOut}, log.names())

	_, err := inner.LoadToken(context.Background())
	require.ErrorIs(t, err, authsdk.ErrNoToken)
	require.Zero(t, srv.ActiveRefreshTokens())

	_, err = a.AccessToken(context.Background())
	require.ErrorIs(t, err, authsdk.ErrNotSignedIn)
}

func TestAuth_AccessTokenRefreshesExpired(t *testing.T) {
	srv := authsdktest.NewServer(t)
	srv.AddUser("hank", "pw", "Hank")
	// At or under the expiry buffer every token is stale on arrival.
	srv.SetTokenTTL(30 * time.Second)
	a, log := newAuth(t, srv, nil)

	_, err := a.SignInWithPassword(context.Background(), "hank", "pw")
	require.NoError(t, err)

	tok, err := a.AccessToken(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	require.Equal(t, 1, srv.Refreshes())
	require.Equal(t, []authsdk.AuthChangeEvent{authsdk.EventSignedIn, authsdk.EventTokenRefreshed}, log.names())

	srv.RevokeAll()
	_, err = a.AccessToken(context.Background())
	require.True(t, authsdk.IsInvalidGrant(err))
	require.Nil(t, a.User())
	require.Equal(t, authsdk.EventSignedOut, log.last().event)
}

func TestAuth_AutoRefresh(t *testing.T) {
	srv := authsdktest.NewServer(t)
	srv.AddUser("iris", "pw", "Iris")
	srv.SetTokenTTL(30 * time.Second)
	storage := &authsdk.MemoryStorage{}
	a, log := newAuth(t, srv, storage)

	_, err := a.SignInWithPassword(context.Background(), "iris", "pw")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.AutoRefresh(ctx, 10*time.Millisecond)
	}()

	require.Eventually(t, func() bool { return srv.Refreshes() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.NotNil(t, a.User())

	srv.RevokeAll()
	require.Eventually(t, func() bool {
		return log.last().event == authsdk.EventSignedOut
	}, 2*time.Second, 5*time.Millisecond)
	require.Nil(t, a.User())

	_, err = storage.LoadToken(context.Background())
	require.ErrorIs(t, err, authsdk.ErrNoToken)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("AutoRefresh did not stop after cancel")
	}
}

func TestAuth_Unsubscribe(t *testing.T) {
	srv := authsdktest.NewServer(t)
	srv.AddUser("jack", "pw", "Jack")
	a := authsdk.NewAuth(authsdk.NewSDKClient(srv.URL), authsdk.Config{
		ClientID:    authsdktest.ClientID,
		RedirectURI: redirectURI,
		Logger:      slogx.Discard(),
	})

	log := &eventLog{}
	sub := a.OnAuthStateChange(log.record)
	sub.Unsubscribe()
	sub.Unsubscribe()

	_, err := a.SignInWithPassword(context.Background(), "jack", "pw")
	require.NoError(t, err)
	require.Empty(t, log.names())
}
