package session

import (
	"context"
	"encoding/json"
)

// CacheKey is the single key the Manager uses for the cached session snapshot.
const CacheKey = "auth-key"

// User is the identity record the Manager tracks. Only ID is relied upon,
// the rest is carried through for the presentation layer.
type User struct {
	ID            string   `json:"id"`
	Username      string   `json:"username,omitempty"`
	PreferredName string   `json:"preferred_name,omitempty"`
	Scopes        []string `json:"scopes,omitempty"`
}

// Clone returns a deep copy so callers never share the Manager's record.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Scopes != nil {
		c.Scopes = append([]string(nil), u.Scopes...)
	}
	return &c
}

// State is a point-in-time snapshot of the session.
type State struct {
	User    *User `json:"user"`
	IsReady bool  `json:"is_ready"`
}

// SignedIn reports whether the state is ready and has a user.
func (s State) SignedIn() bool { return s.IsReady && s.User != nil }

// Event names a provider-pushed session change.
type Event string

const (
	EventInitialSession  Event = "INITIAL_SESSION"
	EventSignedIn        Event = "SIGNED_IN"
	EventSignedOut       Event = "SIGNED_OUT"
	EventTokenRefreshed  Event = "TOKEN_REFRESHED"
	EventUserUpdated     Event = "USER_UPDATED"
	EventPasswordRecover Event = "PASSWORD_RECOVERY"
)

// Subscription is a handle for a registered change listener.
// Unsubscribe must be idempotent and safe to call during teardown.
type Subscription interface {
	Unsubscribe()
}

// Provider is the identity/session provider the Manager mirrors.
type Provider interface {
	// CurrentSession resolves the existing session, nil when signed out.
	CurrentSession(ctx context.Context) (*User, error)

	// OnSessionChange registers a persistent listener for session changes.
	OnSessionChange(fn func(event Event, user *User)) Subscription

	// SignOut ends the session on the provider side.
	SignOut(ctx context.Context) error
}

// Cache is the local store holding the session snapshot. The Manager is its
// only writer and treats both operations as best effort.
type Cache interface {
	Put(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Recorder receives lifecycle observations, typically backed by metrics.
type Recorder interface {
	BootstrapResolved(signedIn bool, err error)
	SessionChanged(source string, signedIn bool)
	CacheFailed(op string)
	SignOutFailed()
}

type nopRecorder struct{}

func (nopRecorder) BootstrapResolved(bool, error) {}
func (nopRecorder) SessionChanged(string, bool)   {}
func (nopRecorder) CacheFailed(string)            {}
func (nopRecorder) SignOutFailed()                {}

func encodeUser(u *User) ([]byte, error) {
	return json.Marshal(u)
}

// DecodeUser parses a cached snapshot value.
func DecodeUser(b []byte) (*User, error) {
	var u User
	if err := json.Unmarshal(b, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
