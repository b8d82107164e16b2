// Package identity adapts the authsdk client to the session package.
package identity

import (
	"context"

	"github.com/aussiebroadwan/healthify/internal/healthify/session"
	"github.com/aussiebroadwan/healthify/pkg/authsdk"
)

// Provider implements session.Provider on top of an authsdk.Auth.
type Provider struct {
	auth *authsdk.Auth
}

var _ session.Provider = (*Provider)(nil)

// NewProvider wraps auth.
func NewProvider(auth *authsdk.Auth) *Provider {
	return &Provider{auth: auth}
}

// Auth returns the wrapped client.
func (p *Provider) Auth() *authsdk.Auth { return p.auth }

func (p *Provider) CurrentSession(ctx context.Context) (*session.User, error) {
	u, err := p.auth.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	return toSessionUser(u), nil
}

func (p *Provider) OnSessionChange(fn func(session.Event, *session.User)) session.Subscription {
	return p.auth.OnAuthStateChange(func(ev authsdk.AuthChangeEvent, u *authsdk.User) {
		fn(toSessionEvent(ev), toSessionUser(u))
	})
}

func (p *Provider) SignOut(ctx context.Context) error {
	return p.auth.SignOut(ctx)
}

func toSessionEvent(ev authsdk.AuthChangeEvent) session.Event {
	switch ev {
	case authsdk.EventSignedIn:
		return session.EventSignedIn
	case authsdk.EventSignedOut:
		return session.EventSignedOut
	case authsdk.EventTokenRefreshed:
		return session.EventTokenRefreshed
	case authsdk.EventUserUpdated:
		return session.EventUserUpdated
	default:
		return session.Event(ev)
	}
}

func toSessionUser(u *authsdk.User) *session.User {
	if u == nil {
		return nil
	}
	return &session.User{
		ID:            u.ID,
		Username:      u.Username,
		PreferredName: u.PreferredName,
		Scopes:        append([]string(nil), u.Scopes...),
	}
}
