package authsdk

import (
	"context"
	"time"
)

// AutoRefresh refreshes the access token ahead of expiry until ctx is done.
// Every interval, a token due to expire within the next interval is
// refreshed. If the provider rejects the refresh token the user is signed
// out locally and SIGNED_OUT is emitted.
func (a *Auth) AutoRefresh(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.refreshIfDue(ctx, interval)
		}
	}
}

func (a *Auth) refreshIfDue(ctx context.Context, window time.Duration) {
	s, _ := a.current()
	if s == nil {
		return
	}
	if time.Until(s.ExpiresAt()) > window {
		return
	}

	if err := s.Refresh(ctx); err != nil {
		if IsInvalidGrant(err) {
			a.expire(ctx, s)
			return
		}
		if ctx.Err() == nil {
			a.logger.Warn("token refresh failed, will retry", "error", err)
		}
	}
}
