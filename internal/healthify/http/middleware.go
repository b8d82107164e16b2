package http

import (
	"net/http"

	"github.com/aussiebroadwan/healthify/internal/healthify/session"
	"github.com/aussiebroadwan/healthify/pkg/httpx"
	"github.com/aussiebroadwan/healthify/pkg/slogx"
)

// RequireSession gates a handler on the Manager's state. It answers 503
// while the initial lookup is unresolved and 401 once resolved with nobody
// signed in. Otherwise the user id is stored on the request context.
func RequireSession(mgr *session.Manager) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := mgr.State()
			if !st.IsReady {
				w.Header().Set("Retry-After", "1")
				httpx.WriteError(w, http.StatusServiceUnavailable, errCodeNotReady, "Session is still being restored")
				return
			}
			if st.User == nil {
				httpx.WriteError(w, http.StatusUnauthorized, errCodeUnauthorized, "Sign in required")
				return
			}

			ctx := httpx.WithUserID(r.Context(), st.User.ID)
			ctx = slogx.WithUserID(ctx, st.User.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func userID(r *http.Request) string {
	id, _ := httpx.UserIDFromContext(r.Context())
	return id
}
