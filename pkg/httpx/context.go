package httpx

import "context"

type ctxKey string

const ctxKeyUserID ctxKey = "user_id"

// WithUserID stores the authenticated user id on ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, userID)
}

// UserIDFromContext returns the user id set by WithUserID.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKeyUserID).(string)
	return id, ok && id != ""
}
