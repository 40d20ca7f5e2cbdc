package interceptors

import "context"

type contextKey struct{ name string }

var (
	userIDKey    = contextKey{"user_id"}
	sessionIDKey = contextKey{"session_id"}
	holderKey    = contextKey{"identity_holder"}
)

// identityHolder lets an outer interceptor see the identity resolved by an inner one.
type identityHolder struct {
	userID    string
	sessionID string
}

func withIdentityHolder(ctx context.Context) (context.Context, *identityHolder) {
	h := &identityHolder{}
	return context.WithValue(ctx, holderKey, h), h
}

// WithIdentity returns a context carrying the authenticated user_id and session_id.
// It also records them in the holder installed by LoggingUnary, if any.
func WithIdentity(ctx context.Context, userID, sessionID string) context.Context {
	if h, ok := ctx.Value(holderKey).(*identityHolder); ok {
		h.userID, h.sessionID = userID, sessionID
	}
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, sessionIDKey, sessionID)
	return ctx
}

// GetUserID returns the user_id from context and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	return v, ok
}

// GetSessionID returns the session_id from context and true if set; otherwise "", false.
func GetSessionID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(sessionIDKey).(string)
	return v, ok
}
