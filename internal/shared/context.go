package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession binds the session to the request context. The
// session middleware installs it once per request; everything downstream
// reads it back rather than reloading from Redis.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext returns the bound session, nil when the middleware
// did not run.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}
