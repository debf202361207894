package gosession

import "context"

type sessionContextKey struct{}

// WithSession attaches a session handle to ctx. The middleware package
// uses it to hand the request-scoped handle to downstream handlers.
func WithSession(ctx context.Context, h *Handle) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, h)
}

// SessionFromContext returns the session handle attached to ctx, if any.
func SessionFromContext(ctx context.Context) (*Handle, bool) {
	if ctx == nil {
		return nil, false
	}

	h, ok := ctx.Value(sessionContextKey{}).(*Handle)
	return h, ok
}
