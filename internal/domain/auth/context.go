package auth

import "context"

type contextKey string

const adminContextKey contextKey = "notebook/admin"

// WithAdmin returns a copy of ctx recording whether the request is authenticated as
// the administrator.
func WithAdmin(ctx context.Context, admin bool) context.Context {
	return context.WithValue(ctx, adminContextKey, admin)
}

// IsAdmin reports whether ctx was marked as belonging to the administrator.
func IsAdmin(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	admin, _ := ctx.Value(adminContextKey).(bool)
	return admin
}
