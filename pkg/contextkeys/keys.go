// Package contextkeys provides typed context keys shared across packages to
// avoid import cycles between middleware and handler packages.
package contextkeys

import "context"

// Key is the type used for all context keys in this module
type Key string

const (
	// SessionKey is the context key for the authenticated session
	SessionKey Key = "menuforge.session"
	// GuardKey is the context key for the resolved permission guard
	GuardKey Key = "menuforge.guard"
	// TenantKey is the context key for the resolved restaurant config
	TenantKey Key = "menuforge.tenant"
	// RequestIDKey is the context key for the request ID
	RequestIDKey Key = "menuforge.request_id"
	// UserIDKey is the context key for the authenticated user ID
	UserIDKey Key = "menuforge.user_id"
)

// WithValue stores a value under a typed key
func WithValue(ctx context.Context, key Key, value interface{}) context.Context {
	return context.WithValue(ctx, key, value)
}

// Value retrieves a value stored under a typed key
func Value(ctx context.Context, key Key) interface{} {
	return ctx.Value(key)
}
