// Package auth identifies the caller of an operation. Identity is issued by
// an external provider; this package only verifies HS256 bearer tokens and
// carries the resulting Principal through a context.
package auth

import "context"

// Principal is the authenticated caller. The zero value is anonymous.
type Principal struct {
	UserID string
}

// IsZero reports whether p carries no identity.
func (p Principal) IsZero() bool {
	return p.UserID == ""
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored in ctx, if any.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok || p.IsZero() {
		return Principal{}, false
	}
	return p, true
}
