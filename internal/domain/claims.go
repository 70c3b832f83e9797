package domain

import "context"

// Claims is the authenticated capability attached to a request: which tenant
// the caller belongs to and what its key is allowed to do. It travels on the
// context from the auth layer down to the repositories; there is no global
// caller state.
type Claims struct {
	TenantID string
	APIKeyID string
	Role     Role
}

// CanWrite reports whether the claims permit mutating operations.
func (c Claims) CanWrite() bool {
	return c.Role == RoleService
}

// TenantScope returns the tenant id all reads must be restricted to.
// Service keys return "" meaning no restriction.
func (c Claims) TenantScope() string {
	if c.Role == RoleService {
		return ""
	}
	return c.TenantID
}

type contextKey string

const claimsContextKey contextKey = "claims"

// WithClaims returns a context carrying the given claims.
func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, c)
}

// ClaimsFromContext extracts the claims placed on the context by the auth
// layer. The second return is false when the context is unauthenticated.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsContextKey).(Claims)
	return c, ok
}
