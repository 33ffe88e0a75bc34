package middleware

import "context"

type principalContextKey struct{}

// WithPrincipal stores the authenticated, normalised principal on ctx.
func WithPrincipal(ctx context.Context, principal string) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// PrincipalFromContext returns the principal set by the authentication
// middleware.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	p, ok := ctx.Value(principalContextKey{}).(string)
	return p, ok && p != ""
}
