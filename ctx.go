package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

var principalCtxKey = &contextKey{"principal"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithPrincipal sets the Principal in the given context
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, p)
}

// PrincipalFromContext returns the request principal. Missing values
// resolve to Anonymous.
func PrincipalFromContext(ctx context.Context) Principal {
	if ctx == nil {
		return Anonymous{Reason: ErrUnauthenticated}
	}
	if p, ok := ctx.Value(principalCtxKey).(Principal); ok && p != nil {
		return p
	}
	return Anonymous{Reason: ErrUnauthenticated}
}

// PrincipalFromRouter reads the principal stored by the session middleware
func PrincipalFromRouter(c router.Context) Principal {
	return PrincipalFromContext(c.Context())
}

// WithClaimsContext sets the session claims in the given context
func WithClaimsContext(ctx context.Context, claims *SessionClaims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

// GetClaims extracts the session claims from the standard context
func GetClaims(ctx context.Context) (*SessionClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*SessionClaims)
	return raw, ok && raw != nil
}
