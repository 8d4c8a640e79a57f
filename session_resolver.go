package auth

import (
	"context"
	"strings"
)

// SessionResolver turns a raw session credential into a Principal
type SessionResolver struct {
	tokens SessionValidator
	users  IdentityLookup
	logger Logger
}

func NewSessionResolver(tokens SessionValidator, users IdentityLookup) *SessionResolver {
	return &SessionResolver{
		tokens: tokens,
		users:  users,
		logger: defLogger{},
	}
}

func (r *SessionResolver) WithLogger(logger Logger) *SessionResolver {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Resolve never fails: any problem with the credential yields Anonymous
// and the caller decides whether anonymous access is allowed.
func (r *SessionResolver) Resolve(ctx context.Context, raw string) Principal {
	p, _ := r.ResolveClaims(ctx, raw)
	return p
}

// ResolveClaims is Resolve that also returns the validated claims
func (r *SessionResolver) ResolveClaims(ctx context.Context, raw string) (Principal, *SessionClaims) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Anonymous{Reason: ErrUnauthenticated}, nil
	}

	claims, err := r.tokens.Validate(raw)
	if err != nil {
		return Anonymous{Reason: err}, nil
	}

	user, err := r.users.FindByID(ctx, claims.UserID())
	if err != nil {
		r.logger.Debug("session user %s could not be loaded: %v", claims.UserID(), err)
		return Anonymous{Reason: ErrInvalidSession}, nil
	}

	if user.SessionEpoch != claims.Epoch {
		return Anonymous{Reason: ErrInvalidSession}, nil
	}

	return IdentityFromUser(user), claims
}
