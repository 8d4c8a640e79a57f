package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-service-auth"
)

type userDirectory map[string]*auth.User

func (d userDirectory) FindByID(_ context.Context, id string) (*auth.User, error) {
	if u, ok := d[id]; ok {
		return u, nil
	}
	return nil, auth.ErrNotFound
}

func TestSessionResolver(t *testing.T) {
	clock := newTestClock()
	tokens := newTokenService(t, auth.TokenConfig{Expiration: time.Hour}, clock)
	user := newTestUser(auth.RoleCustomer)
	user.Email = "Owner@Example.com"
	users := userDirectory{user.ID.String(): user}
	resolver := auth.NewSessionResolver(tokens, users)
	ctx := context.Background()

	token, _, err := tokens.Issue(user)
	require.NoError(t, err)

	t.Run("valid session", func(t *testing.T) {
		p, claims := resolver.ResolveClaims(ctx, token)
		identity, ok := auth.AsIdentity(p)
		require.True(t, ok)
		assert.Equal(t, user.ID, identity.ID)
		assert.Equal(t, "owner@example.com", identity.Email)
		assert.Equal(t, auth.RoleCustomer, identity.Role)
		require.NotNil(t, claims)
		assert.Equal(t, user.ID.String(), claims.UserID())
	})

	t.Run("missing credential", func(t *testing.T) {
		p := resolver.Resolve(ctx, "  ")
		anon, ok := p.(auth.Anonymous)
		require.True(t, ok)
		assert.ErrorIs(t, anon.Reason, auth.ErrUnauthenticated)
	})

	t.Run("malformed credential", func(t *testing.T) {
		p := resolver.Resolve(ctx, "garbage")
		assert.False(t, p.IsAuthenticated())
	})

	t.Run("unknown user", func(t *testing.T) {
		ghost := newTestUser(auth.RoleAdmin)
		ghostToken, _, err := tokens.Issue(ghost)
		require.NoError(t, err)

		p, claims := resolver.ResolveClaims(ctx, ghostToken)
		assert.False(t, p.IsAuthenticated())
		assert.Nil(t, claims)
	})

	t.Run("revoked by epoch bump", func(t *testing.T) {
		bumped := *user
		bumped.SessionEpoch++
		revoked := auth.NewSessionResolver(tokens, userDirectory{user.ID.String(): &bumped})

		p := revoked.Resolve(ctx, token)
		anon, ok := p.(auth.Anonymous)
		require.True(t, ok)
		assert.ErrorIs(t, anon.Reason, auth.ErrInvalidSession)
	})

	t.Run("expired", func(t *testing.T) {
		expiring := newTokenService(t, auth.TokenConfig{Expiration: time.Minute}, clock)
		short, _, err := expiring.Issue(user)
		require.NoError(t, err)

		clock.Advance(2 * time.Minute)

		p := auth.NewSessionResolver(expiring, users).Resolve(ctx, short)
		anon, ok := p.(auth.Anonymous)
		require.True(t, ok)
		assert.ErrorIs(t, anon.Reason, auth.ErrExpiredSession)
	})
}
