package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-service-auth"
)

func newTestUser(role auth.Role) *auth.User {
	return &auth.User{
		ID:           uuid.New(),
		Email:        "user@example.com",
		Role:         role,
		SessionEpoch: 3,
	}
}

func newTokenService(t *testing.T, cfg auth.TokenConfig, clock *testClock) *auth.TokenService {
	t.Helper()
	if cfg.SigningKey == "" {
		cfg.SigningKey = testSigningKey
	}
	ts, err := auth.NewTokenService(cfg)
	require.NoError(t, err)
	return ts.WithClock(clock.Clock())
}

func TestNewTokenServiceRejectsShortKey(t *testing.T) {
	_, err := auth.NewTokenService(auth.TokenConfig{SigningKey: "too-short"})
	require.Error(t, err)

	_, err = auth.NewTokenService(auth.TokenConfig{})
	require.Error(t, err)
}

func TestTokenIssueAndValidate(t *testing.T) {
	clock := newTestClock()
	ts := newTokenService(t, auth.TokenConfig{Issuer: "authd", Audience: []string{"shop"}}, clock)
	user := newTestUser(auth.RoleAdmin)

	token, expiresAt, err := ts.Issue(user)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, clock.Now().Add(auth.DefaultSessionDuration), expiresAt)

	claims, err := ts.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID())
	assert.Equal(t, user.ID.String(), claims.Subject)
	assert.Equal(t, auth.RoleAdmin, claims.Role())
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, 3, claims.Epoch)
	assert.Equal(t, "authd", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, clock.Now().Equal(claims.IssuedAtTime()))
}

func TestTokenIDsAreUnique(t *testing.T) {
	ts := newTokenService(t, auth.TokenConfig{}, newTestClock())
	user := newTestUser(auth.RoleCustomer)

	first, _, err := ts.Issue(user)
	require.NoError(t, err)
	second, _, err := ts.Issue(user)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestTokenExpiry(t *testing.T) {
	clock := newTestClock()
	ts := newTokenService(t, auth.TokenConfig{Expiration: time.Hour}, clock)

	token, _, err := ts.Issue(newTestUser(auth.RoleCustomer))
	require.NoError(t, err)

	clock.Advance(59 * time.Minute)
	_, err = ts.Validate(token)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = ts.Validate(token)
	require.ErrorIs(t, err, auth.ErrExpiredSession)
}

func TestTokenValidateRejects(t *testing.T) {
	clock := newTestClock()
	ts := newTokenService(t, auth.TokenConfig{Issuer: "authd"}, clock)
	user := newTestUser(auth.RoleCustomer)

	other := newTokenService(t, auth.TokenConfig{SigningKey: "fedcba9876543210fedcba9876543210"}, clock)
	foreign, _, err := other.Issue(user)
	require.NoError(t, err)

	wrongIssuer := newTokenService(t, auth.TokenConfig{Issuer: "someone-else"}, clock)
	misissued, _, err := wrongIssuer.Issue(user)
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": user.ID.String(),
		"exp": clock.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	valid, _, err := ts.Issue(user)
	require.NoError(t, err)
	i := len(valid) - 10
	swap := byte('A')
	if valid[i] == swap {
		swap = 'B'
	}
	tampered := valid[:i] + string(swap) + valid[i+1:]

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not.a.token",
		"foreign key":  foreign,
		"wrong issuer": misissued,
		"alg none":     noneToken,
		"tampered":     tampered,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ts.Validate(raw)
			require.ErrorIs(t, err, auth.ErrInvalidSession)
		})
	}
}

func TestTokenKeyRotation(t *testing.T) {
	clock := newTestClock()
	oldKey := "old-signing-key-old-signing-key-0"
	newKey := "new-signing-key-new-signing-key-1"
	user := newTestUser(auth.RoleCustomer)

	before := newTokenService(t, auth.TokenConfig{SigningKey: oldKey, KeyID: "2024"}, clock)
	legacy, _, err := before.Issue(user)
	require.NoError(t, err)

	after := newTokenService(t, auth.TokenConfig{
		SigningKey:  newKey,
		KeyID:       "2025",
		RetiredKeys: map[string]string{"2024": oldKey},
	}, clock)

	claims, err := after.Validate(legacy)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID())

	fresh, _, err := after.Issue(user)
	require.NoError(t, err)
	_, err = after.Validate(fresh)
	require.NoError(t, err)

	dropped := newTokenService(t, auth.TokenConfig{SigningKey: newKey, KeyID: "2025"}, clock)
	_, err = dropped.Validate(legacy)
	require.ErrorIs(t, err, auth.ErrInvalidSession)
}

func TestSignClaimsRequiresClaims(t *testing.T) {
	ts := newTokenService(t, auth.TokenConfig{}, newTestClock())
	_, err := ts.SignClaims(nil)
	require.Error(t, err)

	_, _, err = ts.Issue(nil)
	require.Error(t, err)
}
