package auth_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-service-auth"
)

func TestRole(t *testing.T) {
	assert.True(t, auth.RoleAdmin.IsAdmin())
	assert.False(t, auth.RoleCustomer.IsAdmin())
	assert.False(t, auth.Role("").IsAdmin())
}

func TestSecretPurposeValid(t *testing.T) {
	assert.True(t, auth.PurposeVerify.Valid())
	assert.True(t, auth.PurposeReset.Valid())
	assert.False(t, auth.SecretPurpose("invite").Valid())
}

func TestPendingSecretExpired(t *testing.T) {
	expiresAt := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
	s := &auth.PendingSecret{Value: "v", ExpiresAt: expiresAt}

	assert.False(t, s.Expired(expiresAt.Add(-time.Millisecond)))
	assert.True(t, s.Expired(expiresAt))
	assert.True(t, s.Expired(expiresAt.Add(time.Millisecond)))
}

func TestUserPendingSecrets(t *testing.T) {
	expiresAt := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
	u := &auth.User{
		Secrets: []*auth.UserSecret{
			nil,
			{Purpose: auth.PurposeReset, Value: "reset-value", ExpiresAt: expiresAt},
		},
	}

	assert.Nil(t, u.VerificationSecret())
	require.NotNil(t, u.ResetSecret())
	assert.Equal(t, "reset-value", u.ResetSecret().Value)
	assert.Equal(t, expiresAt, u.ResetSecret().ExpiresAt)
}

func TestUserJSONHidesCredentials(t *testing.T) {
	u := &auth.User{
		ID:           uuid.New(),
		Email:        "a@example.com",
		Name:         "A",
		PasswordHash: "$2a$10$secret",
		Role:         auth.RoleCustomer,
		SessionEpoch: 7,
		Secrets:      []*auth.UserSecret{{Purpose: auth.PurposeVerify, Value: "verify-value"}},
	}

	raw, err := json.Marshal(u)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "a@example.com", fields["email"])
	assert.Equal(t, "customer", fields["role"])
	assert.NotContains(t, fields, "password_hash")
	assert.NotContains(t, fields, "session_epoch")
	assert.NotContains(t, string(raw), "verify-value")
	assert.NotContains(t, string(raw), "$2a$")
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "bob@example.com", auth.NormalizeEmail("  Bob@Example.COM "))
	assert.Equal(t, "", auth.NormalizeEmail("   "))
}

func TestIdentityFromUser(t *testing.T) {
	u := &auth.User{ID: uuid.New(), Email: "Admin@Shop.test", Role: auth.RoleAdmin}
	identity := auth.IdentityFromUser(u)

	assert.Equal(t, u.ID, identity.ID)
	assert.Equal(t, "admin@shop.test", identity.Email)
	assert.True(t, identity.IsAdmin())
	assert.True(t, identity.IsAuthenticated())
	assert.False(t, auth.Anonymous{}.IsAuthenticated())
}
