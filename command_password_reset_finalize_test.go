package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-service-auth"
)

func TestFinalizePasswordResetHandlerEmitsActivity(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "owner@example.com")
	ctx := context.Background()

	require.NoError(t, env.accounts.InitializePasswordResetHandler().Execute(ctx, auth.InitializePasswordResetMessage{
		Email: "Owner@Example.com",
	}))
	env.accounts.Wait()
	secret := env.notifier.lastSecret(t, "SendPasswordReset")

	err := env.accounts.FinalizePasswordResetHandler().Execute(ctx, auth.FinalizePasswordResetMessage{
		Secret:   secret,
		Password: "password12345",
	})
	require.NoError(t, err)
	env.accounts.Wait()

	assert.Contains(t, env.activity.types(), auth.ActivityEventPasswordResetRequested)
	assert.Contains(t, env.activity.types(), auth.ActivityEventPasswordResetSuccess)
	env.notifier.AssertCalled(t, "SendResetConfirmation", "owner@example.com")
}

func TestFinalizePasswordResetHandlerUnknownSecret(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "owner@example.com")

	err := env.accounts.FinalizePasswordResetHandler().Execute(context.Background(), auth.FinalizePasswordResetMessage{
		Secret:   "0000",
		Password: "password12345",
	})
	require.ErrorIs(t, err, auth.ErrUnknownSecret)
	assert.NotContains(t, env.activity.types(), auth.ActivityEventPasswordResetSuccess)
	env.notifier.AssertNotCalled(t, "SendResetConfirmation", "owner@example.com")
}

func TestFinalizePasswordResetMessageType(t *testing.T) {
	assert.Equal(t, "account.password_reset.finalize", auth.FinalizePasswordResetMessage{}.Type())
	assert.Equal(t, "account.password_reset", auth.InitializePasswordResetMessage{}.Type())
}
