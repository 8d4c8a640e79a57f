package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() BaseConfig {
	return BaseConfig{
		Auth: Auth{
			AdminEmail:     "admin@example.com",
			SigningKey:     "0123456789abcdef0123456789abcdef",
			SessionTTLExpr: "24h",
			ResetTTLExpr:   "30m",
		},
		Persistence: Persistence{
			Driver:                "sqlite",
			DSN:                   "file::memory:",
			PingTimeoutExpression: "5s",
		},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cfg := validConfig()
	cfg.Auth.SigningKey = "short"
	require.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Persistence.Driver = "mysql"
	require.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Auth.ResetTTLExpr = "soon"
	require.Error(t, cfg.Validate())
}

func TestDurations(t *testing.T) {
	cfg := validConfig()

	assert.Equal(t, 24*time.Hour, cfg.GetAuth().GetSessionTTL())
	assert.Equal(t, 30*time.Minute, cfg.GetAuth().GetResetTTL())
	assert.Zero(t, cfg.GetAuth().GetVerifyTTL())
	assert.Equal(t, 5*time.Second, cfg.GetPersistence().GetPingTimeout())
	assert.NotNil(t, cfg.GetFeatures())
}
