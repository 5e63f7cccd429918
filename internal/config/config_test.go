package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T, keys ...string) {
	originals := make(map[string]string, len(keys))
	for _, k := range keys {
		originals[k] = os.Getenv(k)
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for k, v := range originals {
			if v == "" {
				os.Unsetenv(k)
				continue
			}
			os.Setenv(k, v)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t, "DATA_DIR", "PORT", "NODE_ENV", "JWT_SECRET", "UPSTREAM_MARKET_URL")

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "https://query1.finance.yahoo.com/v8/finance/chart", cfg.UpstreamMarketURL)
}

func TestLoad_ProductionRequiresJWTSecret(t *testing.T) {
	clearEnv(t, "NODE_ENV", "JWT_SECRET")
	os.Setenv("NODE_ENV", "production")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_ProductionWithSecretSucceeds(t *testing.T) {
	clearEnv(t, "NODE_ENV", "JWT_SECRET")
	os.Setenv("NODE_ENV", "production")
	os.Setenv("JWT_SECRET", "a-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_CustomPort(t *testing.T) {
	clearEnv(t, "PORT")
	os.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
}
