package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-at-least-32-chars!!"

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TASKHIVE_DATABASE_URL", "postgres://localhost:5432/taskhive_test")
	t.Setenv("TASKHIVE_AUTH_JWT_SECRET", testSecret)
	t.Setenv("TASKHIVE_SERVER_PORT", "9090")
	t.Setenv("TASKHIVE_SERVER_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "postgres://localhost:5432/taskhive_test", cfg.Database.URL)
	assert.Equal(t, testSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, 60*24*7, cfg.Auth.TokenLifetimeMinutes, "default token lifetime")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TASKHIVE_DATABASE_URL", "postgres://localhost:5432/taskhive_test")
	t.Setenv("TASKHIVE_AUTH_JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
}

func TestLoadValidation(t *testing.T) {
	t.Run("missing jwt secret", func(t *testing.T) {
		t.Setenv("TASKHIVE_DATABASE_URL", "postgres://localhost:5432/taskhive_test")
		t.Setenv("TASKHIVE_AUTH_JWT_SECRET", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})

	t.Run("short jwt secret", func(t *testing.T) {
		t.Setenv("TASKHIVE_DATABASE_URL", "postgres://localhost:5432/taskhive_test")
		t.Setenv("TASKHIVE_AUTH_JWT_SECRET", "too-short")

		_, err := Load()
		require.Error(t, err)
	})

	t.Run("bad log level", func(t *testing.T) {
		t.Setenv("TASKHIVE_DATABASE_URL", "postgres://localhost:5432/taskhive_test")
		t.Setenv("TASKHIVE_AUTH_JWT_SECRET", testSecret)
		t.Setenv("TASKHIVE_SERVER_LOG_LEVEL", "loud")

		_, err := Load()
		require.Error(t, err)
	})
}
