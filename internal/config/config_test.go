package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"RAILSCHED_HOME", "RAILSCHED_PASSPHRASE", "DATABASE_URL", "SECRETS_ENC_KEY",
		"METRICS_ADDR", "HTTP_TIMEOUT_SECONDS", "NOTIFY_TIMEOUT_SECONDS", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("RAILSCHED_HOME", "/tmp/rs")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/rs", cfg.Home)
	assert.Equal(t, "/tmp/rs/secrets.json", cfg.SecretsFile())
	assert.Equal(t, 20*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 10*time.Second, cfg.NotifyTimeout)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("RAILSCHED_HOME", "/tmp/rs")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "5")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://localhost/rail")

	_, err := FromEnv()
	assert.ErrorContains(t, err, "SECRETS_ENC_KEY")

	keyFile := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(keyFile, []byte("a2V5\n"), 0o600))
	t.Setenv("SECRETS_ENC_KEY", keyFile)
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "a2V5", cfg.SecretsKey)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestInvalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("RAILSCHED_HOME", "/tmp/rs")
	t.Setenv("NOTIFY_TIMEOUT_SECONDS", "0")
	_, err := FromEnv()
	assert.Error(t, err)

	t.Setenv("NOTIFY_TIMEOUT_SECONDS", "")
	t.Setenv("LOG_LEVEL", "loud")
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("RAILSCHED_HOME")
	env := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(env, []byte("RAILSCHED_HOME=/from/dotenv\n"), 0o600))

	cfg, err := Load(env)
	require.NoError(t, err)
	assert.Equal(t, "/from/dotenv", cfg.Home)
	os.Unsetenv("RAILSCHED_HOME")
}
