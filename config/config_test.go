package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(body), 0o600))
	return dir
}

func TestLoad_FileWithDefaults(t *testing.T) {
	dir := writeConfig(t, `
jwt:
  secret_key: `+testSecret+`
  access_ttl: 30m
refresh:
  max_devices: 3
verification:
  password_reset_ttl: 10m
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, testSecret, cfg.JWT.SecretKey)
	assert.Equal(t, 30*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, "HS256", cfg.JWT.Algorithm)
	assert.Equal(t, 7*24*time.Hour, cfg.Refresh.TTL)
	assert.Equal(t, 3, cfg.Refresh.MaxDevices)
	assert.Equal(t, 10, cfg.Hashing.Cost)
	assert.Equal(t, 24*time.Hour, cfg.Verification.EmailTTL)
	assert.Equal(t, 10*time.Minute, cfg.Verification.PasswordResetTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Verification.UsedRetention)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", testSecret)
	t.Setenv("REFRESH_MAX_DEVICES", "8")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, testSecret, cfg.JWT.SecretKey)
	assert.Equal(t, 8, cfg.Refresh.MaxDevices)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"short secret", "jwt:\n  secret_key: short\n"},
		{"bad algorithm", "jwt:\n  secret_key: " + testSecret + "\n  algorithm: RS256\n"},
		{"bad cost", "jwt:\n  secret_key: " + testSecret + "\nhashing:\n  cost: 2\n"},
		{"refresh shorter than access", "jwt:\n  secret_key: " + testSecret + "\n  access_ttl: 2h\nrefresh:\n  ttl: 1h\n"},
		{"lock without expiry", "jwt:\n  secret_key: " + testSecret + "\nredis:\n  host: localhost\nsweeper:\n  lock_ttl: 0s\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	_, err := Load(writeConfig(t, "jwt: [unterminated"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_LockTTLIgnoredWithoutRedis(t *testing.T) {
	cfg, err := Load(writeConfig(t, "jwt:\n  secret_key: "+testSecret+"\nsweeper:\n  lock_ttl: 0s\n"))
	require.NoError(t, err)
	assert.Zero(t, cfg.Sweeper.LockTTL)
}
