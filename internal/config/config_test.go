package config

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requiredEnv() map[string]string {
	return map[string]string{
		"DISCORD_CLIENT_ID":     "client-id",
		"DISCORD_CLIENT_SECRET": "client-secret",
		"DISCORD_REDIRECT_URI":  "http://localhost:3000/callback",
	}
}

func TestProcess_Defaults(t *testing.T) {
	cfg, err := process(context.Background(), envconfig.MapLookuper(requiredEnv()))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "data.db", cfg.DBPath)
	assert.Equal(t, 5*time.Second, cfg.OAuthTimeout)
	assert.Equal(t, 10, cfg.AdminBcryptCost)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Empty(t, cfg.AdminSecret)
	assert.Empty(t, cfg.SessionSecret)
	assert.False(t, cfg.CookieSecure)
}

func TestProcess_Overrides(t *testing.T) {
	env := requiredEnv()
	env["PORT"] = "8080"
	env["DATABASE_PATH"] = "/var/lib/solwinner/data.db"
	env["OAUTH_TIMEOUT"] = "2s"
	env["ADMIN_SECRET"] = "abc123"
	env["SESSION_SECRET"] = "0123456789abcdef0123"
	env["COOKIE_SECURE"] = "true"
	env["LOG_LEVEL"] = "debug"

	cfg, err := process(context.Background(), envconfig.MapLookuper(env))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/var/lib/solwinner/data.db", cfg.DBPath)
	assert.Equal(t, 2*time.Second, cfg.OAuthTimeout)
	assert.Equal(t, "abc123", cfg.AdminSecret)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestProcess_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing client id", env: map[string]string{
			"DISCORD_CLIENT_SECRET": "s", "DISCORD_REDIRECT_URI": "http://x/callback",
		}},
		{name: "port not a number", env: map[string]string{"PORT": "abc"}},
		{name: "port out of range", env: map[string]string{"PORT": "70000"}},
		{name: "bad timeout", env: map[string]string{"OAUTH_TIMEOUT": "0s"}},
		{name: "bcrypt cost too low", env: map[string]string{"ADMIN_BCRYPT_COST": "2"}},
		{name: "short session secret", env: map[string]string{"SESSION_SECRET": "short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := tt.env
			if tt.name != "missing client id" {
				env = requiredEnv()
				for k, v := range tt.env {
					env[k] = v
				}
			}
			_, err := process(context.Background(), envconfig.MapLookuper(env))
			assert.Error(t, err)
		})
	}
}
