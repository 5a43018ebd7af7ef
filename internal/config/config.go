// Package config loads the server configuration from the environment.
//
// A .env file in the working directory is read first (if present), then
// real environment variables are applied on top: a variable already set in
// the environment always wins over the file.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Port   int    `env:"PORT, default=3000"`
	DBPath string `env:"DATABASE_PATH, default=data.db"`

	DiscordClientID     string `env:"DISCORD_CLIENT_ID, required"`
	DiscordClientSecret string `env:"DISCORD_CLIENT_SECRET, required"`
	DiscordRedirectURI  string `env:"DISCORD_REDIRECT_URI, required"`
	// Bounds each of the token and profile calls to Discord.
	OAuthTimeout time.Duration `env:"OAUTH_TIMEOUT, default=5s"`

	// Empty disables /admin-login.
	AdminSecret     string `env:"ADMIN_SECRET"`
	AdminBcryptCost int    `env:"ADMIN_BCRYPT_COST, default=10"`

	// When set, session cookies are signed JWTs instead of plain base64 JSON.
	SessionSecret string `env:"SESSION_SECRET"`
	CookieSecure  bool   `env:"COOKIE_SECURE, default=false"`

	LogLevel slog.Level `env:"LOG_LEVEL, default=info"`
}

// Load reads .env (if any) and the process environment.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}
	return process(ctx, envconfig.OsLookuper())
}

func process(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT %d out of range", c.Port)
	}
	if c.OAuthTimeout <= 0 {
		return fmt.Errorf("OAUTH_TIMEOUT must be positive, got %s", c.OAuthTimeout)
	}
	// bcrypt accepts costs 4 through 31.
	if c.AdminBcryptCost < 4 || c.AdminBcryptCost > 31 {
		return fmt.Errorf("ADMIN_BCRYPT_COST %d out of range 4-31", c.AdminBcryptCost)
	}
	if c.SessionSecret != "" && len(c.SessionSecret) < 16 {
		return errors.New("SESSION_SECRET must be at least 16 characters")
	}
	return nil
}
