// Package config loads server configuration from environment variables.
//
// Parsing is delegated to github.com/caarlos0/env — struct tags declare the
// variable name and default, and the library handles type conversion. The
// one piece of logic that lives here is cross-field defaulting (the GitHub
// callback URL depends on the port) and validation.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the server needs to start. All fields come from
// the environment; defaults target local development.
type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"data/threadlines.db"`

	// JWTSecret signs session tokens. Must be at least 16 characters;
	// generate with: openssl rand -hex 32. Required — there is no
	// unauthenticated mode, every route past sign-in needs a session.
	JWTSecret string `env:"JWT_SECRET"`

	// BcryptCost is the bcrypt work factor for password hashing.
	// 12 is the production default; tests use the bcrypt minimum (4).
	BcryptCost int `env:"BCRYPT_COST" envDefault:"12"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// GitHub OAuth is optional. When the client ID/secret are unset the
	// OAuth routes are simply not registered and email/password remains
	// the only credential.
	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string `env:"GITHUB_CALLBACK_URL"`
}

// Load parses the environment into a Config and applies derived defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("config: PORT must be in 1-65535, got %d", cfg.Port)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET is required")
	}
	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	return &cfg, nil
}

// GitHubEnabled reports whether both OAuth credentials are configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// SlogLevel maps the LOG_LEVEL string onto a slog level.
// Unknown values fall back to Info rather than failing startup.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
