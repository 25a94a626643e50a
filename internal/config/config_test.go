package config

import (
	"log/slog"
	"strings"
	"testing"
)

// clearEnv blanks every variable Load reads so a test starts from the
// documented defaults regardless of the host environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "DB_PATH", "JWT_SECRET", "BCRYPT_COST", "LOG_LEVEL",
		"GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET", "GITHUB_CALLBACK_URL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "test-secret-at-least-16-chars")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.DBPath != "data/threadlines.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.GitHubEnabled() {
		t.Error("GitHubEnabled() should be false with no OAuth credentials")
	}
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail without JWT_SECRET")
	}
	if !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Errorf("error should name the missing variable, got: %v", err)
	}
}

func TestLoad_RejectsInvalidPort(t *testing.T) {
	for _, port := range []string{"0", "-1", "70000"} {
		t.Run(port, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("JWT_SECRET", "test-secret-at-least-16-chars")
			t.Setenv("PORT", port)

			if _, err := Load(); err == nil {
				t.Errorf("Load() should reject PORT=%s", port)
			}
		})
	}
}

func TestLoad_DerivesCallbackURLFromPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "test-secret-at-least-16-chars")
	t.Setenv("PORT", "9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GitHubCallbackURL != "http://localhost:9000/auth/github/callback" {
		t.Errorf("GitHubCallbackURL = %q", cfg.GitHubCallbackURL)
	}
}

func TestLoad_ExplicitCallbackURLWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "test-secret-at-least-16-chars")
	t.Setenv("GITHUB_CALLBACK_URL", "https://example.com/auth/github/callback")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GitHubCallbackURL != "https://example.com/auth/github/callback" {
		t.Errorf("GitHubCallbackURL = %q", cfg.GitHubCallbackURL)
	}
}

func TestGitHubEnabled_RequiresBothCredentials(t *testing.T) {
	cases := []struct {
		name   string
		id     string
		secret string
		want   bool
	}{
		{"both set", "client-id", "client-secret", true},
		{"id only", "client-id", "", false},
		{"secret only", "", "client-secret", false},
		{"neither", "", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{GitHubClientID: tc.id, GitHubClientSecret: tc.secret}
			if got := cfg.GitHubEnabled(); got != tc.want {
				t.Errorf("GitHubEnabled() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"nonsense", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tc := range cases {
		cfg := &Config{LogLevel: tc.in}
		if got := cfg.SlogLevel(); got != tc.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
