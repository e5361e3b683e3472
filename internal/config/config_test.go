package config

import (
	"log/slog"
	"strings"
	"testing"
)

const testSecret = "0123456789abcdef0123"

func TestLoad_Success(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DB_PATH", "/var/lib/engage/prod.db")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("ACTIVITY_PLACEHOLDERS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("expected Port 9090, got: %d", cfg.Port)
	}
	if cfg.Environment != "production" {
		t.Errorf("expected Environment production, got: %s", cfg.Environment)
	}
	if cfg.DBPath != "/var/lib/engage/prod.db" {
		t.Errorf("expected DBPath to be set, got: %s", cfg.DBPath)
	}
	if cfg.LogLevel != slog.LevelWarn {
		t.Errorf("expected LogLevel WARN, got: %v", cfg.LogLevel)
	}
	if !cfg.ActivityPlaceholders {
		t.Error("expected ActivityPlaceholders to be enabled")
	}
}

func TestLoad_WithDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("DB_PATH", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("ACTIVITY_PLACEHOLDERS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("expected default Port 8080, got: %d", cfg.Port)
	}
	if cfg.Environment != "development" {
		t.Errorf("expected default Environment development, got: %s", cfg.Environment)
	}
	if cfg.DBPath != "data/engage.db" {
		t.Errorf("expected default DBPath, got: %s", cfg.DBPath)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("expected debug level in development, got: %v", cfg.LogLevel)
	}
	if cfg.ActivityPlaceholders {
		t.Error("expected ActivityPlaceholders to default to false")
	}
}

func TestLoad_InfoLevelOutsideDevelopment(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("ENV", "staging")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("expected info level, got: %v", cfg.LogLevel)
	}
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing JWT_SECRET, got nil")
	}
	if !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Errorf("error message should mention JWT_SECRET, got: %v", err)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		mention string
	}{
		{"short secret", map[string]string{"JWT_SECRET": "short"}, "JWT_SECRET"},
		{"bad port", map[string]string{"JWT_SECRET": testSecret, "PORT": "http"}, "PORT"},
		{"port out of range", map[string]string{"JWT_SECRET": testSecret, "PORT": "70000"}, "PORT"},
		{"bad env", map[string]string{"JWT_SECRET": testSecret, "ENV": "prod"}, "ENV"},
		{"bad log level", map[string]string{"JWT_SECRET": testSecret, "LOG_LEVEL": "loud"}, "LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"PORT", "ENV", "LOG_LEVEL"} {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.mention) {
				t.Errorf("error message should mention %s, got: %v", tt.mention, err)
			}
		})
	}
}

func TestGetEnvBool_InvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_FLAG", "maybe")
	if getEnvBool("SOME_FLAG", true) != true {
		t.Error("expected fallback to default for unparsable value")
	}
}
