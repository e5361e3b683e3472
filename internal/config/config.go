// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// MinJWTSecretLength matches the floor auth.NewTokenService enforces.
const MinJWTSecretLength = 16

type Config struct {
	Port        int
	Environment string
	DBPath      string
	JWTSecret   string
	LogLevel    slog.Level

	// ActivityPlaceholders shows an illustrative feed to users with no
	// recorded activity.
	ActivityPlaceholders bool
}

// Load reads configuration from environment variables.
// It fails fast with clear errors for missing required values.
func Load() (*Config, error) {
	var missing []string

	port := 8080
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 || p > 65535 {
			return nil, fmt.Errorf("invalid PORT value %q: must be a port number", v)
		}
		port = p
	}

	env := os.Getenv("ENV")
	if env == "" {
		env = "development"
	}
	if env != "development" && env != "staging" && env != "production" {
		return nil, fmt.Errorf("invalid ENV value %q: must be development, staging, or production", env)
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "data/engage.db"
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %v", missing)
	}

	if len(secret) < MinJWTSecretLength {
		return nil, fmt.Errorf("invalid JWT_SECRET: must be at least %d characters", MinJWTSecretLength)
	}

	level, err := parseLevel(os.Getenv("LOG_LEVEL"), env)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:                 port,
		Environment:          env,
		DBPath:               dbPath,
		JWTSecret:            secret,
		LogLevel:             level,
		ActivityPlaceholders: getEnvBool("ACTIVITY_PLACEHOLDERS", false),
	}, nil
}

// parseLevel defaults to debug in development and info elsewhere.
func parseLevel(v, env string) (slog.Level, error) {
	if v == "" {
		if env == "development" {
			return slog.LevelDebug, nil
		}
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL value %q: must be debug, info, warn, or error", v)
	}
	return level, nil
}

// getEnvBool reads an environment variable as a bool with a default fallback.
func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}
