package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const devJWTSecret = "dev-only-change-me"

type Config struct {
	// Environment is "development" (default) or "production".
	Environment string

	// Web Server
	Port int

	// Database
	DBPath string

	// Session
	JWTSecret string
	TokenTTL  time.Duration

	// Logging
	LogLevel string
}

// Load reads configuration from the environment, after loading .env if present.
func Load() (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		Environment: getEnvDefault("APP_ENV", "development"),
		DBPath:      getEnvDefault("DB_PATH", "./data/trips.db"),
		JWTSecret:   getEnvDefault("JWT_SECRET", devJWTSecret),
		LogLevel:    getEnvDefault("LOG_LEVEL", "info"),
	}

	port, err := strconv.Atoi(getEnvDefault("PORT", "8080"))
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("PORT must be a valid port number, got %q", os.Getenv("PORT"))
	}
	cfg.Port = port

	ttl, err := time.ParseDuration(getEnvDefault("TOKEN_TTL", "24h"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL must be a positive duration, got %q", os.Getenv("TOKEN_TTL"))
	}
	cfg.TokenTTL = ttl

	if cfg.Environment == "production" && cfg.JWTSecret == devJWTSecret {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}

	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func getEnvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
