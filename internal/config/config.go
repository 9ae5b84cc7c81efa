package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Kerhoff/WishShare/internal/auth"
)

// Store backends
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Port           string
	PrometheusPort string
	LogLevel       string
	LogFormat      string

	Store          string
	DatabaseURL    string
	MigrationsPath string

	JWTSecret string
	TokenTTL  time.Duration

	RedisURL     string
	RedisChannel string

	AllowedOrigins []string

	// Telegram notifications are disabled when TelegramToken is empty
	TelegramToken  string
	TelegramChatID int64
	AppURL         string
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present; real environment variables
// take precedence over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		Port:           getEnvOrDefault("PORT", "8080"),
		PrometheusPort: getEnvOrDefault("PROMETHEUS_PORT", "9090"),
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:      getEnvOrDefault("LOG_FORMAT", "text"),
		Store:          getEnvOrDefault("STORE", StorePostgres),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		MigrationsPath: getEnvOrDefault("MIGRATIONS_PATH", "migrations"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		RedisURL:       os.Getenv("REDIS_URL"),
		RedisChannel:   getEnvOrDefault("REDIS_CHANNEL", "wishshare:events"),
		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		AppURL:         os.Getenv("APP_URL"),
	}

	// Required environment variables
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	switch cfg.Store {
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is required")
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, cfg.Store)
	}

	ttl, err := time.ParseDuration(getEnvOrDefault("TOKEN_TTL", auth.DefaultTokenTTL.String()))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %q", os.Getenv("TOKEN_TTL"))
	}
	cfg.TokenTTL = ttl

	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		if cfg.TelegramChatID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
	}

	return cfg, nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
