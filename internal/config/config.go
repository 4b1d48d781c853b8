package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	GoEnv string

	// Service
	HTTPPort int

	// Backend store
	DatabaseURL string

	// Local fallback cache
	RedisAddr     string
	RedisPassword string

	// Authentication
	JWTSecret string
	JWTExpiry time.Duration

	// Court registry
	CourtAPIURL string
	CourtAPIKey string

	// Polling
	PollBaseInterval time.Duration
	PollMaxInterval  time.Duration

	// Alerts
	AlertWebhookURL string

	// Logging
	LogLevel string
}

// LoadConfig loads configuration from the environment, with .env as an
// optional source for development.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		// No .env file is fine; system env vars still apply.
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	config := &Config{}

	if err := loadEnvString(&config.GoEnv, "GO_ENV", "development"); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.HTTPPort, "HTTP_PORT", 8080); err != nil {
		return nil, err
	}

	if err := loadEnvString(&config.DatabaseURL, "DATABASE_URL", ""); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.RedisAddr, "REDIS_ADDR", "localhost:6379"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.RedisPassword, "REDIS_PASSWORD", ""); err != nil {
		return nil, err
	}

	if err := loadEnvStringRequired(&config.JWTSecret, "JWT_SECRET"); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.JWTExpiry, "JWT_EXPIRY", 24*time.Hour); err != nil {
		return nil, err
	}

	if err := loadEnvString(&config.CourtAPIURL, "COURT_API_URL", "https://registry.example.test/api"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.CourtAPIKey, "COURT_API_KEY", ""); err != nil {
		return nil, err
	}

	if err := loadEnvDuration(&config.PollBaseInterval, "POLL_BASE_INTERVAL", 15*time.Second); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.PollMaxInterval, "POLL_MAX_INTERVAL", 120*time.Second); err != nil {
		return nil, err
	}

	if err := loadEnvString(&config.AlertWebhookURL, "ALERT_WEBHOOK_URL", ""); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.LogLevel, "LOG_LEVEL", "info"); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvString(target *string, key, defaultValue string) error {
	if value := os.Getenv(key); value != "" {
		*target = value
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvStringRequired(target *string, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return fmt.Errorf("required environment variable %s is not set", key)
	}
	*target = value
	return nil
}

func loadEnvInt(target *int, key string, defaultValue int) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvDuration(target *time.Duration, key string, defaultValue time.Duration) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}
