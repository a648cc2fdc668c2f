package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port string
	Env  string

	// Database configuration
	DatabaseURL string
	DBMinConns  int
	DBMaxConns  int

	// Write retry configuration
	MaxRetries     int
	InitialBackoff time.Duration

	// Amounts are stored in minor units; scale is the number of decimal
	// places of the presented currency
	CurrencyScale int

	// Redis configuration (optional, used for failure notifications)
	RedisURL      string
	RedisPassword string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		DBMinConns:     getEnvAsInt("DB_MIN_CONNS", 10),
		DBMaxConns:     getEnvAsInt("DB_MAX_CONNS", 100),
		MaxRetries:     getEnvAsInt("WRITE_MAX_RETRIES", 10),
		InitialBackoff: getEnvAsDuration("WRITE_INITIAL_BACKOFF", 10*time.Millisecond),
		CurrencyScale:  getEnvAsInt("CURRENCY_SCALE", 2),
		RedisURL:       getEnv("REDIS_URL", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.DBMaxConns < c.DBMinConns {
		return fmt.Errorf("DB_MAX_CONNS must be >= DB_MIN_CONNS")
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("WRITE_MAX_RETRIES must not be negative")
	}

	if c.InitialBackoff <= 0 {
		return fmt.Errorf("WRITE_INITIAL_BACKOFF must be positive")
	}

	if c.CurrencyScale < 0 || c.CurrencyScale > 18 {
		return fmt.Errorf("CURRENCY_SCALE must be between 0 and 18")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
