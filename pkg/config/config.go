// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"os"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	Log      LogConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
}

// DSN builds the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// Load reads configuration from the environment. DB_USER, DB_PASSWORD and
// DB_NAME are required; the rest have sensible local defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Host:     envOr("DB_HOST", "localhost"),
			Port:     envOr("DB_PORT", "5432"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			SSLMode:  envOr("DB_SSLMODE", "disable"),
		},
		Log: LogConfig{
			Level: envOr("LOG_LEVEL", "info"),
		},
	}

	for key, val := range map[string]string{
		"DB_USER":     cfg.Database.User,
		"DB_PASSWORD": cfg.Database.Password,
		"DB_NAME":     cfg.Database.Name,
	} {
		if val == "" {
			return nil, fmt.Errorf("%s is required", key)
		}
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
