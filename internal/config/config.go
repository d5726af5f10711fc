// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	JWTSecret   string
	Database    DatabaseConfig
	RedisURL    string // optional; enables shared presence and locks
	NATSURL     string // optional; enables notification publishing
	Monitor     MonitorConfig
	RateLimit   RateLimitConfig
	Log         LogConfig

	NotificationRetention time.Duration
	ReportFontPath        string
}

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	Driver string // "sqlite" or "postgres"
	Path   string // sqlite file
	URL    string // postgres DSN
}

// MonitorConfig controls the daily monitoring pass.
type MonitorConfig struct {
	Enabled        bool
	Workers        int
	PatientTimeout time.Duration
	RunAt          string // HH:MM, UTC
}

// RateLimitConfig bounds requests per user per window.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// LogConfig controls the default logger.
type LogConfig struct {
	Level string
	File  string // optional rotating file sink
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		Database: DatabaseConfig{
			Driver: strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			Path:   getEnv("DB_PATH", "./data/mindora.db"),
			URL:    getEnv("DATABASE_URL", ""),
		},
		RedisURL: getEnv("REDIS_URL", ""),
		NATSURL:  getEnv("NATS_URL", ""),
		Monitor: MonitorConfig{
			Enabled:        getEnvBool("MONITOR_ENABLED", true),
			Workers:        getEnvInt("MONITOR_WORKERS", 4),
			PatientTimeout: getEnvDuration("MONITOR_PATIENT_TIMEOUT", 30*time.Second),
			RunAt:          getEnv("MONITOR_RUN_AT", "00:00"),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 100),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Log: LogConfig{
			Level: strings.ToLower(getEnv("LOG_LEVEL", "info")),
			File:  getEnv("LOG_FILE", ""),
		},
		NotificationRetention: getEnvDuration("NOTIFICATION_RETENTION", 30*24*time.Hour),
		ReportFontPath:        getEnv("REPORT_FONT_PATH", ""),
	}

	if cfg.JWTSecret == "" && cfg.IsDevelopment() {
		cfg.JWTSecret = "dev-secret"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required outside development")
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("DB_PATH cannot be empty")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Monitor.Workers <= 0 {
		return fmt.Errorf("MONITOR_WORKERS must be > 0")
	}
	if c.Monitor.PatientTimeout <= 0 {
		return fmt.Errorf("MONITOR_PATIENT_TIMEOUT must be > 0")
	}
	if _, err := time.Parse("15:04", c.Monitor.RunAt); err != nil {
		return fmt.Errorf("MONITOR_RUN_AT must be HH:MM, got %q", c.Monitor.RunAt)
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be > 0")
	}
	if c.NotificationRetention <= 0 {
		return fmt.Errorf("NOTIFICATION_RETENTION must be > 0")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// DatabaseSource returns the DSN for the configured driver.
func (c *Config) DatabaseSource() string {
	if c.Database.Driver == "postgres" {
		return c.Database.URL
	}
	return c.Database.Path
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
