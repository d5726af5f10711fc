package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FRONTEND_URL", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Database.Driver != "sqlite" || cfg.DatabaseSource() != "./data/mindora.db" {
		t.Errorf("unexpected database config %+v", cfg.Database)
	}
	if cfg.Monitor.Workers != 4 || cfg.Monitor.PatientTimeout != 30*time.Second || cfg.Monitor.RunAt != "00:00" {
		t.Errorf("unexpected monitor config %+v", cfg.Monitor)
	}
	if cfg.NotificationRetention != 720*time.Hour {
		t.Errorf("NotificationRetention = %v", cfg.NotificationRetention)
	}
	if cfg.JWTSecret == "" {
		t.Error("development mode should fall back to a dev secret")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FRONTEND_URL", "https://app.mindora.rw")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_DRIVER", "POSTGRES")
	t.Setenv("DATABASE_URL", "postgres://localhost/mindora?sslmode=disable")
	t.Setenv("MONITOR_WORKERS", "8")
	t.Setenv("MONITOR_PATIENT_TIMEOUT", "5s")
	t.Setenv("MONITOR_RUN_AT", "02:30")
	t.Setenv("MONITOR_ENABLED", "off")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.IsDevelopment() {
		t.Error("expected production mode")
	}
	if cfg.DatabaseSource() != "postgres://localhost/mindora?sslmode=disable" {
		t.Errorf("DatabaseSource() = %q", cfg.DatabaseSource())
	}
	if cfg.Monitor.Workers != 8 || cfg.Monitor.PatientTimeout != 5*time.Second || cfg.Monitor.Enabled {
		t.Errorf("unexpected monitor config %+v", cfg.Monitor)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestLoadRequiresSecretInProduction(t *testing.T) {
	t.Setenv("FRONTEND_URL", "https://app.mindora.rw")
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:                  "8080",
			JWTSecret:             "x",
			Database:              DatabaseConfig{Driver: "sqlite", Path: "db"},
			Monitor:               MonitorConfig{Workers: 1, PatientTimeout: time.Second, RunAt: "00:00"},
			RateLimit:             RateLimitConfig{Requests: 1, Window: time.Second},
			Log:                   LogConfig{Level: "info"},
			NotificationRetention: time.Hour,
		}
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := map[string]func(*Config){
		"empty port":       func(c *Config) { c.Port = "" },
		"unknown driver":   func(c *Config) { c.Database.Driver = "mysql" },
		"postgres no url":  func(c *Config) { c.Database.Driver = "postgres" },
		"zero workers":     func(c *Config) { c.Monitor.Workers = 0 },
		"bad run at":       func(c *Config) { c.Monitor.RunAt = "25:00" },
		"zero rate window": func(c *Config) { c.RateLimit.Window = 0 },
		"bad log level":    func(c *Config) { c.Log.Level = "trace" },
		"no retention":     func(c *Config) { c.NotificationRetention = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
