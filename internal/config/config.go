package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the service settings. Values come from an optional yaml
// file, overridden by TOKENLOGIN_* environment variables.
type Config struct {
	Port    string `yaml:"port"`
	DBPath  string `yaml:"db_path"`
	BaseURL string `yaml:"base_url"`

	LogLevel string `yaml:"log_level"`

	// SubmitLabel is the confirmation form's button text, so deployments
	// can localize the one user-visible string of the flow.
	SubmitLabel string `yaml:"submit_label"`

	TokenTTLMinutes    int `yaml:"token_ttl_minutes"`
	SessionTTLDays     int `yaml:"session_ttl_days"`
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
}

func Default() *Config {
	return &Config{
		Port:               "8080",
		DBPath:             "tokenlogin.db",
		BaseURL:            "http://localhost:8080",
		LogLevel:           "info",
		SubmitLabel:        "Log in",
		TokenTTLMinutes:    60,
		SessionTTLDays:     30,
		RateLimitPerMinute: 10,
	}
}

// Load reads the config file at path (skipped when path is empty or the
// file does not exist) and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()

	if cfg.TokenTTLMinutes <= 0 {
		return nil, fmt.Errorf("token_ttl_minutes must be positive, got %d", cfg.TokenTTLMinutes)
	}
	if cfg.SessionTTLDays <= 0 {
		return nil, fmt.Errorf("session_ttl_days must be positive, got %d", cfg.SessionTTLDays)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("TOKENLOGIN_PORT", c.Port)
	c.DBPath = getEnv("TOKENLOGIN_DB_PATH", c.DBPath)
	c.BaseURL = getEnv("TOKENLOGIN_BASE_URL", c.BaseURL)
	c.LogLevel = getEnv("TOKENLOGIN_LOG_LEVEL", c.LogLevel)
	c.SubmitLabel = getEnv("TOKENLOGIN_SUBMIT_LABEL", c.SubmitLabel)
	c.TokenTTLMinutes = getEnvInt("TOKENLOGIN_TOKEN_TTL_MINUTES", c.TokenTTLMinutes)
	c.SessionTTLDays = getEnvInt("TOKENLOGIN_SESSION_TTL_DAYS", c.SessionTTLDays)
	c.RateLimitPerMinute = getEnvInt("TOKENLOGIN_RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLDays) * 24 * time.Hour
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
