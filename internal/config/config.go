// Package config provides environment-variable-first configuration
// loading with optional YAML file fallback for the courier delivery
// client.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default timeouts in milliseconds: connect covers one connection
// strategy, read bounds each SMTP reply wait.
const (
	defaultTimeoutMs     = 30000
	defaultReadTimeoutMs = 10000
)

// Config holds the complete application configuration.
type Config struct {
	Provider string        `yaml:"provider"`
	SMTP     SMTPConfig    `yaml:"smtp"`
	SES      SESConfig     `yaml:"ses"`
	DKIM     DKIMConfig    `yaml:"dkim"`
	Logging  LoggingConfig `yaml:"logging"`
}

// SMTPConfig holds SMTP submission server parameters.
type SMTPConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	Secure        bool   `yaml:"secure"`
	TimeoutMs     int    `yaml:"timeout_ms"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`
}

// SESConfig holds AWS SES v2 API configuration.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Sender          string `yaml:"sender"`
}

// DKIMConfig holds DKIM signing configuration.
type DKIMConfig struct {
	Domain   string `yaml:"domain"`
	Selector string `yaml:"selector"`
	KeyFile  string `yaml:"key_file"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables with sensible
// defaults. Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	cfg.applyEnvVars()

	return cfg, nil
}

// SMTPConfigured returns true if an SMTP submission host is set.
func (c *Config) SMTPConfigured() bool {
	return c.SMTP.Host != ""
}

// SESConfigured returns true if the minimum SES settings are present.
func (c *Config) SESConfigured() bool {
	return c.SES.Region != "" && c.SES.Sender != ""
}

// DKIMConfigured returns true if all DKIM signing settings are present.
func (c *Config) DKIMConfigured() bool {
	return c.DKIM.Domain != "" && c.DKIM.Selector != "" && c.DKIM.KeyFile != ""
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.SMTP.Port = 587
	c.SMTP.TimeoutMs = defaultTimeoutMs
	c.SMTP.ReadTimeoutMs = defaultReadTimeoutMs
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("SMTP_HOST"); v != "" {
		c.SMTP.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.SMTP.Port = port
		}
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		c.SMTP.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.SMTP.Password = v
	}
	if v := os.Getenv("SMTP_SECURE"); v != "" {
		if secure, err := strconv.ParseBool(v); err == nil {
			c.SMTP.Secure = secure
		}
	}
	if v := os.Getenv("SMTP_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.SMTP.TimeoutMs = ms
		}
	}
	if v := os.Getenv("SMTP_READ_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.SMTP.ReadTimeoutMs = ms
		}
	}

	if v := os.Getenv("SES_REGION"); v != "" {
		c.SES.Region = v
	}
	if v := os.Getenv("SES_ACCESS_KEY_ID"); v != "" {
		c.SES.AccessKeyID = v
	}
	if v := os.Getenv("SES_SECRET_ACCESS_KEY"); v != "" {
		c.SES.SecretAccessKey = v
	}
	if v := os.Getenv("SES_SENDER"); v != "" {
		c.SES.Sender = v
	}

	if v := os.Getenv("DKIM_DOMAIN"); v != "" {
		c.DKIM.Domain = v
	}
	if v := os.Getenv("DKIM_SELECTOR"); v != "" {
		c.DKIM.Selector = v
	}
	if v := os.Getenv("DKIM_KEY_FILE"); v != "" {
		c.DKIM.KeyFile = v
	}

	if v := os.Getenv("PROVIDER"); v != "" {
		c.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}
