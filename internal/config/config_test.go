package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.SMTP.Port != 587 {
		t.Errorf("default port: got %d, want 587", cfg.SMTP.Port)
	}
	if cfg.SMTP.TimeoutMs != defaultTimeoutMs {
		t.Errorf("default timeout: got %d, want %d", cfg.SMTP.TimeoutMs, defaultTimeoutMs)
	}
	if cfg.SMTP.ReadTimeoutMs != defaultReadTimeoutMs {
		t.Errorf("default read timeout: got %d, want %d", cfg.SMTP.ReadTimeoutMs, defaultReadTimeoutMs)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default log level: got %q, want info", cfg.Logging.Level)
	}
	if cfg.SMTPConfigured() {
		t.Error("SMTPConfigured should be false with no host")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "465")
	t.Setenv("SMTP_USERNAME", "user")
	t.Setenv("SMTP_PASSWORD", "pass")
	t.Setenv("SMTP_SECURE", "true")
	t.Setenv("SMTP_TIMEOUT_MS", "5000")
	t.Setenv("PROVIDER", "SMTP")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.SMTP.Host != "smtp.example.com" {
		t.Errorf("host: got %q", cfg.SMTP.Host)
	}
	if cfg.SMTP.Port != 465 {
		t.Errorf("port: got %d, want 465", cfg.SMTP.Port)
	}
	if !cfg.SMTP.Secure {
		t.Error("secure: got false, want true")
	}
	if cfg.SMTP.TimeoutMs != 5000 {
		t.Errorf("timeout: got %d, want 5000", cfg.SMTP.TimeoutMs)
	}
	if cfg.Provider != "smtp" {
		t.Errorf("provider should be lowercased: got %q", cfg.Provider)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level should be lowercased: got %q", cfg.Logging.Level)
	}
	if !cfg.SMTPConfigured() {
		t.Error("SMTPConfigured: got false")
	}
}

func TestLoad_InvalidEnvValuesIgnored(t *testing.T) {
	t.Setenv("SMTP_PORT", "not-a-number")
	t.Setenv("SMTP_SECURE", "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.SMTP.Port != 587 {
		t.Errorf("port should keep default on bad value: got %d", cfg.SMTP.Port)
	}
	if cfg.SMTP.Secure {
		t.Error("secure should keep default on bad value")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
provider: ses
smtp:
  host: mail.internal
  port: 2525
  username: u
  password: p
ses:
  region: us-east-1
  sender: noreply@shop.example
dkim:
  domain: shop.example
  selector: mail
  key_file: /etc/dkim/key.pem
logging:
  level: warn
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Provider != "ses" {
		t.Errorf("provider: got %q", cfg.Provider)
	}
	if cfg.SMTP.Host != "mail.internal" || cfg.SMTP.Port != 2525 {
		t.Errorf("smtp: got %q:%d", cfg.SMTP.Host, cfg.SMTP.Port)
	}
	if !cfg.SESConfigured() {
		t.Error("SESConfigured: got false")
	}
	if !cfg.DKIMConfigured() {
		t.Error("DKIMConfigured: got false")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("log level: got %q", cfg.Logging.Level)
	}
	// Defaults still apply for fields the file omits.
	if cfg.SMTP.TimeoutMs != defaultTimeoutMs {
		t.Errorf("timeout default: got %d", cfg.SMTP.TimeoutMs)
	}
}

func TestLoadFromFile_EnvWinsOverYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("smtp:\n  host: from-yaml\n"), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	t.Setenv("SMTP_HOST", "from-env")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.SMTP.Host != "from-env" {
		t.Errorf("host: got %q, want env value", cfg.SMTP.Host)
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("LoadFromFile should fail for a missing file")
	}
}
