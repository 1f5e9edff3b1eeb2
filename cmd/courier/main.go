// Package main is the entry point for the courier delivery CLI.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saltwire/courier/internal/config"
	"github.com/saltwire/courier/internal/email"
	"github.com/saltwire/courier/internal/provider"
	smtpprovider "github.com/saltwire/courier/internal/provider/smtp"
	"github.com/saltwire/courier/internal/provider/ses"
	"github.com/saltwire/courier/internal/provider/stdout"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file (optional)")
	from := flag.String("from", "", "sender address")
	to := flag.String("to", "", "recipient address")
	subject := flag.String("subject", "", "message subject")
	text := flag.String("text", "", "plain text body")
	html := flag.String("html", "", "HTML body")
	flag.Parse()

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	setupLogger(cfg.Logging.Level)

	msg := &email.Message{
		From:    *from,
		To:      *to,
		Subject: *subject,
		Text:    *text,
		HTML:    *html,
	}
	if err := msg.Validate(); err != nil {
		slog.Error("invalid message", "error", err)
		os.Exit(1)
	}

	// Select email delivery provider
	prov := selectProvider(cfg)

	slog.Info("sending message",
		"provider", prov.Name(),
		"to", msg.To,
	)

	// Cancel the send on SIGTERM/SIGINT
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	res, err := prov.Send(ctx, msg)
	if err != nil {
		slog.Error("delivery failed", "provider", prov.Name(), "error", err)
		os.Exit(1)
	}

	slog.Info("message sent",
		"provider", prov.Name(),
		"message_id", res.MessageID,
	)
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level.
func setupLogger(level string) {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// selectProvider chooses the email delivery backend based on configuration.
// If the PROVIDER env var is set, it takes precedence.
// Otherwise, it falls back to auto-detection (SMTP if configured, then
// SES, else stdout).
func selectProvider(cfg *config.Config) provider.Provider {
	switch cfg.Provider {
	case "smtp":
		if !cfg.SMTPConfigured() {
			slog.Error("smtp provider selected but SMTP_HOST is required")
			os.Exit(1)
		}
		return newSMTPProvider(cfg)

	case "ses":
		if !cfg.SESConfigured() {
			slog.Error("ses provider selected but SES_REGION and SES_SENDER are required")
			os.Exit(1)
		}
		return newSESProvider(cfg)

	case "stdout":
		slog.Info("using stdout provider")
		return stdout.New()

	case "":
		// Auto-detection fallback
		if cfg.SMTPConfigured() {
			return newSMTPProvider(cfg)
		}
		if cfg.SESConfigured() {
			return newSESProvider(cfg)
		}
		slog.Info("no provider configured, using stdout provider")
		return stdout.New()

	default:
		slog.Error("unknown provider", "provider", cfg.Provider)
		os.Exit(1)
		return nil
	}
}

// newSMTPProvider builds the SMTP submission provider from configuration.
func newSMTPProvider(cfg *config.Config) provider.Provider {
	slog.Info("using SMTP provider",
		"host", cfg.SMTP.Host,
		"port", cfg.SMTP.Port,
		"secure", cfg.SMTP.Secure,
		"dkim_enabled", cfg.DKIMConfigured(),
	)

	pcfg := smtpprovider.ProviderConfig{
		Host:           cfg.SMTP.Host,
		Port:           cfg.SMTP.Port,
		Username:       cfg.SMTP.Username,
		Password:       cfg.SMTP.Password,
		Secure:         cfg.SMTP.Secure,
		ConnectTimeout: time.Duration(cfg.SMTP.TimeoutMs) * time.Millisecond,
		ReadTimeout:    time.Duration(cfg.SMTP.ReadTimeoutMs) * time.Millisecond,
	}
	if cfg.DKIMConfigured() {
		pcfg.DKIMDomain = cfg.DKIM.Domain
		pcfg.DKIMSelector = cfg.DKIM.Selector
		pcfg.DKIMKeyFile = cfg.DKIM.KeyFile
	}

	p, err := smtpprovider.New(pcfg)
	if err != nil {
		slog.Error("failed to create SMTP provider", "error", err)
		os.Exit(1)
	}
	return p
}

// newSESProvider builds the AWS SES provider from configuration.
func newSESProvider(cfg *config.Config) provider.Provider {
	slog.Info("using AWS SES provider",
		"region", cfg.SES.Region,
		"sender", cfg.SES.Sender,
	)

	p, err := ses.New(context.Background(), ses.ProviderConfig{
		Region:          cfg.SES.Region,
		AccessKeyID:     cfg.SES.AccessKeyID,
		SecretAccessKey: cfg.SES.SecretAccessKey,
		Sender:          cfg.SES.Sender,
	})
	if err != nil {
		slog.Error("failed to create SES provider", "error", err)
		os.Exit(1)
	}
	return p
}
