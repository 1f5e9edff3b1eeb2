// Package smtp implements a Provider that delivers mail over SMTP
// submission using the courier transport client.
package smtp

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/saltwire/courier/internal/email"
	"github.com/saltwire/courier/internal/provider"
	smtpclient "github.com/saltwire/courier/internal/smtp"
	couriertls "github.com/saltwire/courier/internal/tls"
)

// ProviderConfig holds the configuration for creating an SMTP Provider.
type ProviderConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Secure   bool

	// ConnectTimeout bounds each connection strategy; ReadTimeout
	// bounds each reply wait. Zero values use the client defaults.
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	// DKIM settings; signing is enabled when all three are set.
	DKIMDomain   string
	DKIMSelector string
	DKIMKeyFile  string
}

// Provider delivers messages via the SMTP transport client.
type Provider struct {
	client *smtpclient.Client
}

// New creates an SMTP Provider. When DKIM is configured, the signing
// key is loaded once and every message is signed before transmission.
func New(cfg ProviderConfig) (*Provider, error) {
	clientCfg := smtpclient.Config{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Username:       cfg.Username,
		Password:       cfg.Password,
		Secure:         cfg.Secure,
		ConnectTimeout: cfg.ConnectTimeout,
		ReadTimeout:    cfg.ReadTimeout,
		TLSConfig:      couriertls.ClientConfig(cfg.Host, false),
	}

	if cfg.DKIMDomain != "" && cfg.DKIMSelector != "" && cfg.DKIMKeyFile != "" {
		key, err := os.ReadFile(cfg.DKIMKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read DKIM key: %w", err)
		}
		opts := email.DKIMOptions{
			Domain:     cfg.DKIMDomain,
			Selector:   cfg.DKIMSelector,
			PrivateKey: key,
		}
		clientCfg.Sign = func(raw []byte) ([]byte, error) {
			return email.SignDKIM(raw, opts)
		}
	}

	return &Provider{client: smtpclient.New(clientCfg)}, nil
}

// Send delivers the message over one SMTP connection.
func (p *Provider) Send(ctx context.Context, msg *email.Message) (*provider.Result, error) {
	res, err := p.client.Send(ctx, msg)
	if err != nil {
		return nil, err
	}
	return &provider.Result{MessageID: res.MessageID}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "smtp"
}
