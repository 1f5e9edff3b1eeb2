// Package provider defines the interface for email delivery backends.
package provider

import (
	"context"

	"github.com/saltwire/courier/internal/email"
)

// Result reports the outcome of a successful delivery.
type Result struct {
	// MessageID identifies the delivered message: the generated
	// Message-ID header for SMTP delivery, or the backend's own ID for
	// API-based backends.
	MessageID string
}

// Provider is the interface that email delivery backends must
// implement. Each provider handles the actual sending of a composed
// message to the target service (SMTP submission, AWS SES, stdout).
type Provider interface {
	// Send delivers an email message through this provider.
	// It returns an error if the delivery fails.
	Send(ctx context.Context, msg *email.Message) (*Result, error)

	// Name returns the human-readable name of this provider.
	Name() string
}
