// Package stdout implements a Provider that prints emails to standard
// output instead of delivering them. Useful for dry runs and local
// development.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/saltwire/courier/internal/email"
	"github.com/saltwire/courier/internal/provider"
)

// Provider prints the composed RFC 2822 message to stdout.
type Provider struct {
	// writer is the output destination, defaulting to os.Stdout.
	writer io.Writer
}

// New creates a new stdout Provider that writes to os.Stdout.
func New() *Provider {
	return &Provider{writer: os.Stdout}
}

// NewWithWriter creates a new stdout Provider that writes to the given
// writer. This is useful for testing.
func NewWithWriter(w io.Writer) *Provider {
	return &Provider{writer: w}
}

// Send composes the message exactly as the SMTP path would and prints
// it. It fails only if the message itself cannot be built.
func (p *Provider) Send(_ context.Context, msg *email.Message) (*provider.Result, error) {
	raw, messageID, err := email.Build(msg)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(p.writer, "========================================")
	p.writer.Write(raw)
	fmt.Fprintln(p.writer, "========================================")

	return &provider.Result{MessageID: messageID}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stdout"
}
