package email

import (
	"fmt"

	dkim "github.com/toorop/go-dkim"
)

// DKIMOptions configures DKIM signing of a built message.
type DKIMOptions struct {
	// Domain is the signing domain (d= tag).
	Domain string

	// Selector is the DNS selector for the public key (s= tag).
	Selector string

	// PrivateKey is the PEM-encoded RSA private key.
	PrivateKey []byte
}

// SignDKIM signs a built RFC 2822 message and returns the message with
// the DKIM-Signature header prepended. The input slice is not modified.
func SignDKIM(raw []byte, opts DKIMOptions) ([]byte, error) {
	if opts.Domain == "" || opts.Selector == "" || len(opts.PrivateKey) == 0 {
		return nil, fmt.Errorf("email: dkim requires domain, selector and private key")
	}

	signed := make([]byte, len(raw))
	copy(signed, raw)

	sigOpts := dkim.NewSigOptions()
	sigOpts.PrivateKey = opts.PrivateKey
	sigOpts.Domain = opts.Domain
	sigOpts.Selector = opts.Selector
	sigOpts.Canonicalization = "relaxed/relaxed"
	sigOpts.Headers = []string{"from", "to", "subject", "message-id", "date", "mime-version"}
	sigOpts.AddSignatureTimestamp = true

	if err := dkim.Sign(&signed, sigOpts); err != nil {
		return nil, fmt.Errorf("email: dkim signing: %w", err)
	}
	return signed, nil
}
