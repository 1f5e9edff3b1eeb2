// Package smtp implements an SMTP submission client with ordered
// connection-strategy fallback, STARTTLS, and AUTH LOGIN/PLAIN.
package smtp

import (
	"strings"
)

// Standard reply codes the client checks for (RFC 5321 §4.2).
const (
	codeServiceReady   = 220
	codeActionOK       = 250
	codeAuthOK         = 235
	codeAuthContinue   = 334
	codeStartMailInput = 354
)

// Reply is a parsed SMTP server reply, possibly spanning multiple
// continuation lines (as EHLO capability lists do).
type Reply struct {
	Code  int
	Lines []string
}

// Success reports whether the reply indicates the command was accepted.
func (r Reply) Success() bool {
	return r.Code >= 200 && r.Code < 400
}

// Text returns the human-readable reply text with continuation lines
// joined by newlines.
func (r Reply) Text() string {
	return strings.Join(r.Lines, "\n")
}

// Has reports whether any reply line advertises the given capability
// keyword, compared case-insensitively on the first token. Used against
// EHLO replies to detect STARTTLS and AUTH support.
func (r Reply) Has(keyword string) bool {
	for _, line := range r.Lines {
		fields := strings.Fields(line)
		if len(fields) > 0 && strings.EqualFold(fields[0], keyword) {
			return true
		}
	}
	return false
}
