// Package email defines the outbound message model and MIME composition
// for the courier delivery client.
package email

import (
	"fmt"
	"strings"
)

// Message represents a single outbound email message.
// From and To carry exactly one address each; at least one of Text and
// HTML must be set before the message can be sent.
type Message struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

// ValidationError reports a message that cannot be sent as composed.
// It is returned before any network connection is opened.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("email: invalid message: %s %s", e.Field, e.Reason)
}

// Validate checks that the message has a sender, a recipient, and at
// least one body. Address shape beyond "contains @" is not enforced;
// that is the composing caller's responsibility.
func (m *Message) Validate() error {
	if strings.TrimSpace(m.From) == "" {
		return &ValidationError{Field: "from", Reason: "is empty"}
	}
	if !strings.Contains(m.From, "@") {
		return &ValidationError{Field: "from", Reason: "is not an email address"}
	}
	if strings.TrimSpace(m.To) == "" {
		return &ValidationError{Field: "to", Reason: "is empty"}
	}
	if !strings.Contains(m.To, "@") {
		return &ValidationError{Field: "to", Reason: "is not an email address"}
	}
	if m.Text == "" && m.HTML == "" {
		return &ValidationError{Field: "body", Reason: "requires text or html content"}
	}
	return nil
}
