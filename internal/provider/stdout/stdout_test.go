package stdout

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/saltwire/courier/internal/email"
)

func TestName(t *testing.T) {
	t.Parallel()
	if got := New().Name(); got != "stdout" {
		t.Errorf("Name(): got %q, want stdout", got)
	}
}

func TestSend_PrintsComposedMessage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	res, err := p.Send(context.Background(), &email.Message{
		From:    "a@x.com",
		To:      "b@y.com",
		Subject: "Hi",
		Text:    "hello",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "From: a@x.com") {
		t.Errorf("output missing From header:\n%s", out)
	}
	if !strings.Contains(out, "Subject: Hi") {
		t.Errorf("output missing Subject header:\n%s", out)
	}
	if !strings.Contains(out, "Message-ID: "+res.MessageID) {
		t.Errorf("output missing Message-ID %q:\n%s", res.MessageID, out)
	}
}

func TestSend_InvalidMessage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	if _, err := p.Send(context.Background(), &email.Message{}); err == nil {
		t.Fatal("Send accepted an empty message")
	}
	if buf.Len() != 0 {
		t.Errorf("output written for invalid message: %q", buf.String())
	}
}
