package email

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Build renders the message as an RFC 2822 document with CRLF line
// endings, ready for SMTP DATA transmission. When both bodies are
// present it produces a multipart/alternative envelope with the plain
// text part first; with a single body it produces a single-part
// document. The generated Message-ID is returned alongside the raw
// bytes so callers can record it.
func Build(msg *Message) ([]byte, string, error) {
	if err := msg.Validate(); err != nil {
		return nil, "", err
	}

	messageID := newMessageID(msg.From)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", msg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", msg.Subject))
	fmt.Fprintf(&buf, "Message-ID: %s\r\n", messageID)
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")

	switch {
	case msg.Text != "" && msg.HTML != "":
		boundary, err := newBoundary()
		if err != nil {
			return nil, "", err
		}
		fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
		buf.WriteString("\r\n")

		writePart(&buf, boundary, "text/plain", msg.Text)
		writePart(&buf, boundary, "text/html", msg.HTML)
		fmt.Fprintf(&buf, "--%s--\r\n", boundary)

	case msg.HTML != "":
		fmt.Fprintf(&buf, "Content-Type: text/html; charset=UTF-8\r\n")
		buf.WriteString("\r\n")
		writeBody(&buf, msg.HTML)

	default:
		fmt.Fprintf(&buf, "Content-Type: text/plain; charset=UTF-8\r\n")
		buf.WriteString("\r\n")
		writeBody(&buf, msg.Text)
	}

	return buf.Bytes(), messageID, nil
}

// writePart writes one part of a multipart/alternative body.
func writePart(buf *bytes.Buffer, boundary, contentType, body string) {
	fmt.Fprintf(buf, "--%s\r\n", boundary)
	fmt.Fprintf(buf, "Content-Type: %s; charset=UTF-8\r\n", contentType)
	fmt.Fprintf(buf, "Content-Transfer-Encoding: 8bit\r\n")
	buf.WriteString("\r\n")
	writeBody(buf, body)
	buf.WriteString("\r\n")
}

// writeBody writes body text with normalized CRLF line endings.
func writeBody(buf *bytes.Buffer, body string) {
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	for i, line := range strings.Split(normalized, "\n") {
		if i > 0 {
			buf.WriteString("\r\n")
		}
		buf.WriteString(line)
	}
	buf.WriteString("\r\n")
}

// newMessageID generates a globally unique, domain-qualified Message-ID
// using the sender's domain.
func newMessageID(from string) string {
	domain := "localhost"
	if i := strings.LastIndex(from, "@"); i >= 0 && i < len(from)-1 {
		domain = from[i+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}

// newBoundary derives a multipart boundary from the current time plus
// random bits so it cannot collide with body content.
func newBoundary() (string, error) {
	var random [8]byte
	if _, err := rand.Read(random[:]); err != nil {
		return "", fmt.Errorf("email: generating boundary: %w", err)
	}
	return fmt.Sprintf("=_%x%s", time.Now().UnixNano(), hex.EncodeToString(random[:])), nil
}
