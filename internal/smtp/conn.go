package smtp

import (
	"bufio"
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// maxReplyLineLen bounds a single reply line to prevent memory
// exhaustion from a misbehaving server.
const maxReplyLineLen = 2048

// conn wraps a net.Conn with buffered SMTP line I/O. It is owned by
// exactly one in-flight send and is never reused afterwards.
type conn struct {
	nc          net.Conn
	br          *bufio.Reader
	bw          *bufio.Writer
	readTimeout time.Duration
	closed      bool
}

func newConn(nc net.Conn, readTimeout time.Duration) *conn {
	return &conn{
		nc:          nc,
		br:          bufio.NewReader(nc),
		bw:          bufio.NewWriter(nc),
		readTimeout: readTimeout,
	}
}

// upgradeTLS performs an in-place TLS handshake over the existing
// connection and resets the buffered reader and writer. No buffered
// plaintext may be pending when this is called; the strict
// command/response sequencing guarantees that.
func (c *conn) upgradeTLS(serverName string, cfg *tls.Config) error {
	if cfg == nil {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.ServerName == "" {
		cfg = cfg.Clone()
		cfg.ServerName = serverName
	}

	tlsConn := tls.Client(c.nc, cfg)
	if err := c.nc.SetDeadline(time.Now().Add(c.readTimeout)); err != nil {
		return err
	}
	if err := tlsConn.Handshake(); err != nil {
		return fmt.Errorf("tls handshake: %w", err)
	}
	c.nc.SetDeadline(time.Time{})

	c.nc = tlsConn
	c.br = bufio.NewReader(tlsConn)
	c.bw = bufio.NewWriter(tlsConn)
	return nil
}

// writeLine sends one command line terminated by CRLF and flushes.
func (c *conn) writeLine(step, line string) error {
	c.nc.SetWriteDeadline(time.Now().Add(c.readTimeout))
	if _, err := c.bw.WriteString(line + "\r\n"); err != nil {
		return c.classify(step, err)
	}
	if err := c.bw.Flush(); err != nil {
		return c.classify(step, err)
	}
	return nil
}

// readReply reads one complete SMTP reply, following continuation lines
// until the final line (space at index 3) arrives. Lines are only
// inspected once fully CRLF-terminated, so a reply split across TCP
// segments is reassembled before the continuation marker is checked.
// Each reply read is bounded by the configured read timeout.
func (c *conn) readReply(step string) (Reply, error) {
	c.nc.SetReadDeadline(time.Now().Add(c.readTimeout))

	var reply Reply
	for {
		line, err := c.br.ReadString('\n')
		if err != nil {
			return Reply{}, c.classify(step, err)
		}
		line = strings.TrimRight(line, "\r\n")

		if len(line) > maxReplyLineLen {
			return Reply{}, fmt.Errorf("smtp: %s: reply line too long (%d bytes)", step, len(line))
		}
		if len(line) < 3 {
			return Reply{}, fmt.Errorf("smtp: %s: malformed reply line %q", step, line)
		}

		code, err := strconv.Atoi(line[:3])
		if err != nil {
			return Reply{}, fmt.Errorf("smtp: %s: invalid reply code in %q", step, line)
		}
		if reply.Code != 0 && reply.Code != code {
			return Reply{}, fmt.Errorf("smtp: %s: inconsistent reply codes %d and %d", step, reply.Code, code)
		}
		reply.Code = code

		// A bare "250" line is a final line with no text.
		if len(line) == 3 {
			reply.Lines = append(reply.Lines, "")
			return reply, nil
		}

		switch line[3] {
		case '-':
			reply.Lines = append(reply.Lines, line[4:])
		case ' ':
			reply.Lines = append(reply.Lines, line[4:])
			return reply, nil
		default:
			return Reply{}, fmt.Errorf("smtp: %s: malformed reply separator in %q", step, line)
		}
	}
}

// cmd sends one command and reads its reply. The protocol is strictly
// half duplex; the next command must not be written until this returns.
func (c *conn) cmd(step, format string, args ...any) (Reply, error) {
	if err := c.writeLine(step, fmt.Sprintf(format, args...)); err != nil {
		return Reply{}, err
	}
	return c.readReply(step)
}

// writeData transmits a dot-stuffed message body followed by the
// "\r\n.\r\n" terminator (RFC 5321 §4.5.2).
func (c *conn) writeData(raw []byte) error {
	c.nc.SetWriteDeadline(time.Now().Add(c.readTimeout))

	// The built message always ends with CRLF; trim it so the split
	// does not emit a trailing empty line before the terminator.
	raw = bytes.TrimSuffix(raw, []byte("\r\n"))

	for _, line := range bytes.Split(raw, []byte("\r\n")) {
		if len(line) > 0 && line[0] == '.' {
			if err := c.bw.WriteByte('.'); err != nil {
				return c.classify("DATA", err)
			}
		}
		if _, err := c.bw.Write(line); err != nil {
			return c.classify("DATA", err)
		}
		if _, err := c.bw.WriteString("\r\n"); err != nil {
			return c.classify("DATA", err)
		}
	}

	if _, err := c.bw.WriteString(".\r\n"); err != nil {
		return c.classify("DATA", err)
	}
	if err := c.bw.Flush(); err != nil {
		return c.classify("DATA", err)
	}
	return nil
}

// classify maps deadline overruns to TimeoutError; other transport
// errors pass through wrapped with the step name.
func (c *conn) classify(step string, err error) error {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return &TimeoutError{Step: step, Timeout: c.readTimeout}
	}
	return fmt.Errorf("smtp: %s: %w", step, err)
}

// close closes the underlying socket. Safe to call more than once; the
// socket is closed exactly once.
func (c *conn) close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.nc.Close()
}
