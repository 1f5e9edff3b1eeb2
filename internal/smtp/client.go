package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/saltwire/courier/internal/email"
)

// Default timeouts: connect covers the TCP (and TLS) handshake of one
// strategy; read bounds each individual reply wait.
const (
	defaultConnectTimeout = 30 * time.Second
	defaultReadTimeout    = 10 * time.Second
)

// Well-known submission ports.
const (
	implicitTLSPort = 465
	submissionPort  = 587
)

// Config holds the connection parameters for one SMTP server. All
// values are injected by the caller; the client never reads the
// environment itself.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// Secure requests implicit TLS on connect. When false the client
	// connects in plaintext and upgrades via STARTTLS where possible.
	Secure bool

	// ConnectTimeout bounds the TCP/TLS handshake of each connection
	// strategy. ReadTimeout bounds each individual reply read.
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	// LocalName is the client identity sent in EHLO. Defaults to
	// "localhost".
	LocalName string

	// TLSConfig overrides the TLS client configuration used for both
	// implicit TLS and STARTTLS. ServerName defaults to Host.
	TLSConfig *tls.Config

	// Sign, when set, transforms the built message before transmission
	// (e.g. DKIM signing).
	Sign func([]byte) ([]byte, error)

	// Logger receives per-step debug logging. Defaults to slog.Default.
	Logger *slog.Logger
}

// Result reports a successfully delivered message.
type Result struct {
	// MessageID is the generated Message-ID header value.
	MessageID string

	// Reply is the server's text from the final DATA acceptance.
	Reply string
}

// Client delivers messages to a single SMTP server. A Client is
// stateless between sends; every Send opens, uses, and closes its own
// connection. Concurrent sends each get an independent socket.
type Client struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Client for the given server configuration.
func New(cfg Config) *Client {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.LocalName == "" {
		cfg.LocalName = "localhost"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, logger: logger}
}

// Send delivers one message over one connection. The message is
// validated and rendered before any socket is opened; any failure
// before the DATA terminator is accepted means nothing was delivered.
// The socket is closed on every exit path.
func (c *Client) Send(ctx context.Context, msg *email.Message) (*Result, error) {
	raw, messageID, err := email.Build(msg)
	if err != nil {
		return nil, err
	}
	if c.cfg.Sign != nil {
		raw, err = c.cfg.Sign(raw)
		if err != nil {
			return nil, err
		}
	}

	sess, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.wc.close()

	if c.cfg.Username != "" {
		if err := c.authenticate(sess.wc); err != nil {
			return nil, err
		}
	}

	final, err := c.transact(sess.wc, msg.From, msg.To, raw)
	if err != nil {
		return nil, err
	}

	// The message has been accepted; a QUIT failure no longer matters.
	if reply, err := sess.wc.cmd("QUIT", "QUIT"); err != nil {
		c.logger.Debug("QUIT failed after delivery", "error", err)
	} else if !reply.Success() {
		c.logger.Debug("QUIT rejected after delivery", "code", reply.Code)
	}

	c.logger.Info("message delivered",
		"host", c.cfg.Host,
		"to", msg.To,
		"message_id", messageID,
	)

	return &Result{MessageID: messageID, Reply: final.Text()}, nil
}

// session is an established, greeted connection with the extensions
// from the most recent EHLO.
type session struct {
	wc   *conn
	exts Reply
}

// strategy is one way of establishing a session. Strategies are tried
// in order; each failed attempt closes its own socket before the next
// one runs.
type strategy struct {
	name string
	dial func(ctx context.Context) (*session, error)
}

// strategies returns the ordered connection strategies for the
// configured server: implicit TLS (only when requested or on port 465),
// then STARTTLS upgrade, then legacy plaintext.
func (c *Client) strategies() []strategy {
	var list []strategy
	if c.cfg.Secure || c.cfg.Port == implicitTLSPort {
		list = append(list, strategy{"direct-tls", c.dialTLS})
	}
	list = append(list,
		strategy{"starttls", c.dialStartTLS},
		strategy{"plaintext", c.dialPlain},
	)
	return list
}

// connect tries each strategy in order. Retrying across strategies
// happens only here, before any mail transaction has begun; once a
// session is returned there are no further retries.
func (c *Client) connect(ctx context.Context) (*session, error) {
	var lastErr error
	for _, s := range c.strategies() {
		sess, err := s.dial(ctx)
		if err == nil {
			c.logger.Debug("connected", "strategy", s.name, "host", c.cfg.Host, "port", c.cfg.Port)
			return sess, nil
		}
		c.logger.Debug("connection strategy failed", "strategy", s.name, "error", err)
		lastErr = err
	}
	return nil, &ConnectionError{Err: lastErr}
}

// dialTLS opens a TLS connection directly (implicit TLS, typically
// port 465) and reads the greeting over the encrypted channel.
func (c *Client) dialTLS(ctx context.Context) (*session, error) {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: c.cfg.ConnectTimeout},
		Config:    c.tlsConfig(),
	}
	nc, err := dialer.DialContext(ctx, "tcp", c.addr())
	if err != nil {
		return nil, fmt.Errorf("dial tls %s: %w", c.addr(), err)
	}
	return c.greet(newConn(nc, c.cfg.ReadTimeout))
}

// dialStartTLS opens a plaintext connection and upgrades it in place
// via STARTTLS. The upgrade is attempted when the server advertises the
// capability or the port is the 587 submission port; otherwise this
// strategy fails so the plaintext fallback gets a fresh connection.
// EHLO is re-issued after the upgrade (RFC 3207 §4.2).
func (c *Client) dialStartTLS(ctx context.Context) (*session, error) {
	sess, err := c.dialPlain(ctx)
	if err != nil {
		return nil, err
	}

	if !sess.exts.Has("STARTTLS") && c.cfg.Port != submissionPort {
		sess.wc.close()
		return nil, fmt.Errorf("server %s does not advertise STARTTLS", c.addr())
	}

	reply, err := sess.wc.cmd("STARTTLS", "STARTTLS")
	if err != nil {
		sess.wc.close()
		return nil, err
	}
	if reply.Code != codeServiceReady {
		sess.wc.close()
		return nil, protocolErr("STARTTLS", reply)
	}

	if err := sess.wc.upgradeTLS(c.cfg.Host, c.tlsConfig()); err != nil {
		sess.wc.close()
		return nil, err
	}

	exts, err := c.ehlo(sess.wc)
	if err != nil {
		sess.wc.close()
		return nil, err
	}
	sess.exts = exts
	return sess, nil
}

// dialPlain opens a plaintext connection with no TLS.
func (c *Client) dialPlain(ctx context.Context) (*session, error) {
	dialer := &net.Dialer{Timeout: c.cfg.ConnectTimeout}
	nc, err := dialer.DialContext(ctx, "tcp", c.addr())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.addr(), err)
	}
	return c.greet(newConn(nc, c.cfg.ReadTimeout))
}

// greet reads the server greeting (must be 220) and issues EHLO. On any
// failure the partially opened socket is closed before returning.
func (c *Client) greet(wc *conn) (*session, error) {
	reply, err := wc.readReply("greeting")
	if err != nil {
		wc.close()
		return nil, err
	}
	if reply.Code != codeServiceReady {
		wc.close()
		return nil, protocolErr("greeting", reply)
	}

	exts, err := c.ehlo(wc)
	if err != nil {
		wc.close()
		return nil, err
	}
	return &session{wc: wc, exts: exts}, nil
}

// ehlo sends EHLO and returns the capability reply.
func (c *Client) ehlo(wc *conn) (Reply, error) {
	reply, err := wc.cmd("EHLO", "EHLO %s", c.cfg.LocalName)
	if err != nil {
		return Reply{}, err
	}
	if reply.Code != codeActionOK {
		return Reply{}, protocolErr("EHLO", reply)
	}
	return reply, nil
}

// transact runs the mail transaction: MAIL FROM, RCPT TO, DATA, the
// dot-stuffed body with its terminator, and returns the final
// acceptance reply. Steps are strictly sequential; a non-success reply
// at any point aborts the send.
func (c *Client) transact(wc *conn, from, to string, raw []byte) (Reply, error) {
	reply, err := wc.cmd("MAIL FROM", "MAIL FROM:<%s>", from)
	if err != nil {
		return Reply{}, err
	}
	if reply.Code != codeActionOK {
		return Reply{}, protocolErr("MAIL FROM", reply)
	}

	reply, err = wc.cmd("RCPT TO", "RCPT TO:<%s>", to)
	if err != nil {
		return Reply{}, err
	}
	if reply.Code != codeActionOK {
		return Reply{}, protocolErr("RCPT TO", reply)
	}

	reply, err = wc.cmd("DATA", "DATA")
	if err != nil {
		return Reply{}, err
	}
	if reply.Code != codeStartMailInput {
		return Reply{}, protocolErr("DATA", reply)
	}

	if err := wc.writeData(raw); err != nil {
		return Reply{}, err
	}

	reply, err = wc.readReply("DATA")
	if err != nil {
		return Reply{}, err
	}
	if reply.Code != codeActionOK {
		return Reply{}, protocolErr("DATA", reply)
	}
	return reply, nil
}

// tlsConfig returns the TLS client configuration with ServerName
// defaulted to the target host.
func (c *Client) tlsConfig() *tls.Config {
	cfg := c.cfg.TLSConfig
	if cfg == nil {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	} else {
		cfg = cfg.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = c.cfg.Host
	}
	return cfg
}

func (c *Client) addr() string {
	return fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
}
