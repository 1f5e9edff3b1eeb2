package smtp

import (
	"encoding/base64"
	"fmt"
)

// authenticate performs SMTP AUTH, preferring the LOGIN mechanism and
// falling back to PLAIN if LOGIN is rejected (RFC 4954). Transport
// errors (timeouts, resets) abort immediately; only protocol rejections
// trigger the fallback.
func (c *Client) authenticate(wc *conn) error {
	loginErr := c.authLogin(wc)
	if loginErr == nil {
		return nil
	}
	if !isRejection(loginErr) {
		return loginErr
	}

	c.logger.Debug("AUTH LOGIN rejected, falling back to AUTH PLAIN", "error", loginErr)

	plainErr := c.authPlain(wc)
	if plainErr == nil {
		return nil
	}
	if !isRejection(plainErr) {
		return plainErr
	}

	return &AuthenticationError{LoginErr: loginErr, PlainErr: plainErr}
}

// authLogin runs the AUTH LOGIN challenge-response exchange: a 334
// prompt for the base64 username, a 334 prompt for the base64 password,
// then 235 on success.
func (c *Client) authLogin(wc *conn) error {
	reply, err := wc.cmd("AUTH LOGIN", "AUTH LOGIN")
	if err != nil {
		return err
	}
	if reply.Code != codeAuthContinue {
		return protocolErr("AUTH LOGIN", reply)
	}

	reply, err = wc.cmd("AUTH LOGIN username", "%s", encode64(c.cfg.Username))
	if err != nil {
		return err
	}
	if reply.Code != codeAuthContinue {
		return protocolErr("AUTH LOGIN username", reply)
	}

	reply, err = wc.cmd("AUTH LOGIN password", "%s", encode64(c.cfg.Password))
	if err != nil {
		return err
	}
	if reply.Code != codeAuthOK {
		return protocolErr("AUTH LOGIN password", reply)
	}
	return nil
}

// authPlain sends the single-shot AUTH PLAIN initial response:
// base64("\0username\0password"), expecting 235.
func (c *Client) authPlain(wc *conn) error {
	payload := encode64(fmt.Sprintf("\x00%s\x00%s", c.cfg.Username, c.cfg.Password))
	reply, err := wc.cmd("AUTH PLAIN", "AUTH PLAIN %s", payload)
	if err != nil {
		return err
	}
	if reply.Code != codeAuthOK {
		return protocolErr("AUTH PLAIN", reply)
	}
	return nil
}

// isRejection reports whether err is a server rejection (a reply with a
// non-success code) rather than a transport failure.
func isRejection(err error) bool {
	_, ok := err.(*ProtocolError)
	return ok
}

func encode64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}
