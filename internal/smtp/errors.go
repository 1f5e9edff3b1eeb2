package smtp

import (
	"fmt"
	"time"
)

// ConnectionError means no connection strategy produced a usable
// session. It wraps the error from the last strategy attempted.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("smtp: connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ProtocolError means the server answered a specific command with a
// non-success reply code. It carries the command name and the server's
// reply text for diagnostics.
type ProtocolError struct {
	Command string
	Code    int
	Text    string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("smtp: %s failed: %d %s", e.Command, e.Code, e.Text)
}

// AuthenticationError means both AUTH LOGIN and AUTH PLAIN were
// rejected by the server.
type AuthenticationError struct {
	LoginErr error
	PlainErr error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("smtp: authentication failed: LOGIN: %v; PLAIN: %v", e.LoginErr, e.PlainErr)
}

// TimeoutError means a single protocol step (connect or one reply read)
// did not complete within its allotted time.
type TimeoutError struct {
	Step    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("smtp: %s timed out after %s", e.Step, e.Timeout)
}

// protocolErr builds a ProtocolError from a command name and the reply
// that rejected it.
func protocolErr(command string, reply Reply) *ProtocolError {
	return &ProtocolError{Command: command, Code: reply.Code, Text: reply.Text()}
}
