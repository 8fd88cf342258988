package ssh

import (
	"errors"
	"fmt"
)

// TransportError reports a failure to reach or authenticate against a host.
type TransportError struct {
	Host string
	// Auth is set when the server rejected every offered key.
	Auth bool
	Err  error
}

func (e *TransportError) Error() string {
	if e.Auth {
		return fmt.Sprintf("ssh authentication to %s failed: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("ssh connection to %s failed: %v", e.Host, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// CommandError reports a remote command that exited non-zero.
type CommandError struct {
	Host       string
	Command    string
	ExitStatus int
	// Output holds the captured stdout of Read calls.
	Output string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %q on %s exited with status %d", e.Command, e.Host, e.ExitStatus)
	if e.Output != "" {
		msg += "\nOutput: " + e.Output
	}
	return msg
}

// AuthError is returned once the retry envelope is exhausted on an
// authentication failure.
type AuthError struct {
	Host string
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("failed to SSH to remote host %s: please check that you have provided the correct --identity-file and --key-pair parameters and try again", e.Host)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsAuthFailure reports whether err is an authentication failure.
func IsAuthFailure(err error) bool {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return true
	}
	var te *TransportError
	return errors.As(err, &te) && te.Auth
}
