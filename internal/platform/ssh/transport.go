package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

const (
	defaultPort        = 22
	defaultDialTimeout = 10 * time.Second
	defaultTerm        = "xterm"
	defaultWidth       = 80
	defaultHeight      = 40
)

// Request describes a single remote invocation.
type Request struct {
	Command string

	// PTY allocates a pseudo-terminal for the command.
	PTY bool
	// Interactive starts a login shell instead of Command; implies PTY.
	Interactive bool
	// Width and Height size the pseudo-terminal. Zero uses 80x40.
	Width, Height int

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// DialTimeout bounds connection setup. Zero uses the transport default.
	DialTimeout time.Duration
}

// Transport runs one request against one host, without retrying.
type Transport interface {
	Run(ctx context.Context, host string, req Request) error
}

// SSHTransport implements Transport with golang.org/x/crypto/ssh.
// The private key is parsed once at construction.
type SSHTransport struct {
	user            string
	port            int
	signer          ssh.Signer
	dialTimeout     time.Duration
	hostKeyCallback ssh.HostKeyCallback
}

// TransportOption configures an SSHTransport.
type TransportOption func(*SSHTransport)

// WithPort overrides the SSH port.
func WithPort(port int) TransportOption {
	return func(t *SSHTransport) {
		t.port = port
	}
}

// WithDialTimeout overrides the default connection timeout.
func WithDialTimeout(d time.Duration) TransportOption {
	return func(t *SSHTransport) {
		t.dialTimeout = d
	}
}

// NewTransport creates a transport that logs in as user with privateKey.
func NewTransport(user string, privateKey []byte, opts ...TransportOption) (*SSHTransport, error) {
	if user == "" {
		return nil, fmt.Errorf("ssh user cannot be empty")
	}
	if len(privateKey) == 0 {
		return nil, fmt.Errorf("private key cannot be empty")
	}

	signer, err := ssh.ParsePrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	t := &SSHTransport{
		user:            user,
		port:            defaultPort,
		signer:          signer,
		dialTimeout:     defaultDialTimeout,
		hostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // nodes are ephemeral
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// LoadTransport reads the identity file and creates a transport from it.
func LoadTransport(user, identityFile string, opts ...TransportOption) (*SSHTransport, error) {
	// #nosec G304
	key, err := os.ReadFile(identityFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read identity file: %w", err)
	}
	return NewTransport(user, key, opts...)
}

// Run connects to host and runs the request to completion. Cancelling
// ctx closes the connection.
func (t *SSHTransport) Run(ctx context.Context, host string, req Request) error {
	client, err := t.dial(ctx, host, req.DialTimeout)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	defer stop()

	session, err := client.NewSession()
	if err != nil {
		return &TransportError{Host: host, Err: fmt.Errorf("failed to open session: %w", err)}
	}
	defer func() { _ = session.Close() }()

	session.Stdin = req.Stdin
	session.Stdout = req.Stdout
	session.Stderr = req.Stderr

	if req.PTY || req.Interactive {
		width, height := req.Width, req.Height
		if width == 0 || height == 0 {
			width, height = defaultWidth, defaultHeight
		}
		modes := ssh.TerminalModes{ssh.ECHO: 1}
		if err := session.RequestPty(defaultTerm, height, width, modes); err != nil {
			return &TransportError{Host: host, Err: fmt.Errorf("failed to allocate pty: %w", err)}
		}
	}

	if req.Interactive {
		err = session.Shell()
		if err == nil {
			err = session.Wait()
		}
	} else {
		err = session.Run(req.Command)
	}
	if err == nil {
		return nil
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return &CommandError{Host: host, Command: req.Command, ExitStatus: exitErr.ExitStatus()}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &TransportError{Host: host, Err: err}
}

func (t *SSHTransport) dial(ctx context.Context, host string, timeout time.Duration) (*ssh.Client, error) {
	if timeout == 0 {
		timeout = t.dialTimeout
	}
	addr := net.JoinHostPort(host, strconv.Itoa(t.port))

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &TransportError{Host: host, Err: err}
	}

	// Bound the handshake as well as the TCP connect
	_ = conn.SetDeadline(time.Now().Add(timeout))
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, &ssh.ClientConfig{
		User:            t.user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(t.signer)},
		HostKeyCallback: t.hostKeyCallback,
		Timeout:         timeout,
	})
	if err != nil {
		_ = conn.Close()
		return nil, &TransportError{Host: host, Auth: isAuthHandshakeError(err), Err: err}
	}
	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(c, chans, reqs), nil
}

// isAuthHandshakeError detects the handshake failure x/crypto/ssh reports
// once the server has rejected every auth method.
func isAuthHandshakeError(err error) bool {
	return strings.Contains(err.Error(), "unable to authenticate")
}
