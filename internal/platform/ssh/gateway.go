package ssh

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alessio/shellescape"
	"github.com/go-logr/logr"
	"golang.org/x/term"

	"github.com/imamik/hadoop-ec2/internal/metrics"
	"github.com/imamik/hadoop-ec2/internal/util/retry"
)

const (
	defaultRetries      = 5
	defaultRetryDelay   = 30 * time.Second
	defaultProbeTimeout = 3 * time.Second
	probeCommand        = "true"
)

// Gateway runs remote commands under a retry policy.
type Gateway struct {
	transport    Transport
	policy       retry.Policy
	probeTimeout time.Duration
	stdin        *os.File
	stdout       io.Writer
	stderr       io.Writer
	logger       logr.Logger
	recorder     *metrics.Recorder
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithPolicy sets the retry policy shared by Execute, Read and Write.
func WithPolicy(p retry.Policy) Option {
	return func(g *Gateway) {
		g.policy = p
	}
}

// WithProbeTimeout sets the connect timeout of Probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.probeTimeout = d
	}
}

// WithOutput sets where Execute and Shell stream remote output.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(g *Gateway) {
		g.stdout = stdout
		g.stderr = stderr
	}
}

// WithInput sets the terminal Shell reads from.
func WithInput(stdin *os.File) Option {
	return func(g *Gateway) {
		g.stdin = stdin
	}
}

func WithLogger(l logr.Logger) Option {
	return func(g *Gateway) {
		g.logger = l
	}
}

func WithRecorder(r *metrics.Recorder) Option {
	return func(g *Gateway) {
		g.recorder = r
	}
}

// NewGateway creates a gateway over transport. Without options it retries
// five times, thirty seconds apart.
func NewGateway(transport Transport, opts ...Option) *Gateway {
	g := &Gateway{
		transport:    transport,
		policy:       retry.Policy{MaxRetries: defaultRetries, Backoff: retry.Fixed(defaultRetryDelay)},
		probeTimeout: defaultProbeTimeout,
		stdin:        os.Stdin,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		logger:       logr.Discard(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Command joins args into a single shell-quoted command line.
func Command(args ...string) string {
	return shellescape.QuoteCommand(args)
}

// Execute runs command on host with a pseudo-terminal, streaming its
// output.
func (g *Gateway) Execute(ctx context.Context, host, command string) error {
	return g.run(ctx, "execute", host, command, func() Request {
		return Request{Command: command, PTY: true, Stdout: g.stdout, Stderr: g.stderr}
	}, nil)
}

// Read runs args on host and returns its standard output. A non-zero
// exit fails with the captured output attached to the *CommandError.
func (g *Gateway) Read(ctx context.Context, host string, args ...string) ([]byte, error) {
	command := Command(args...)
	var out bytes.Buffer
	err := g.run(ctx, "read", host, command, func() Request {
		out.Reset()
		return Request{Command: command, Stdout: &out, Stderr: g.stderr}
	}, func(err error) {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			cmdErr.Output = out.String()
		}
	})
	if err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Write runs args on host with payload streamed to its standard input.
func (g *Gateway) Write(ctx context.Context, host string, payload []byte, args ...string) error {
	command := Command(args...)
	return g.run(ctx, "write", host, command, func() Request {
		return Request{Command: command, Stdin: bytes.NewReader(payload), Stdout: io.Discard, Stderr: g.stderr}
	}, nil)
}

// Probe makes a single short attempt to run a no-op command on host.
func (g *Gateway) Probe(ctx context.Context, host string) bool {
	err := g.transport.Run(ctx, host, Request{
		Command:     probeCommand,
		Stdout:      io.Discard,
		Stderr:      io.Discard,
		DialTimeout: g.probeTimeout,
	})
	g.recorder.RecordSSHAttempt("probe", err)
	if err != nil {
		g.logger.V(1).Info("SSH probe failed", "host", host, "error", err.Error())
		return false
	}
	return true
}

// Shell opens an interactive login shell on host. When the input is a
// terminal it is switched to raw mode for the duration of the session.
func (g *Gateway) Shell(ctx context.Context, host string) error {
	req := Request{Interactive: true, Stdout: g.stdout, Stderr: g.stderr}

	if g.stdin != nil {
		req.Stdin = g.stdin
		fd := int(g.stdin.Fd())
		if term.IsTerminal(fd) {
			if w, h, err := term.GetSize(fd); err == nil {
				req.Width, req.Height = w, h
			}
			state, err := term.MakeRaw(fd)
			if err != nil {
				return err
			}
			defer func() { _ = term.Restore(fd, state) }()
		}
	}

	err := g.transport.Run(ctx, host, req)
	var te *TransportError
	if errors.As(err, &te) && te.Auth {
		return &AuthError{Host: host, Err: err}
	}
	return err
}

func (g *Gateway) run(ctx context.Context, op, host, command string, request func() Request, annotate func(error)) error {
	err := retry.Do(ctx, g.policy, func(attempt int) error {
		err := g.transport.Run(ctx, host, request())
		g.recorder.RecordSSHAttempt(op, err)
		if err == nil {
			return nil
		}
		if annotate != nil {
			annotate(err)
		}
		if ctx.Err() == nil && !g.policy.Exhausted(attempt) {
			g.logger.Info("Error executing remote command, retrying",
				"host", host,
				"command", truncate(command),
				"retryIn", g.policy.Delay(attempt+1).String(),
				"error", err.Error())
		}
		return err
	})
	if err == nil || ctx.Err() != nil {
		return err
	}

	var te *TransportError
	if errors.As(err, &te) && te.Auth {
		return &AuthError{Host: host, Err: err}
	}
	return err
}

func truncate(command string) string {
	command = strings.TrimSpace(command)
	if len(command) > 80 {
		return command[:77] + "..."
	}
	return command
}
