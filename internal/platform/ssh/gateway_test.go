package ssh

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/hadoop-ec2/internal/util/retry"
)

type recordedCall struct {
	host  string
	req   Request
	stdin []byte
}

// scriptedTransport returns results in order; once exhausted, the last
// result repeats.
type scriptedTransport struct {
	mu      sync.Mutex
	results []error
	stdout  string
	calls   []recordedCall
}

func (s *scriptedTransport) Run(_ context.Context, host string, req Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	call := recordedCall{host: host, req: req}
	if req.Stdin != nil {
		call.stdin, _ = io.ReadAll(req.Stdin)
	}
	s.calls = append(s.calls, call)

	if req.Stdout != nil && s.stdout != "" {
		_, _ = io.WriteString(req.Stdout, s.stdout)
	}

	if len(s.results) == 0 {
		return nil
	}
	idx := len(s.calls) - 1
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	return s.results[idx]
}

func (s *scriptedTransport) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func newTestGateway(tr Transport) *Gateway {
	return NewGateway(tr,
		WithPolicy(retry.Immediate(5)),
		WithOutput(io.Discard, io.Discard),
	)
}

func TestGateway_ExecuteSucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()
	refused := &TransportError{Host: "node", Err: errors.New("connection refused")}
	tr := &scriptedTransport{results: []error{refused, refused, nil}}

	err := newTestGateway(tr).Execute(context.Background(), "node", "hostname")

	require.NoError(t, err)
	assert.Equal(t, 3, tr.callCount())
	assert.True(t, tr.calls[0].req.PTY, "execute allocates a pseudo-terminal")
	assert.Equal(t, "hostname", tr.calls[0].req.Command)
}

func TestGateway_NonAuthFailureRetriedFiveTimesThenRaw(t *testing.T) {
	t.Parallel()
	refused := &TransportError{Host: "node", Err: errors.New("connection refused")}
	tr := &scriptedTransport{results: []error{refused}}

	err := newTestGateway(tr).Execute(context.Background(), "node", "true")

	require.Error(t, err)
	assert.Equal(t, 6, tr.callCount(), "1 attempt plus 5 retries")
	assert.Same(t, refused, err, "raw transport error is returned unchanged")
	assert.False(t, IsAuthFailure(err))
}

func TestGateway_AuthFailureSurfacesAuthError(t *testing.T) {
	t.Parallel()
	denied := &TransportError{Host: "node", Auth: true, Err: errors.New("ssh: unable to authenticate")}
	tr := &scriptedTransport{results: []error{denied}}

	err := newTestGateway(tr).Execute(context.Background(), "node", "true")

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "node", authErr.Host)
	assert.Contains(t, err.Error(), "--identity-file")
	assert.LessOrEqual(t, tr.callCount(), 6, "never retried beyond the bound")
	assert.True(t, IsAuthFailure(err))
}

func TestGateway_ReadReturnsOutput(t *testing.T) {
	t.Parallel()
	tr := &scriptedTransport{stdout: "payload"}

	out, err := newTestGateway(tr).Read(context.Background(), "main", "tar", "c", ".ssh")

	require.NoError(t, err)
	assert.Equal(t, "payload", string(out))
	assert.Equal(t, "tar c .ssh", tr.calls[0].req.Command)
	assert.False(t, tr.calls[0].req.PTY)
}

func TestGateway_ReadAttachesOutputToCommandError(t *testing.T) {
	t.Parallel()
	tr := &scriptedTransport{
		stdout:  "tar: .ssh: Cannot stat",
		results: []error{&CommandError{Host: "main", Command: "tar c .ssh", ExitStatus: 2}},
	}

	_, err := NewGateway(tr, WithPolicy(retry.Immediate(0))).Read(context.Background(), "main", "tar", "c", ".ssh")

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 2, cmdErr.ExitStatus)
	assert.Equal(t, "tar: .ssh: Cannot stat", cmdErr.Output)
	assert.Contains(t, err.Error(), "Cannot stat")
}

func TestGateway_WriteStreamsPayloadOnEveryAttempt(t *testing.T) {
	t.Parallel()
	tr := &scriptedTransport{results: []error{&CommandError{ExitStatus: 1}, nil}}

	err := newTestGateway(tr).Write(context.Background(), "sub-1", []byte("trust"), "tar", "x")

	require.NoError(t, err)
	require.Equal(t, 2, tr.callCount())
	for _, c := range tr.calls {
		assert.Equal(t, "trust", string(c.stdin))
		assert.Equal(t, "tar x", c.req.Command)
	}
}

func TestGateway_CommandQuoting(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "tar c .ssh", Command("tar", "c", ".ssh"))
	assert.Equal(t, "echo 'hello world'", Command("echo", "hello world"))
	assert.Equal(t, `echo ''"'"'quoted'"'"''`, Command("echo", "'quoted'"))
}

func TestGateway_ProbeIsSingleShortAttempt(t *testing.T) {
	t.Parallel()
	tr := &scriptedTransport{results: []error{&TransportError{Err: errors.New("timeout")}}}
	g := NewGateway(tr, WithPolicy(retry.Immediate(5)), WithProbeTimeout(3*time.Second))

	assert.False(t, g.Probe(context.Background(), "node"))
	require.Equal(t, 1, tr.callCount())
	assert.Equal(t, "true", tr.calls[0].req.Command)
	assert.Equal(t, 3*time.Second, tr.calls[0].req.DialTimeout)

	ok := &scriptedTransport{}
	assert.True(t, NewGateway(ok).Probe(context.Background(), "node"))
}

func TestGateway_ContextCancellationStopsRetrying(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	tr := &scriptedTransport{results: []error{&TransportError{Err: errors.New("refused")}}}
	g := NewGateway(tr, WithPolicy(retry.Policy{MaxRetries: 5, Backoff: retry.Fixed(time.Hour)}))

	done := make(chan error, 1)
	go func() { done <- g.Execute(ctx, "node", "true") }()

	require.Eventually(t, func() bool { return tr.callCount() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("execute did not return after cancellation")
	}
	assert.Equal(t, 1, tr.callCount())
}

func TestGateway_ShellWrapsAuthFailure(t *testing.T) {
	t.Parallel()
	tr := &scriptedTransport{results: []error{&TransportError{Auth: true, Err: errors.New("denied")}}}
	g := NewGateway(tr, WithInput(nil), WithOutput(io.Discard, io.Discard))

	err := g.Shell(context.Background(), "main")

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, 1, tr.callCount())
	assert.True(t, tr.calls[0].req.Interactive)
}
