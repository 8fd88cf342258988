package testing

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync"

	"github.com/imamik/hadoop-ec2/internal/platform/ssh"
)

// Call records one request seen by a FakeTransport.
type Call struct {
	Host        string
	Command     string
	Interactive bool
	Stdin       []byte
}

// FakeTransport implements ssh.Transport without a network. Every host is
// reachable unless scripted otherwise.
type FakeTransport struct {
	mu sync.Mutex

	unreachable map[string]bool
	failures    map[string]int
	authFailure bool
	responses   map[string]string
	exitCodes   map[string]int
	calls       []Call
}

var _ ssh.Transport = (*FakeTransport)(nil)

func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		unreachable: map[string]bool{},
		failures:    map[string]int{},
		responses:   map[string]string{},
		exitCodes:   map[string]int{},
	}
}

// SetReachable marks host as accepting or refusing connections.
func (f *FakeTransport) SetReachable(host string, reachable bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unreachable[host] = !reachable
}

// FailNext makes the next n requests to host fail to connect.
func (f *FakeTransport) FailNext(host string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[host] += n
}

// RejectKeys makes every host reject authentication.
func (f *FakeTransport) RejectKeys() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authFailure = true
}

// Respond sets the standard output returned for command on any host.
func (f *FakeTransport) Respond(command, output string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[command] = output
}

// ExitWith makes command exit with status on any host.
func (f *FakeTransport) ExitWith(command string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exitCodes[command] = status
}

// Calls returns every request seen so far, in order.
func (f *FakeTransport) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// CallsTo returns the requests sent to host.
func (f *FakeTransport) CallsTo(host string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Host == host {
			out = append(out, c)
		}
	}
	return out
}

// Commands returns the command lines sent to host, skipping probes.
func (f *FakeTransport) Commands(host string) []string {
	var out []string
	for _, c := range f.CallsTo(host) {
		if c.Command != "true" {
			out = append(out, c.Command)
		}
	}
	return out
}

func (f *FakeTransport) Run(ctx context.Context, host string, req ssh.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	call := Call{Host: host, Command: req.Command, Interactive: req.Interactive}
	if req.Stdin != nil && !req.Interactive {
		data, err := io.ReadAll(req.Stdin)
		if err != nil {
			return err
		}
		call.Stdin = data
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	switch {
	case f.authFailure:
		f.mu.Unlock()
		return &ssh.TransportError{Host: host, Auth: true, Err: errors.New("ssh: unable to authenticate")}
	case f.unreachable[host]:
		f.mu.Unlock()
		return &ssh.TransportError{Host: host, Err: errors.New("connection refused")}
	case f.failures[host] > 0:
		f.failures[host]--
		f.mu.Unlock()
		return &ssh.TransportError{Host: host, Err: errors.New("connection reset by peer")}
	}
	output := f.responses[req.Command]
	status := f.exitCodes[req.Command]
	f.mu.Unlock()

	if req.Stdout != nil && output != "" {
		if _, err := io.WriteString(req.Stdout, output); err != nil {
			return err
		}
	}
	if status != 0 {
		return &ssh.CommandError{Host: host, Command: req.Command, ExitStatus: status}
	}
	return nil
}
