package testing

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/imamik/hadoop-ec2/internal/config"
	"github.com/imamik/hadoop-ec2/internal/platform/ec2"
	"github.com/imamik/hadoop-ec2/internal/platform/ssh"
	"github.com/imamik/hadoop-ec2/internal/provisioning"
	"github.com/imamik/hadoop-ec2/internal/util/retry"
)

// RecordingObserver is a provisioning.Observer that keeps every message
// and event. It is safe for concurrent use.
type RecordingObserver struct {
	mu       *sync.Mutex
	messages *[]string
	events   *[]provisioning.Event
}

var _ provisioning.Observer = (*RecordingObserver)(nil)

func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{
		mu:       &sync.Mutex{},
		messages: &[]string{},
		events:   &[]provisioning.Event{},
	}
}

func (o *RecordingObserver) Printf(format string, v ...any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	*o.messages = append(*o.messages, fmt.Sprintf(format, v...))
}

func (o *RecordingObserver) Event(event provisioning.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	*o.events = append(*o.events, event)
	*o.messages = append(*o.messages, event.Message)
}

func (o *RecordingObserver) Progress(phase string, current, total int) {
	o.Event(provisioning.Event{
		Type:    provisioning.EventProgress,
		Phase:   phase,
		Message: fmt.Sprintf("%d/%d", current, total),
	})
}

// WithFields returns an observer sharing this one's records.
func (o *RecordingObserver) WithFields(map[string]string) provisioning.Observer {
	return o
}

// Messages returns every recorded message.
func (o *RecordingObserver) Messages() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), *o.messages...)
}

// Events returns the recorded events of the given type.
func (o *RecordingObserver) Events(t provisioning.EventType) []provisioning.Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []provisioning.Event
	for _, e := range *o.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Warnings returns the messages of every warning event.
func (o *RecordingObserver) Warnings() []string {
	var out []string
	for _, e := range o.Events(provisioning.EventWarning) {
		out = append(out, e.Message)
	}
	return out
}

// Logged reports whether any message contains substr.
func (o *RecordingObserver) Logged(substr string) bool {
	for _, m := range o.Messages() {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

// Env bundles the fakes behind a provisioning.Context.
type Env struct {
	Ctx       *provisioning.Context
	API       *FakeEC2
	Transport *FakeTransport
	Observer  *RecordingObserver
}

// NewEnv wires a provisioning context to a fresh FakeEC2 and
// FakeTransport through the real EC2 wrapper and SSH gateway. Remote
// commands retry without delay.
func NewEnv(t *testing.T, cfg *config.Config) *Env {
	t.Helper()
	api := NewFakeEC2()
	transport := NewFakeTransport()
	observer := NewRecordingObserver()

	gateway := ssh.NewGateway(transport,
		ssh.WithPolicy(retry.Immediate(cfg.Timeouts.SSHRetries)),
		ssh.WithOutput(io.Discard, io.Discard),
		ssh.WithInput(nil),
	)
	ctx := provisioning.NewContext(TestContext(t), cfg, ec2.NewRealClient(api), gateway,
		provisioning.WithObserver(observer))

	return &Env{Ctx: ctx, API: api, Transport: transport, Observer: observer}
}
