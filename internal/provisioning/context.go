package provisioning

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/imamik/hadoop-ec2/internal/config"
	"github.com/imamik/hadoop-ec2/internal/metrics"
	"github.com/imamik/hadoop-ec2/internal/platform/ec2"
)

// Remote runs commands on cluster hosts. It is implemented by
// *ssh.Gateway.
type Remote interface {
	Execute(ctx context.Context, host, command string) error
	Read(ctx context.Context, host string, args ...string) ([]byte, error)
	Write(ctx context.Context, host string, payload []byte, args ...string) error
	Probe(ctx context.Context, host string) bool
	Shell(ctx context.Context, host string) error
}

// Context wraps all dependencies and state needed by a workflow.
type Context struct {
	context.Context
	Config   *config.Config
	State    *State
	Cloud    ec2.CloudManager
	Remote   Remote
	Observer Observer
	Recorder *metrics.Recorder
	Timeouts *config.Timeouts
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithObserver replaces the default log-backed observer.
func WithObserver(o Observer) ContextOption {
	return func(c *Context) {
		c.Observer = o
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r *metrics.Recorder) ContextOption {
	return func(c *Context) {
		c.Recorder = r
	}
}

// NewContext creates a workflow context. The observer defaults to one
// backed by the logger carried in ctx.
func NewContext(ctx context.Context, cfg *config.Config, cloud ec2.CloudManager, remote Remote, opts ...ContextOption) *Context {
	timeouts := cfg.Timeouts
	if timeouts == nil {
		timeouts = config.LoadTimeouts()
	}
	c := &Context{
		Context:  ctx,
		Config:   cfg,
		State:    NewState(),
		Cloud:    cloud,
		Remote:   remote,
		Observer: NewLogObserver(logr.FromContextOrDiscard(ctx)),
		Timeouts: timeouts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithContext returns a shallow copy of c carrying ctx. State is shared.
func (c *Context) WithContext(ctx context.Context) *Context {
	cp := *c
	cp.Context = ctx
	return &cp
}
