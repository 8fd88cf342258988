package handlers

import (
	"bytes"
	"context"
	"io"

	"github.com/go-logr/logr"

	"github.com/imamik/hadoop-ec2/internal/config"
	"github.com/imamik/hadoop-ec2/internal/metrics"
	"github.com/imamik/hadoop-ec2/internal/platform/ec2"
	"github.com/imamik/hadoop-ec2/internal/platform/ssh"
	"github.com/imamik/hadoop-ec2/internal/provisioning"
	testutil "github.com/imamik/hadoop-ec2/internal/testing"
	"github.com/imamik/hadoop-ec2/internal/util/retry"
)

// cleanupT is the part of testing.TB shared with GinkgoT().
type cleanupT interface {
	Helper()
	Cleanup(func())
}

// fakes holds the test doubles installed by useFakes.
type fakes struct {
	api       *testutil.FakeEC2
	transport *testutil.FakeTransport
	out       *bytes.Buffer
}

// useFakes replaces every factory with in-memory fakes for the duration of
// the test. Tests using it must not run in parallel.
func useFakes(tb cleanupT) *fakes {
	tb.Helper()
	f := &fakes{
		api:       testutil.NewFakeEC2(),
		transport: testutil.NewFakeTransport(),
		out:       &bytes.Buffer{},
	}

	origLoad, origCloud, origRemote, origLogger, origStdout, origCatalog :=
		loadConfig, newCloudClient, newRemote, newLogger, stdout, loadCatalog
	tb.Cleanup(func() {
		loadConfig, newCloudClient, newRemote, newLogger, stdout, loadCatalog =
			origLoad, origCloud, origRemote, origLogger, origStdout, origCatalog
	})

	loadConfig = func(path, name string, o config.Overrides) (*config.Config, error) {
		cfg, err := config.Load(path, name, o)
		if err != nil {
			return nil, err
		}
		wait := cfg.Timeouts.Wait
		cfg.Timeouts = config.Immediate()
		cfg.Timeouts.Wait = wait
		return cfg, nil
	}
	newCloudClient = func(context.Context, *config.Config, *metrics.Recorder) (ec2.CloudManager, error) {
		return ec2.NewRealClient(f.api), nil
	}
	newRemote = func(cfg *config.Config, logger logr.Logger, rec *metrics.Recorder) (provisioning.Remote, error) {
		if cfg.IdentityFile == "" {
			return nil, nil
		}
		return ssh.NewGateway(f.transport,
			ssh.WithPolicy(retry.Immediate(cfg.Timeouts.SSHRetries)),
			ssh.WithOutput(io.Discard, io.Discard),
			ssh.WithInput(nil),
			ssh.WithLogger(logger),
			ssh.WithRecorder(rec),
		), nil
	}
	newLogger = func(int) (logr.Logger, func(), error) {
		return logr.Discard(), func() {}, nil
	}
	loadCatalog = func() (*config.Catalog, error) {
		return config.NewCatalog(map[string][]string{"m4.large": {"hvm"}, "m4.xlarge": {"hvm"}}), nil
	}
	stdout = f.out
	return f
}

func ptr[T any](v T) *T { return &v }
