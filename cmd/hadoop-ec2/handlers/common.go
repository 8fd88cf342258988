package handlers

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/imamik/hadoop-ec2/internal/config"
	"github.com/imamik/hadoop-ec2/internal/metrics"
	"github.com/imamik/hadoop-ec2/internal/platform/ec2"
	"github.com/imamik/hadoop-ec2/internal/platform/ssh"
	"github.com/imamik/hadoop-ec2/internal/provisioning"
)

// Request carries the command line of one invocation.
type Request struct {
	ClusterName string
	ConfigPath  string
	Overrides   config.Overrides
	// Yes skips confirmation prompts.
	Yes         bool
	Verbosity   int
	MetricsFile string
}

// Factory function variables - can be replaced in tests.
var (
	loadConfig = config.Load

	newCloudClient = func(ctx context.Context, cfg *config.Config, rec *metrics.Recorder) (ec2.CloudManager, error) {
		return ec2.NewClient(ctx, cfg.Region, cfg.AWS, rec)
	}

	newRemote = func(cfg *config.Config, logger logr.Logger, rec *metrics.Recorder) (provisioning.Remote, error) {
		if cfg.IdentityFile == "" {
			return nil, nil
		}
		transport, err := ssh.LoadTransport(cfg.User, cfg.IdentityFile)
		if err != nil {
			return nil, err
		}
		return ssh.NewGateway(transport,
			ssh.WithPolicy(cfg.Timeouts.SSHPolicy()),
			ssh.WithProbeTimeout(cfg.Timeouts.SSHProbeTimeout),
			ssh.WithLogger(logger),
			ssh.WithRecorder(rec),
		), nil
	}

	newLogger = func(verbosity int) (logr.Logger, func(), error) {
		zc := zap.NewDevelopmentConfig()
		zc.Level = zap.NewAtomicLevelAt(zapcore.Level(-verbosity))
		zc.DisableCaller = true
		zc.DisableStacktrace = true
		zc.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.TimeOnly)
		if isInteractiveTTY() {
			zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		z, err := zc.Build()
		if err != nil {
			return logr.Discard(), func() {}, fmt.Errorf("failed to build logger: %w", err)
		}
		return zapr.NewLogger(z), func() { _ = z.Sync() }, nil
	}

	stdout io.Writer = os.Stdout
)

func isInteractiveTTY() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

// run sets up logging, metrics, configuration and clients, then calls fn.
// The action's outcome is recorded and, when requested, written to the
// metrics file even when fn fails.
func run(ctx context.Context, action string, req Request, fn func(*provisioning.Context) error) (err error) {
	logger, sync, err := newLogger(req.Verbosity)
	if err != nil {
		return err
	}
	defer sync()
	ctx = logr.NewContext(ctx, logger)
	observer := provisioning.NewLogObserver(logger).WithFields(map[string]string{"cluster": req.ClusterName})

	rec := metrics.New()
	start := time.Now()
	defer func() {
		rec.RecordAction(action, err, time.Since(start))
		if req.MetricsFile == "" {
			return
		}
		if werr := rec.WriteFile(req.MetricsFile); werr != nil {
			logger.Error(werr, "Could not write metrics file", "path", req.MetricsFile)
		}
	}()

	cfg, err := loadConfig(req.ConfigPath, req.ClusterName, req.Overrides)
	if err != nil {
		return err
	}
	if err := cfg.ValidateIdentity(); err != nil {
		return provisioning.Precondition(err)
	}

	cloud, err := newCloudClient(ctx, cfg, rec)
	if err != nil {
		return err
	}
	remote, err := newRemote(cfg, logger.WithName("ssh").WithValues("cluster", req.ClusterName), rec)
	if err != nil {
		return err
	}

	return fn(provisioning.NewContext(ctx, cfg, cloud, remote, provisioning.WithObserver(observer), provisioning.WithRecorder(rec)))
}

// requireRemote fails actions that need SSH when no identity file is set.
func requireRemote(ctx *provisioning.Context, action string) error {
	if ctx.Remote == nil {
		return provisioning.Preconditionf("%s needs an identity file (-i) to connect to the cluster", action)
	}
	return nil
}
