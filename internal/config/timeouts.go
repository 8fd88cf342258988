package config

import (
	"os"
	"strconv"
	"time"

	"github.com/imamik/hadoop-ec2/internal/util/retry"
)

// Timeouts holds all configurable retry counts and delays.
// These values can be customized via environment variables.
type Timeouts struct {
	SSHRetries       int           // Additional attempts for remote commands
	SSHRetryDelay    time.Duration // Delay between remote command attempts
	SSHProbeTimeout  time.Duration // Connect timeout of a reachability probe
	ReadinessStep    time.Duration // Round k of the readiness poll waits k × step
	SpotPoll         time.Duration // Interval between spot request polls
	MetadataWait     time.Duration // Wait before tagging freshly launched instances
	TeardownAttempts int           // Security group deletion attempts
	TeardownCooldown time.Duration // Wait between revoking rules and deleting groups
	Wait             time.Duration // Overall readiness deadline, zero waits forever
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - HADOOP_EC2_SSH_RETRIES (default: 5)
//   - HADOOP_EC2_SSH_RETRY_DELAY (default: 30s)
//   - HADOOP_EC2_SSH_PROBE_TIMEOUT (default: 3s)
//   - HADOOP_EC2_READINESS_STEP (default: 5s)
//   - HADOOP_EC2_SPOT_POLL (default: 10s)
//   - HADOOP_EC2_METADATA_WAIT (default: 15s)
//   - HADOOP_EC2_TEARDOWN_ATTEMPTS (default: 3)
//   - HADOOP_EC2_TEARDOWN_COOLDOWN (default: 30s)
//   - HADOOP_EC2_WAIT_TIMEOUT (default: 0, no deadline)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		SSHRetries:       parseInt("HADOOP_EC2_SSH_RETRIES", 5),
		SSHRetryDelay:    parseDuration("HADOOP_EC2_SSH_RETRY_DELAY", 30*time.Second),
		SSHProbeTimeout:  parseDuration("HADOOP_EC2_SSH_PROBE_TIMEOUT", 3*time.Second),
		ReadinessStep:    parseDuration("HADOOP_EC2_READINESS_STEP", 5*time.Second),
		SpotPoll:         parseDuration("HADOOP_EC2_SPOT_POLL", 10*time.Second),
		MetadataWait:     parseDuration("HADOOP_EC2_METADATA_WAIT", 15*time.Second),
		TeardownAttempts: parseInt("HADOOP_EC2_TEARDOWN_ATTEMPTS", 3),
		TeardownCooldown: parseDuration("HADOOP_EC2_TEARDOWN_COOLDOWN", 30*time.Second),
		Wait:             parseDuration("HADOOP_EC2_WAIT_TIMEOUT", 0),
	}
}

// Immediate returns timeouts with every delay set to zero. Tests use it
// to run whole workflows without sleeping.
func Immediate() *Timeouts {
	return &Timeouts{
		SSHRetries:       5,
		SSHProbeTimeout:  time.Second,
		TeardownAttempts: 3,
	}
}

// SSHPolicy is the retry envelope shared by remote commands. It is always
// bounded: a negative retry count means no retries.
func (t *Timeouts) SSHPolicy() retry.Policy {
	return retry.Policy{MaxRetries: max(t.SSHRetries, 0), Backoff: retry.Fixed(t.SSHRetryDelay)}
}

// ReadinessPolicy polls until the context is cancelled, waiting a little
// longer on every round.
func (t *Timeouts) ReadinessPolicy() retry.Policy {
	return retry.Policy{MaxRetries: retry.Unbounded, Backoff: retry.Linear(t.ReadinessStep)}
}

// SpotPolicy polls spot requests at a fixed interval until the context is cancelled.
func (t *Timeouts) SpotPolicy() retry.Policy {
	return retry.Policy{MaxRetries: retry.Unbounded, Backoff: retry.Fixed(t.SpotPoll)}
}

// TeardownPolicy bounds the security group deletion attempts.
func (t *Timeouts) TeardownPolicy() retry.Policy {
	attempts := t.TeardownAttempts
	if attempts < 1 {
		attempts = 1
	}
	return retry.Immediate(attempts - 1)
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}
