package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hadoop_ec2"

// Recorder collects the metrics of one invocation.
type Recorder struct {
	registry *prometheus.Registry

	ec2CallsTotal    *prometheus.CounterVec
	ec2Latency       *prometheus.HistogramVec
	sshAttemptsTotal *prometheus.CounterVec
	readinessRounds  *prometheus.CounterVec
	spotPollsTotal   prometheus.Counter
	spotActive       prometheus.Gauge
	spotCancelled    prometheus.Counter
	teardownTotal    *prometheus.CounterVec
	actionDuration   *prometheus.HistogramVec
}

// New creates a recorder with a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		ec2CallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ec2",
				Name:      "api_calls_total",
				Help:      "Total number of EC2 API calls by operation and result",
			},
			[]string{"operation", "result"},
		),
		ec2Latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "ec2",
				Name:      "api_latency_seconds",
				Help:      "Latency of EC2 API calls in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 8), // 50ms to ~6s
			},
			[]string{"operation"},
		),
		sshAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ssh",
				Name:      "attempts_total",
				Help:      "Total number of remote command attempts by operation and result",
			},
			[]string{"operation", "result"},
		),
		readinessRounds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "readiness",
				Name:      "rounds_total",
				Help:      "Total number of readiness polling rounds by target state",
			},
			[]string{"target"},
		),
		spotPollsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "spot",
			Name:      "polls_total",
			Help:      "Total number of spot request polls",
		}),
		spotActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "spot",
			Name:      "requests_active",
			Help:      "Number of active spot requests seen by the last poll",
		}),
		spotCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "spot",
			Name:      "requests_cancelled_total",
			Help:      "Total number of spot requests cancelled",
		}),
		teardownTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "teardown",
				Name:      "group_deletion_attempts_total",
				Help:      "Total number of security group deletion attempts by result",
			},
			[]string{"result"},
		),
		actionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "action_duration_seconds",
				Help:      "Duration of a CLI action in seconds",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68min
			},
			[]string{"action", "result"},
		),
	}

	r.registry.MustRegister(
		r.ec2CallsTotal,
		r.ec2Latency,
		r.sshAttemptsTotal,
		r.readinessRounds,
		r.spotPollsTotal,
		r.spotActive,
		r.spotCancelled,
		r.teardownTotal,
		r.actionDuration,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordEC2Call records one EC2 API call.
func (r *Recorder) RecordEC2Call(operation string, err error, latency time.Duration) {
	if r == nil {
		return
	}
	r.ec2CallsTotal.WithLabelValues(operation, result(err)).Inc()
	r.ec2Latency.WithLabelValues(operation).Observe(latency.Seconds())
}

// RecordSSHAttempt records one remote command attempt.
func (r *Recorder) RecordSSHAttempt(operation string, err error) {
	if r == nil {
		return
	}
	r.sshAttemptsTotal.WithLabelValues(operation, result(err)).Inc()
}

// RecordReadinessRound records one readiness polling round.
func (r *Recorder) RecordReadinessRound(target string) {
	if r == nil {
		return
	}
	r.readinessRounds.WithLabelValues(target).Inc()
}

// RecordSpotPoll records one spot request poll and how many requests were active.
func (r *Recorder) RecordSpotPoll(active int) {
	if r == nil {
		return
	}
	r.spotPollsTotal.Inc()
	r.spotActive.Set(float64(active))
}

// RecordSpotCancelled records cancelled spot requests.
func (r *Recorder) RecordSpotCancelled(n int) {
	if r == nil {
		return
	}
	r.spotCancelled.Add(float64(n))
}

// RecordTeardownAttempt records one security group deletion attempt.
func (r *Recorder) RecordTeardownAttempt(err error) {
	if r == nil {
		return
	}
	r.teardownTotal.WithLabelValues(result(err)).Inc()
}

// RecordAction records the outcome and duration of a CLI action.
func (r *Recorder) RecordAction(action string, err error, d time.Duration) {
	if r == nil {
		return
	}
	r.actionDuration.WithLabelValues(action, result(err)).Observe(d.Seconds())
}

// WriteFile writes every metric to path in the Prometheus text format.
func (r *Recorder) WriteFile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
