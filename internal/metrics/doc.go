// Package metrics records what one invocation did: provider API calls,
// remote command attempts, readiness rounds, spot polls and teardown
// attempts.
//
// Every [Recorder] owns its own registry. The CLI writes it in the
// Prometheus text format when --metrics-file is given, which makes the
// file suitable for a node-exporter textfile collector. A nil *Recorder
// is valid and records nothing.
package metrics
