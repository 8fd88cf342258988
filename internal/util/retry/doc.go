// Package retry provides explicit retry policies for transient failures.
//
// A [Policy] bundles a retry bound with a backoff function so every
// component receives its retry behaviour as a value instead of hard-coding
// sleeps. The [Do] function drives an operation under a policy. Tests
// substitute [Immediate] to remove all delays.
package retry
