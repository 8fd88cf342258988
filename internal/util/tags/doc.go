// Package tags provides consistent tagging for EC2 resources.
//
// Tags follow a builder pattern: every resource carries the cluster name
// and the managing tool; instances additionally carry their role and the
// human-readable Name tag shown in the EC2 console.
package tags
