// Package cluster discovers the instances that make up a named cluster.
//
// A cluster has no stored identity of its own: its name selects two EC2
// security groups, <name>-main and <name>-subordinates, and every instance
// that is a member of one of them belongs to the cluster in that role.
// Resolve rebuilds a View from a fresh query each time it is called.
//
// # Lifecycle
//
// Instances that are shutting down or already terminated are not part of
// the cluster. Everything else, stopped instances included, is.
package cluster
