// Package provisioning provides shared types for the cluster lifecycle
// workflows.
//
// The workflows are organized into focused subpackages:
//   - launch/ — security groups, image, instance allocation, tagging
//   - spot/ — all-or-nothing spot capacity negotiation
//   - readiness/ — wait-for-state polling, including ssh-ready
//   - setup/ — cross-host trust bootstrap and the setup command
//   - destroy/ — instance termination and security group teardown
//   - lifecycle/ — stop, start, reboot, get-main and login
//
// This root package contains the Context passed to every workflow, the
// Observer used for progress output and the shared error types.
package provisioning
