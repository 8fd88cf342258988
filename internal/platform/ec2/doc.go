// Package ec2 wraps the AWS EC2 API with the handful of operations the
// cluster lifecycle needs.
//
// # Architecture
//
//   - client.go: API surface, manager interfaces and client construction
//   - instances.go: instance enumeration, status queries and power operations
//   - security_groups.go: security group get-or-create, ingress rules, deletion
//   - spot.go: spot request submission, polling and cancellation
//   - images.go: image resolution
//   - errors.go: error classification by EC2 error code
//
// Enumeration calls follow pagination and split instance ids into batches
// of at most 100. None of the operations retry; retry policy belongs to
// the callers.
package ec2
