// Package naming provides consistent naming functions for EC2 resources.
//
// Security groups follow the pattern {cluster}-{role}, instances are
// tagged {cluster}-{role}-{instance id}, and spot requests of one cluster
// share the launch group launch-group-{cluster}.
package naming
