// Package config defines the configuration model shared by every action.
//
// A [Config] is built once per invocation: defaults, overlaid by an
// optional YAML file ([LoadFile]), overlaid by command-line flags. Retry
// and wait durations come from HADOOP_EC2_* environment variables
// ([LoadTimeouts]). The instance-type [Catalog] resolves virtualization
// types so that incompatible main/subordinate combinations are rejected
// before anything is created.
package config
