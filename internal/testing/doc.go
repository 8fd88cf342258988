// Package testing provides test utilities, fakes and builders shared by the
// orchestration tests.
//
//   - FakeEC2: a stateful in-memory implementation of the EC2 API surface,
//     so tests exercise the real platform wrapper end to end. Instances
//     advance one lifecycle step per DescribeInstances round; SeedInstance
//     and SeedSpotInstance plant pre-existing cluster members
//   - FakeTransport: an SSH transport whose reachability and failures are
//     scripted per host
//   - RecordingObserver: captures log lines, events and progress
//   - NewEnv: a provisioning context wired to all of the above
//   - ConfigBuilder: fluent builder for test configurations
//
// Usage:
//
//	api := testing.NewFakeEC2()
//	cloud := ec2.NewRealClient(api)
//	cfg := testing.NewConfigBuilder().WithClusterName("demo").WithSubordinates(2).Build()
package testing
