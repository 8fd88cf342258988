// Package destroy handles cluster teardown.
//
// Teardown runs in two phases. Phase 1 terminates every live instance,
// mains first, with one call per instance and no retry. Phase 2, only
// when security group deletion is requested, waits for the instances to
// reach "terminated" and then makes a bounded number of attempts to
// revoke every rule of both role groups and delete the groups. Rules
// must go first because the two groups reference each other.
//
// A group deletion that still fails after the last attempt is reported
// as a warning, not an error: EC2 releases group references lazily and a
// later re-run usually succeeds.
package destroy
