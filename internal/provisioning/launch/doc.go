// Package launch brings a cluster from absent to "instances requested".
//
// Launch runs as a sequence of provisioning phases:
//
//  1. validation: identity file, key pair, subordinate count and instance
//     type compatibility, before any provider call
//  2. existing: refuse when the cluster already has live instances
//  3. security groups: get-or-create both role groups and authorize the
//     fixed rule sets on groups that have no rules yet
//  4. image: confirm the image exists
//  5. subordinates: on-demand, or spot through package spot
//  6. main: exactly one main instance
//  7. tags: wait for metadata to propagate, then tag every instance
//
// Any provider error aborts the launch; there is no partial success.
package launch
