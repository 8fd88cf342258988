// Package ssh runs commands on cluster nodes over SSH.
//
// A [Transport] performs exactly one connection and one command. The
// [Gateway] layers the retry envelope on top: Execute, Read and Write are
// retried under an injected policy, failures are classified as
// authentication or other, and exhausted authentication failures surface
// as [AuthError]. Probe is a single, short attempt used by the readiness
// poll; Shell opens an interactive login.
//
// Host keys are not verified: nodes are ephemeral and their keys are
// unknown until first contact.
package ssh
