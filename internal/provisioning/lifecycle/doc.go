// Package lifecycle implements the actions that act on an existing
// cluster without creating or removing it: stop, start,
// reboot-subordinates, get-main and login.
//
// Every action re-resolves the cluster from its security groups first;
// nothing is carried over from earlier invocations.
package lifecycle
