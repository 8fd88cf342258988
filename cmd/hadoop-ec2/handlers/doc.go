// Package handlers implements the business logic behind each CLI action.
//
// Handlers build the configuration, the EC2 client and the SSH gateway
// for one invocation, run the matching workflow from internal/provisioning
// and report the outcome. Command definitions and flag parsing live in
// the commands package.
package handlers
