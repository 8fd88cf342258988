// Package setup prepares a reachable cluster for its workload.
//
// It distributes an SSH key generated on the main to every subordinate so
// nodes can log into each other, then runs the configured setup command
// on the main. Copying and templating the workload's files is left to
// that command.
package setup
