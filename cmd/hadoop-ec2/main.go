// Package main is the entry point for the hadoop-ec2 CLI.
//
// hadoop-ec2 launches, monitors and tears down a Hadoop cluster on
// Amazon EC2: one main node and a pool of subordinate nodes, optionally
// bought on the spot market. Every invocation rebuilds the cluster's
// state from its security groups, nothing is stored locally.
//
// Actions: launch, destroy, login, stop, start, get-main,
// reboot-subordinates.
//
// For detailed usage information, run:
//
//	hadoop-ec2 --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/hadoop-ec2/cmd/hadoop-ec2/commands"
	"github.com/imamik/hadoop-ec2/cmd/hadoop-ec2/handlers"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "\nError:\n", handlers.Explain(err))
		stop()
		os.Exit(1)
	}
}
