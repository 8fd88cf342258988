// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the hadoop-ec2 CLI.
//
// Every cluster action takes the cluster name as its only argument and
// shares the flags registered on the root command.
func Root() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:           "hadoop-ec2",
		Short:         "Launch and manage Hadoop clusters on Amazon EC2",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	f.register(cmd)

	cmd.AddCommand(Launch(f))
	cmd.AddCommand(Destroy(f))
	cmd.AddCommand(Login(f))
	cmd.AddCommand(Stop(f))
	cmd.AddCommand(Start(f))
	cmd.AddCommand(GetMain(f))
	cmd.AddCommand(RebootSubordinates(f))
	cmd.AddCommand(Version())

	return cmd
}
