package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/hadoop-ec2/cmd/hadoop-ec2/handlers"
)

// Launch returns the launch command.
func Launch(f *flags) *cobra.Command {
	var resume bool

	cmd := &cobra.Command{
		Use:   "launch <cluster-name>",
		Short: "Launch a new cluster",
		Long: `Launch creates a main instance and the requested number of subordinates.

The command:
  - creates the <cluster-name>-main and <cluster-name>-subordinates security groups
  - launches the subordinates, on demand or on the spot market (--spot-price)
  - launches the main and tags every instance
  - waits until every instance is running, healthy and accepts SSH
  - generates a cluster SSH key on the main and copies it to the subordinates
  - runs the setup command on the main, if one is configured

A cluster that already has instances is never touched. With --resume a
stopped main without subordinates is started instead.

Example:
  hadoop-ec2 launch demo -k my-key -i ~/.ssh/my-key.pem -s 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Launch(cmd.Context(), f.request(cmd, args), resume)
		},
	}

	cmd.Flags().BoolVar(&resume, "resume", false, "Start a stopped main left behind by an earlier launch")

	return cmd
}

// Destroy returns the destroy command.
func Destroy(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "destroy <cluster-name>",
		Short: "Terminate every instance of a cluster",
		Long: `Destroy terminates the main and every subordinate of the cluster.

With --delete-groups the cluster's security groups are removed as well once
all instances are gone. EC2 may keep reporting the groups as in use for a
while; the command then warns and can simply be re-run later.

WARNING: This operation is irreversible. All data on all nodes will be lost.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Destroy(cmd.Context(), f.request(cmd, args))
		},
	}
}

// Login returns the login command.
func Login(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "login <cluster-name>",
		Short: "Open a shell on the main",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Login(cmd.Context(), f.request(cmd, args))
		},
	}
}

// Stop returns the stop command.
func Stop(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <cluster-name>",
		Short: "Stop a running cluster",
		Long: `Stop stops the main and every on-demand subordinate.

Spot subordinates cannot be stopped and are terminated instead. Data on
ephemeral disks is lost; EBS volumes are kept and keep being billed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Stop(cmd.Context(), f.request(cmd, args))
		},
	}
}

// Start returns the start command.
func Start(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "start <cluster-name>",
		Short: "Start a stopped cluster",
		Long: `Start starts the subordinates and the main of a stopped cluster, waits
until every node accepts SSH and runs the setup command again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Start(cmd.Context(), f.request(cmd, args))
		},
	}
}

// GetMain returns the get-main command.
func GetMain(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "get-main <cluster-name>",
		Short: "Print the public DNS name of the main",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.GetMain(cmd.Context(), f.request(cmd, args))
		},
	}
}

// RebootSubordinates returns the reboot-subordinates command.
func RebootSubordinates(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "reboot-subordinates <cluster-name>",
		Short: "Reboot every subordinate of a cluster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.RebootSubordinates(cmd.Context(), f.request(cmd, args))
		},
	}
}
