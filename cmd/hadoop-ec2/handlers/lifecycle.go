package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/hadoop-ec2/internal/provisioning"
	"github.com/imamik/hadoop-ec2/internal/provisioning/lifecycle"
)

// Stop handles the stop command.
func Stop(ctx context.Context, req Request) error {
	return run(ctx, "stop", req, func(pctx *provisioning.Context) error {
		name := pctx.Config.ClusterName
		ok, err := confirm(pctx, req.Yes,
			fmt.Sprintf("Are you sure you want to stop the cluster %s?", name),
			"DATA ON EPHEMERAL DISKS WILL BE LOST, BUT THE CLUSTER WILL KEEP USING SPACE ON AMAZON EBS IF IT IS EBS-BACKED!!\n"+
				"All data on spot-instance subordinates will be lost.")
		if err != nil {
			return err
		}
		if !ok {
			printf(stdout, dimStyle, "Aborted.")
			return nil
		}

		res, err := lifecycle.Stop(pctx)
		if err != nil {
			return err
		}
		printf(stdout, successStyle, "Cluster %s stopped: %d instance(s) stopped, %d spot instance(s) terminated",
			name, len(res.Stopped), len(res.Terminated))
		return nil
	})
}

// Start handles the start command.
func Start(ctx context.Context, req Request) error {
	return run(ctx, "start", req, func(pctx *provisioning.Context) error {
		if err := requireRemote(pctx, "start"); err != nil {
			return err
		}
		view, err := lifecycle.Start(pctx)
		if err != nil {
			return err
		}
		printf(stdout, successStyle, "Cluster %s started", view.Name)
		printf(stdout, titleStyle, "Main: %s", view.First().Host())
		return nil
	})
}

// RebootSubordinates handles the reboot-subordinates command.
func RebootSubordinates(ctx context.Context, req Request) error {
	return run(ctx, "reboot-subordinates", req, func(pctx *provisioning.Context) error {
		name := pctx.Config.ClusterName
		ok, err := confirm(pctx, req.Yes,
			fmt.Sprintf("Are you sure you want to reboot the cluster %s subordinates?", name),
			"Running jobs on the subordinates are interrupted.")
		if err != nil {
			return err
		}
		if !ok {
			printf(stdout, dimStyle, "Aborted.")
			return nil
		}

		ids, err := lifecycle.RebootSubordinates(pctx)
		if err != nil {
			return err
		}
		printf(stdout, successStyle, "Rebooted %d subordinate(s) of cluster %s", len(ids), name)
		return nil
	})
}

// GetMain handles the get-main command. It prints the main's public DNS
// name alone on stdout so that it can be used in scripts.
func GetMain(ctx context.Context, req Request) error {
	return run(ctx, "get-main", req, func(pctx *provisioning.Context) error {
		dns, err := lifecycle.GetMain(pctx)
		if err != nil {
			return err
		}
		if dns != "" {
			_, _ = fmt.Fprintln(stdout, dns)
		}
		return nil
	})
}

// Login handles the login command.
func Login(ctx context.Context, req Request) error {
	return run(ctx, "login", req, func(pctx *provisioning.Context) error {
		if err := requireRemote(pctx, "login"); err != nil {
			return err
		}
		return lifecycle.Login(pctx)
	})
}
