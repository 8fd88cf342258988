package handlers

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/imamik/hadoop-ec2/internal/cluster"
	"github.com/imamik/hadoop-ec2/internal/config"
	"github.com/imamik/hadoop-ec2/internal/provisioning"
	"github.com/imamik/hadoop-ec2/internal/provisioning/launch"
	"github.com/imamik/hadoop-ec2/internal/provisioning/readiness"
	"github.com/imamik/hadoop-ec2/internal/provisioning/setup"
)

var loadCatalog = config.LoadCatalog

// Launch handles the launch command.
//
// It creates the cluster, waits until every node accepts SSH, deploys the
// cluster key and runs the setup command on the main.
func Launch(ctx context.Context, req Request, resume bool) error {
	return run(ctx, "launch", req, func(pctx *provisioning.Context) error {
		catalog, err := loadCatalog()
		if err != nil {
			logr.FromContextOrDiscard(pctx).Info("Instance type catalog unavailable, skipping compatibility check", "error", err.Error())
			catalog = nil
		}

		if err := launch.Run(pctx, launch.Options{Catalog: catalog, Resume: resume}); err != nil {
			return err
		}

		if _, err := readiness.Wait(pctx, pctx.State.InstanceIDs(), readiness.SSHReady); err != nil {
			return err
		}

		view, err := cluster.Resolve(pctx, pctx.Cloud, pctx.Config.ClusterName, cluster.Options{
			RequireMain: true,
			Region:      pctx.Config.Region,
		})
		if err != nil {
			return err
		}
		if err := setup.Run(pctx, view, setup.Options{DeployTrust: true}); err != nil {
			return err
		}

		printf(stdout, successStyle, "Cluster %s is ready (%d subordinate(s))", view.Name, len(view.Subordinates))
		printf(stdout, titleStyle, "Main: %s", view.First().Host())
		return nil
	})
}
