package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/hadoop-ec2/internal/cluster"
	"github.com/imamik/hadoop-ec2/internal/provisioning"
	"github.com/imamik/hadoop-ec2/internal/provisioning/destroy"
)

// Destroyer tears a cluster down - matches *destroy.Provisioner.
type Destroyer interface {
	Provision(ctx *provisioning.Context) error
	Result() *destroy.Result
}

// newDestroyProvisioner creates the destroyer. It can be replaced in tests.
var newDestroyProvisioner = func() Destroyer {
	return destroy.NewProvisioner()
}

// Destroy handles the destroy command.
//
// It lists the instances about to be terminated, asks for confirmation
// and tears the cluster down. Security groups are removed as well when
// configured to.
func Destroy(ctx context.Context, req Request) error {
	return run(ctx, "destroy", req, func(pctx *provisioning.Context) error {
		name := pctx.Config.ClusterName
		view, err := cluster.Resolve(pctx, pctx.Cloud, name, cluster.Options{Region: pctx.Config.Region})
		if err != nil {
			return err
		}

		if !view.Empty() {
			printf(stdout, titleStyle, "The following instances will be terminated:")
			for _, inst := range view.All() {
				printf(stdout, dimStyle, "> %s", describe(inst.ID, inst.Host()))
			}
			printf(stdout, dangerStyle, "ALL DATA ON ALL NODES WILL BE LOST!!")
		}

		ok, err := confirm(pctx, req.Yes,
			fmt.Sprintf("Are you sure you want to destroy the cluster %s?", name),
			"Every instance is terminated. This cannot be undone.")
		if err != nil {
			return err
		}
		if !ok {
			printf(stdout, dimStyle, "Aborted.")
			return nil
		}

		destroyer := newDestroyProvisioner()
		if err := destroyer.Provision(pctx); err != nil {
			return fmt.Errorf("destroy failed: %w", err)
		}
		res := destroyer.Result()
		if len(res.RemainingGroups) > 0 {
			printf(stdout, warningStyle, "Cluster %s destroyed, security groups %v are left behind", name, res.RemainingGroups)
			return nil
		}
		printf(stdout, successStyle, "Cluster %s destroyed (%d instance(s) terminated)", name, len(res.Terminated))
		return nil
	})
}

func describe(id, host string) string {
	if host == "" {
		return id
	}
	return fmt.Sprintf("%s (%s)", host, id)
}
