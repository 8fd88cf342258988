package launch

import (
	"errors"
	"fmt"
	"slices"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/imamik/hadoop-ec2/internal/cluster"
	"github.com/imamik/hadoop-ec2/internal/config"
	"github.com/imamik/hadoop-ec2/internal/platform/ec2"
	"github.com/imamik/hadoop-ec2/internal/provisioning"
	"github.com/imamik/hadoop-ec2/internal/provisioning/spot"
	"github.com/imamik/hadoop-ec2/internal/util/naming"
	"github.com/imamik/hadoop-ec2/internal/util/retry"
	"github.com/imamik/hadoop-ec2/internal/util/tags"
)

const phase = "launch"

// ErrClusterExists is returned when the cluster already has live instances.
var ErrClusterExists = errors.New("cluster already has instances")

// Options controls a launch.
type Options struct {
	// Catalog checks instance type compatibility; nil skips the check.
	Catalog *config.Catalog
	// Resume restarts a stopped main instead of refusing, provided the
	// cluster has no other live instance.
	Resume bool
}

// Run launches the cluster described by ctx.Config. On success
// ctx.State holds the group ids and the ids of every instance.
func Run(ctx *provisioning.Context, opts Options) error {
	return provisioning.RunPhases(ctx, Phases(opts))
}

// Phases returns the launch phases in order.
func Phases(opts Options) []provisioning.Phase {
	return []provisioning.Phase{
		provisioning.NewValidationPhase(opts.Catalog),
		provisioning.PhaseFunc{PhaseName: "existing", Fn: func(ctx *provisioning.Context) error {
			return checkExisting(ctx, opts.Resume)
		}},
		provisioning.PhaseFunc{PhaseName: "security groups", Fn: ensureSecurityGroups},
		provisioning.PhaseFunc{PhaseName: "image", Fn: resolveImage},
		provisioning.PhaseFunc{PhaseName: "subordinates", Fn: launchSubordinates},
		provisioning.PhaseFunc{PhaseName: "main", Fn: launchMain},
		provisioning.PhaseFunc{PhaseName: "tags", Fn: tagInstances},
	}
}

func checkExisting(ctx *provisioning.Context, resume bool) error {
	name := ctx.Config.ClusterName
	view, err := cluster.Resolve(ctx, ctx.Cloud, name, cluster.Options{Region: ctx.Config.Region})
	if err != nil {
		return err
	}
	ctx.State.Existing = view
	if view.Empty() {
		return nil
	}

	if resume && len(view.Subordinates) == 0 && allStopped(view.Main) {
		ctx.Observer.Printf("[%s] Resuming stopped main %s", phase, view.First().ID)
		return nil
	}
	return provisioning.Precondition(fmt.Errorf("%w: there are already instances running in group %s or %s",
		ErrClusterExists, naming.MainGroup(name), naming.SubordinateGroup(name)))
}

func allStopped(instances []ec2.Instance) bool {
	return !slices.ContainsFunc(instances, func(i ec2.Instance) bool {
		return i.State != ec2types.InstanceStateNameStopped
	})
}

func ensureSecurityGroups(ctx *provisioning.Context) error {
	cfg := ctx.Config
	ctx.Observer.Printf("[%s] Setting up security groups with authorized address %s, vpc id %q", phase, cfg.AuthorizedAddress, cfg.VPCID)

	groups := make(map[cluster.Role]*ec2.SecurityGroup, len(cluster.Roles))
	for _, role := range cluster.Roles {
		name := role.Group(cfg.ClusterName)
		g, err := ctx.Cloud.EnsureSecurityGroup(ctx, name, fmt.Sprintf("%s group of hadoop-ec2 cluster %s", role, cfg.ClusterName), cfg.VPCID)
		if err != nil {
			return err
		}
		groups[role] = g
		ctx.State.GroupIDs[role] = g.ID
	}

	mainID, subordinateID := groups[cluster.RoleMain].ID, groups[cluster.RoleSubordinate].ID
	for _, role := range cluster.Roles {
		g := groups[role]
		if len(g.Ingress) > 0 {
			provisioning.LogResourceExists(ctx.Observer, phase, "security group", g.Name, g.ID)
			continue
		}
		if err := ctx.Cloud.AuthorizeIngress(ctx, g.ID, Rules(role, mainID, subordinateID, cfg.AuthorizedAddress)); err != nil {
			return err
		}
		provisioning.LogResourceCreated(ctx.Observer, phase, "security group", g.Name, g.ID)
	}
	return nil
}

func resolveImage(ctx *provisioning.Context) error {
	imageID, err := ctx.Cloud.ResolveImage(ctx, ctx.Config.ImageID)
	if err != nil {
		return fmt.Errorf("could not find AMI %s: %w", ctx.Config.ImageID, err)
	}
	ctx.State.ImageID = imageID
	return nil
}

func runSpec(ctx *provisioning.Context, role cluster.Role, instanceType string, count int) ec2.RunSpec {
	return ec2.RunSpec{
		ImageID:      ctx.State.ImageID,
		InstanceType: instanceType,
		KeyName:      ctx.Config.KeyPair,
		Zone:         ctx.Config.Zone,
		SubnetID:     ctx.Config.SubnetID,
		GroupIDs:     []string{ctx.State.GroupIDs[role]},
		Count:        count,
	}
}

func launchSubordinates(ctx *provisioning.Context) error {
	cfg := ctx.Config
	spec := runSpec(ctx, cluster.RoleSubordinate, cfg.InstanceType, cfg.Subordinates)

	if cfg.UseSpot() {
		ids, err := spot.Negotiate(ctx, ec2.SpotSpec{
			RunSpec:     spec,
			Price:       cfg.SpotPrice,
			LaunchGroup: naming.LaunchGroup(cfg.ClusterName),
		})
		if err != nil {
			return err
		}
		ctx.State.SubordinateIDs = ids
		return nil
	}

	instances, err := ctx.Cloud.RunInstances(ctx, spec)
	if err != nil {
		return err
	}
	ctx.State.SubordinateIDs = cluster.IDs(instances)
	ctx.Observer.Printf("[%s] Launched %d subordinate(s) in %s", phase, len(instances), cfg.Zone)
	return nil
}

func launchMain(ctx *provisioning.Context) error {
	if existing := ctx.State.Existing; existing != nil && len(existing.Main) > 0 {
		ids := cluster.IDs(existing.Main)
		ctx.Observer.Printf("[%s] Starting main...", phase)
		if err := ctx.Cloud.StartInstances(ctx, ids...); err != nil {
			return err
		}
		ctx.State.MainIDs = ids
		return nil
	}

	instances, err := ctx.Cloud.RunInstances(ctx, runSpec(ctx, cluster.RoleMain, ctx.Config.MainType(), 1))
	if err != nil {
		return err
	}
	ctx.State.MainIDs = cluster.IDs(instances)
	ctx.Observer.Printf("[%s] Launched main in %s", phase, ctx.Config.Zone)
	return nil
}

func tagInstances(ctx *provisioning.Context) error {
	ctx.Observer.Printf("[%s] Waiting for AWS to propagate instance metadata...", phase)
	if err := retry.Sleep(ctx, ctx.Timeouts.MetadataWait); err != nil {
		return err
	}

	name := ctx.Config.ClusterName
	for _, batch := range []struct {
		role cluster.Role
		ids  []string
	}{
		{cluster.RoleMain, ctx.State.MainIDs},
		{cluster.RoleSubordinate, ctx.State.SubordinateIDs},
	} {
		for _, id := range batch.ids {
			t := tags.NewBuilder(name).
				WithRole(string(batch.role)).
				WithName(naming.Instance(name, string(batch.role), id))
			if err := ctx.Cloud.CreateTags(ctx, []string{id}, t.EC2()); err != nil {
				return err
			}
		}
	}
	return nil
}
