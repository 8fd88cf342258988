package destroy

import (
	"errors"
	"fmt"

	"github.com/imamik/hadoop-ec2/internal/cluster"
	"github.com/imamik/hadoop-ec2/internal/platform/ec2"
	"github.com/imamik/hadoop-ec2/internal/provisioning"
	"github.com/imamik/hadoop-ec2/internal/provisioning/readiness"
	"github.com/imamik/hadoop-ec2/internal/util/naming"
	"github.com/imamik/hadoop-ec2/internal/util/retry"
)

const phase = "Destroy"

// Result summarizes a teardown.
type Result struct {
	// Terminated holds the ids termination was requested for.
	Terminated []string
	// Attempts is the number of group deletion attempts made.
	Attempts int
	// RemainingGroups names the groups still present after the last attempt.
	RemainingGroups []string
}

// Provisioner handles cluster destruction.
type Provisioner struct {
	result *Result
}

// NewProvisioner creates a new destroy provisioner.
func NewProvisioner() *Provisioner {
	return &Provisioner{}
}

// Name implements provisioning.Phase.
func (p *Provisioner) Name() string {
	return phase
}

// Provision implements provisioning.Phase.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	res, err := Run(ctx)
	p.result = res
	return err
}

// Result returns the outcome of the last Provision call.
func (p *Provisioner) Result() *Result {
	return p.result
}

// Run terminates the cluster's instances and, when ctx.Config.DeleteGroups
// is set, removes its security groups.
func Run(ctx *provisioning.Context) (*Result, error) {
	name := ctx.Config.ClusterName
	res := &Result{}
	ctx.Observer.Printf("[%s] Starting cluster destruction for: %s", phase, name)

	view, err := cluster.Resolve(ctx, ctx.Cloud, name, cluster.Options{Region: ctx.Config.Region})
	if err != nil {
		return res, err
	}

	if err := terminate(ctx, view, res); err != nil {
		return res, err
	}

	if !ctx.Config.DeleteGroups {
		return res, nil
	}

	if len(res.Terminated) > 0 {
		ctx.Observer.Printf("[%s] Waiting for cluster to enter 'terminated' state before deleting security groups", phase)
		if _, err := readiness.Wait(ctx, res.Terminated, readiness.Terminated); err != nil {
			return res, err
		}
	}

	if err := deleteGroups(ctx, res); err != nil {
		return res, err
	}
	return res, nil
}

// terminate issues one termination call per instance, mains first. All
// calls are made even when some fail; the failures are returned together.
func terminate(ctx *provisioning.Context, view *cluster.View, res *Result) error {
	var errs []error
	for _, role := range cluster.Roles {
		instances := view.Role(role)
		if len(instances) == 0 {
			continue
		}
		ctx.Observer.Printf("[%s] Terminating %d %s instance(s)...", phase, len(instances), role)
		for _, inst := range instances {
			if err := ctx.Cloud.TerminateInstances(ctx, inst.ID); err != nil {
				errs = append(errs, err)
				continue
			}
			res.Terminated = append(res.Terminated, inst.ID)
		}
	}
	return errors.Join(errs...)
}

// deleteGroups makes up to TeardownAttempts attempts to empty and delete
// both role groups. Exhaustion is reported through res, not as an error.
func deleteGroups(ctx *provisioning.Context, res *Result) error {
	cfg := ctx.Config
	ctx.Observer.Printf("[%s] Deleting security groups (this will take some time)...", phase)

	var remaining []string
	var fatal error
	err := retry.Do(ctx, ctx.Timeouts.TeardownPolicy(), func(attempt int) error {
		res.Attempts = attempt + 1
		remaining = nil

		var groups []*ec2.SecurityGroup
		for _, name := range naming.Groups(cfg.ClusterName) {
			g, err := ctx.Cloud.GetSecurityGroup(ctx, name, cfg.VPCID)
			if err != nil {
				fatal = err
				return retry.Fatal(err)
			}
			if g != nil {
				groups = append(groups, g)
			}
		}

		var errs []error
		for _, g := range groups {
			for _, rule := range g.Ingress {
				if err := ctx.Cloud.RevokeIngress(ctx, g.ID, rule); err != nil && !ec2.IsNotFound(err) {
					errs = append(errs, err)
				}
			}
		}

		if err := retry.Sleep(ctx, ctx.Timeouts.TeardownCooldown); err != nil {
			fatal = err
			return retry.Fatal(err)
		}

		for _, g := range groups {
			provisioning.LogResourceDeleting(ctx.Observer, phase, "security group", g.Name)
			if err := ctx.Cloud.DeleteSecurityGroup(ctx, g.ID); err != nil && !ec2.IsNotFound(err) {
				if ec2.IsDependencyViolation(err) {
					ctx.Observer.Printf("[%s] Security group %s is still in use: %v", phase, g.Name, err)
				} else {
					ctx.Observer.Printf("[%s] Failed to delete security group %s: %v", phase, g.Name, err)
				}
				errs = append(errs, err)
				remaining = append(remaining, g.Name)
				continue
			}
			provisioning.LogResourceDeleted(ctx.Observer, phase, "security group", g.Name)
		}

		err := errors.Join(errs...)
		ctx.Recorder.RecordTeardownAttempt(err)
		if err != nil {
			return fmt.Errorf("attempt %d: %w", attempt+1, err)
		}
		return nil
	})

	if err == nil {
		return nil
	}
	if fatal != nil || ctx.Err() != nil {
		return err
	}
	if len(remaining) == 0 {
		// Only revocations failed and every group is gone anyway.
		return nil
	}

	res.RemainingGroups = remaining
	provisioning.LogWarning(ctx.Observer, phase, fmt.Sprintf(
		"Failed to delete all security groups after %d tries (%v). Try re-running in a few minutes.", res.Attempts, remaining))
	return nil
}
