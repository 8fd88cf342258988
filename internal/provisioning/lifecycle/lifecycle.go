package lifecycle

import (
	"errors"
	"fmt"

	"github.com/imamik/hadoop-ec2/internal/cluster"
	"github.com/imamik/hadoop-ec2/internal/platform/ec2"
	"github.com/imamik/hadoop-ec2/internal/provisioning"
	"github.com/imamik/hadoop-ec2/internal/provisioning/readiness"
	"github.com/imamik/hadoop-ec2/internal/provisioning/setup"
)

func resolve(ctx *provisioning.Context, requireMain bool) (*cluster.View, error) {
	return cluster.Resolve(ctx, ctx.Cloud, ctx.Config.ClusterName, cluster.Options{
		RequireMain: requireMain,
		Region:      ctx.Config.Region,
	})
}

// StopResult lists what Stop did to each instance.
type StopResult struct {
	Stopped    []string
	Terminated []string
}

// Stop stops the main and every on-demand subordinate. Spot subordinates
// cannot be stopped and are terminated instead. Errors are collected so
// that one failing instance does not leave the rest running.
func Stop(ctx *provisioning.Context) (*StopResult, error) {
	const phase = "stop"
	view, err := resolve(ctx, false)
	if err != nil {
		return nil, err
	}

	res := &StopResult{}
	var errs []error
	stop := func(inst ec2.Instance) {
		if inst.Terminal() {
			return
		}
		if err := ctx.Cloud.StopInstances(ctx, inst.ID); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", inst.ID, err))
			return
		}
		res.Stopped = append(res.Stopped, inst.ID)
	}

	ctx.Observer.Printf("[%s] Stopping main...", phase)
	for _, inst := range view.Main {
		stop(inst)
	}

	ctx.Observer.Printf("[%s] Stopping subordinates...", phase)
	for _, inst := range view.Subordinates {
		if inst.Terminal() {
			continue
		}
		if !inst.Spot() {
			stop(inst)
			continue
		}
		if err := ctx.Cloud.TerminateInstances(ctx, inst.ID); err != nil {
			errs = append(errs, fmt.Errorf("terminate spot instance %s: %w", inst.ID, err))
			continue
		}
		res.Terminated = append(res.Terminated, inst.ID)
	}

	return res, errors.Join(errs...)
}

// Start starts a stopped cluster, waits until every node accepts SSH and
// reruns the setup command. The cluster key deployed at launch is kept.
func Start(ctx *provisioning.Context) (*cluster.View, error) {
	const phase = "start"
	view, err := resolve(ctx, true)
	if err != nil {
		return nil, err
	}

	ctx.Observer.Printf("[%s] Starting subordinates...", phase)
	if err := startAll(ctx, view.Subordinates); err != nil {
		return nil, err
	}
	ctx.Observer.Printf("[%s] Starting main...", phase)
	if err := startAll(ctx, view.Main); err != nil {
		return nil, err
	}

	if _, err := readiness.Wait(ctx, view.IDs(), readiness.SSHReady); err != nil {
		return nil, err
	}

	// Public addresses change across a stop/start cycle.
	view, err = resolve(ctx, true)
	if err != nil {
		return nil, err
	}
	ctx.Observer.Printf("[%s] Main instance type %s, subordinate instance type %s",
		phase, view.First().InstanceType, instanceType(view.Subordinates))

	if err := setup.Run(ctx, view, setup.Options{}); err != nil {
		return nil, err
	}
	return view, nil
}

func startAll(ctx *provisioning.Context, instances []ec2.Instance) error {
	for _, inst := range instances {
		if inst.Terminal() {
			continue
		}
		if err := ctx.Cloud.StartInstances(ctx, inst.ID); err != nil {
			return fmt.Errorf("start %s: %w", inst.ID, err)
		}
	}
	return nil
}

func instanceType(instances []ec2.Instance) string {
	if len(instances) == 0 {
		return "none"
	}
	return instances[0].InstanceType
}

// RebootSubordinates reboots every live subordinate and returns their ids.
func RebootSubordinates(ctx *provisioning.Context) ([]string, error) {
	const phase = "reboot"
	view, err := resolve(ctx, false)
	if err != nil {
		return nil, err
	}

	ctx.Observer.Printf("[%s] Rebooting subordinates...", phase)
	var rebooted []string
	for _, inst := range view.Subordinates {
		if inst.Terminal() {
			continue
		}
		ctx.Observer.Printf("[%s] Rebooting %s", phase, inst.ID)
		if err := ctx.Cloud.RebootInstances(ctx, inst.ID); err != nil {
			return rebooted, fmt.Errorf("reboot %s: %w", inst.ID, err)
		}
		rebooted = append(rebooted, inst.ID)
	}
	return rebooted, nil
}

// GetMain returns the public DNS name of the main. It returns an empty
// string and logs a hint when the main has none.
func GetMain(ctx *provisioning.Context) (string, error) {
	view, err := resolve(ctx, true)
	if err != nil {
		return "", err
	}
	main := view.First()
	if main.PublicDNS == "" {
		noPublicDNS(ctx, "get-main", main)
		return "", nil
	}
	return main.PublicDNS, nil
}

// Login opens an interactive shell on the main.
func Login(ctx *provisioning.Context) error {
	const phase = "login"
	view, err := resolve(ctx, true)
	if err != nil {
		return err
	}
	main := view.First()
	if main.PublicDNS == "" {
		noPublicDNS(ctx, phase, main)
		return nil
	}

	ctx.Observer.Printf("[%s] Logging into main %s...", phase, main.PublicDNS)
	return ctx.Remote.Shell(ctx, main.PublicDNS)
}

func noPublicDNS(ctx *provisioning.Context, phase string, main ec2.Instance) {
	provisioning.LogWarning(ctx.Observer, phase,
		fmt.Sprintf("Main %s has no public DNS name (state %s). Is it running, and does its subnet assign public addresses?", main.ID, main.State))
}
