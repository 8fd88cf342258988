package setup

import (
	"fmt"

	"github.com/imamik/hadoop-ec2/internal/cluster"
	"github.com/imamik/hadoop-ec2/internal/provisioning"
)

const phase = "setup"

// keySetup creates the cluster key on first use and authorizes it.
const keySetup = `[ -f ~/.ssh/id_rsa ] || ` +
	`(ssh-keygen -q -t rsa -N '' -f ~/.ssh/id_rsa && cat ~/.ssh/id_rsa.pub >> ~/.ssh/authorized_keys)`

// Options controls a setup run.
type Options struct {
	// DeployTrust generates the cluster key on the main and copies the
	// main's ~/.ssh to every subordinate. Restarted clusters already
	// carry it.
	DeployTrust bool
}

// Run sets up view's cluster. view must contain a main.
func Run(ctx *provisioning.Context, view *cluster.View, opts Options) error {
	if len(view.Main) == 0 {
		return fmt.Errorf("%w: cluster %s", cluster.ErrMainNotFound, view.Name)
	}
	main := view.First().Host()
	if main == "" {
		return fmt.Errorf("main %s has no public address", view.First().ID)
	}

	if opts.DeployTrust {
		if err := deployTrust(ctx, main, view); err != nil {
			return err
		}
	}

	command := ctx.Config.SetupCommand
	if command == "" {
		ctx.Observer.Printf("[%s] No setup command configured", phase)
		return nil
	}
	ctx.Observer.Printf("[%s] Running setup on main...", phase)
	if err := ctx.Remote.Execute(ctx, main, command); err != nil {
		return fmt.Errorf("setup command failed on %s: %w", main, err)
	}
	ctx.Observer.Printf("[%s] Done!", phase)
	return nil
}

func deployTrust(ctx *provisioning.Context, main string, view *cluster.View) error {
	ctx.Observer.Printf("[%s] Generating cluster's SSH key on main...", phase)
	if err := ctx.Remote.Execute(ctx, main, keySetup); err != nil {
		return fmt.Errorf("failed to generate cluster key: %w", err)
	}

	archive, err := ctx.Remote.Read(ctx, main, "tar", "c", ".ssh")
	if err != nil {
		return fmt.Errorf("failed to read ssh directory from main: %w", err)
	}

	ctx.Observer.Printf("[%s] Transferring cluster's SSH key to subordinates...", phase)
	for i, sub := range view.Subordinates {
		host := sub.Host()
		if host == "" {
			return fmt.Errorf("subordinate %s has no public address", sub.ID)
		}
		if err := ctx.Remote.Write(ctx, host, archive, "tar", "x"); err != nil {
			return fmt.Errorf("failed to copy cluster key to %s: %w", host, err)
		}
		ctx.Observer.Progress(phase, i+1, len(view.Subordinates))
	}
	return nil
}
