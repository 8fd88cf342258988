// Package readiness waits for a set of instances to reach a target state.
package readiness

import (
	"context"
	"errors"
	"fmt"
	"time"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/samber/lo"

	"github.com/imamik/hadoop-ec2/internal/platform/ec2"
	"github.com/imamik/hadoop-ec2/internal/provisioning"
	"github.com/imamik/hadoop-ec2/internal/util/async"
	"github.com/imamik/hadoop-ec2/internal/util/retry"
)

const (
	phase = "readiness"

	// BatchSize caps the number of ids per describe call.
	BatchSize = 100
)

// Target is either an instance lifecycle state or SSHReady.
type Target string

// SSHReady holds when every instance is running, passes both status
// checks and accepts an SSH connection.
const SSHReady Target = "ssh-ready"

// State targets a plain lifecycle state.
func State(s ec2types.InstanceStateName) Target {
	return Target(s)
}

var (
	Running    = State(ec2types.InstanceStateNameRunning)
	Stopped    = State(ec2types.InstanceStateNameStopped)
	Terminated = State(ec2types.InstanceStateNameTerminated)
)

var errNotReady = errors.New("instances not ready")

// Result is the outcome of one evaluation round.
type Result struct {
	Total int
	// Matched counts instances in the target state; for SSHReady, those
	// running with both status checks passing.
	Matched int
	// Reachable is set for SSHReady when every instance answered a probe.
	Reachable bool
}

// Ready reports whether the target holds for every instance.
func (r Result) Ready(target Target) bool {
	if r.Matched != r.Total {
		return false
	}
	return target != SSHReady || r.Reachable
}

// Wait polls until every instance in ids satisfies target and returns the
// time spent. Round k sleeps k times the readiness step first. There is
// no attempt limit: the wait ends when ctx is done or, when configured,
// when the wait timeout expires.
func Wait(ctx *provisioning.Context, ids []string, target Target) (time.Duration, error) {
	start := time.Now()
	if len(ids) == 0 {
		return 0, nil
	}

	if ctx.Timeouts.Wait > 0 {
		deadline, cancel := context.WithTimeout(ctx, ctx.Timeouts.Wait)
		defer cancel()
		ctx = ctx.WithContext(deadline)
	}

	ctx.Observer.Printf("[%s] Waiting for %d instance(s) to be in '%s' state", phase, len(ids), target)

	err := retry.Do(ctx, ctx.Timeouts.ReadinessPolicy(), func(round int) error {
		ctx.Recorder.RecordReadinessRound(string(target))
		res, err := Evaluate(ctx, ids, target)
		if err != nil {
			return retry.Fatal(err)
		}
		ctx.Observer.Progress(phase, res.Matched, res.Total)
		if res.Ready(target) {
			return nil
		}
		return errNotReady
	})
	elapsed := time.Since(start)
	if err != nil {
		return elapsed, fmt.Errorf("waiting for '%s' state: %w", target, err)
	}

	ctx.Observer.Printf("[%s] Cluster is now in '%s' state. Waited %d seconds.", phase, target, int(elapsed.Seconds()))
	return elapsed, nil
}

// Evaluate refreshes the instances and checks target once. Instances the
// provider does not know about yet count as not ready.
func Evaluate(ctx *provisioning.Context, ids []string, target Target) (Result, error) {
	res := Result{Total: len(ids)}
	var hosts []string

	for _, batch := range lo.Chunk(ids, BatchSize) {
		instances, err := ctx.Cloud.DescribeInstances(ctx, batch)
		if ec2.IsNotFound(err) {
			return res, nil
		}
		if err != nil {
			return res, err
		}

		if target != SSHReady {
			for _, inst := range instances {
				if Target(inst.State) == target {
					res.Matched++
				}
			}
			continue
		}

		statuses, err := ctx.Cloud.DescribeInstanceStatuses(ctx, batch)
		if ec2.IsNotFound(err) {
			return res, nil
		}
		if err != nil {
			return res, err
		}
		healthy := make(map[string]bool, len(statuses))
		for _, s := range statuses {
			healthy[s.ID] = s.Healthy()
		}

		for _, inst := range instances {
			if inst.State == ec2types.InstanceStateNameRunning && healthy[inst.ID] {
				res.Matched++
				hosts = append(hosts, inst.Host())
			}
		}
	}

	if target == SSHReady && res.Matched == res.Total {
		res.Reachable = async.All(ctx, hosts, func(pctx context.Context, host string) bool {
			return host != "" && ctx.Remote.Probe(pctx, host)
		})
	}
	return res, nil
}
