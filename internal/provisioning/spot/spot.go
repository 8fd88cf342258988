// Package spot negotiates spot capacity with an all-or-nothing barrier:
// either every requested instance is granted in the same poll, or every
// request is cancelled.
package spot

import (
	"context"
	"errors"
	"fmt"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/imamik/hadoop-ec2/internal/cluster"
	"github.com/imamik/hadoop-ec2/internal/platform/ec2"
	"github.com/imamik/hadoop-ec2/internal/provisioning"
	"github.com/imamik/hadoop-ec2/internal/util/retry"
)

const phase = "spot"

var errPending = errors.New("spot requests not fulfilled yet")

// AbortedError is returned when negotiation failed and the requests were
// cancelled. Escaped lists cluster instances still alive afterwards.
type AbortedError struct {
	Cause   error
	Escaped []string
}

func (e *AbortedError) Error() string {
	msg := fmt.Sprintf("spot request negotiation aborted: %v", e.Cause)
	if len(e.Escaped) > 0 {
		msg += fmt.Sprintf(" (%d instance(s) still running)", len(e.Escaped))
	}
	return msg
}

func (e *AbortedError) Unwrap() error {
	return e.Cause
}

// Negotiate submits spec.Count spot requests and polls them until all are
// active at once, returning the granted instance ids. On any failure,
// cancellation of ctx included, every request is cancelled exactly once
// and the cluster is re-resolved to report instances that escaped.
func Negotiate(ctx *provisioning.Context, spec ec2.SpotSpec) ([]string, error) {
	ctx.Observer.Printf("[%s] Requesting %d subordinates as spot instances with price $%.3f", phase, spec.Count, spec.Price)

	requestIDs, err := ctx.Cloud.RequestSpotInstances(ctx, spec)
	if err != nil {
		return nil, err
	}

	ctx.Observer.Printf("[%s] Waiting for spot instances to be granted...", phase)
	var granted []string
	err = retry.Sleep(ctx, ctx.Timeouts.SpotPoll)
	if err == nil {
		granted, err = pollRequests(ctx, spec.Count, requestIDs)
	}
	if err != nil {
		return nil, abort(ctx, requestIDs, err)
	}

	ctx.Observer.Printf("[%s] All %d subordinates granted", phase, spec.Count)
	return granted, nil
}

// pollRequests waits one poll interval between rounds until count
// requests are active in the same round.
func pollRequests(ctx *provisioning.Context, count int, requestIDs []string) ([]string, error) {
	var granted []string
	err := retry.Do(ctx, ctx.Timeouts.SpotPolicy(), func(int) error {
		reqs, err := ctx.Cloud.DescribeSpotRequests(ctx, requestIDs)
		if ec2.IsNotFound(err) {
			ctx.Observer.Printf("[%s] Spot requests not visible yet, waiting longer", phase)
			return errPending
		}
		if err != nil {
			return retry.Fatal(err)
		}

		active, err := activeInstances(reqs, requestIDs)
		if err != nil {
			return retry.Fatal(err)
		}
		ctx.Recorder.RecordSpotPoll(len(active))
		if len(active) == count {
			granted = active
			return nil
		}
		ctx.Observer.Printf("[%s] %d of %d subordinates granted, waiting longer", phase, len(active), count)
		return errPending
	})
	return granted, err
}

// activeInstances returns, in request order, the instance ids of the
// requests that are active. A request the provider gave up on fails the
// whole batch.
func activeInstances(reqs []ec2.SpotRequest, requestIDs []string) ([]string, error) {
	byID := make(map[string]ec2.SpotRequest, len(reqs))
	for _, r := range reqs {
		byID[r.ID] = r
	}

	var active []string
	for _, id := range requestIDs {
		r, ok := byID[id]
		if !ok {
			continue
		}
		switch r.State {
		case ec2types.SpotInstanceStateActive:
			active = append(active, r.InstanceID)
		case ec2types.SpotInstanceStateCancelled, ec2types.SpotInstanceStateFailed, ec2types.SpotInstanceStateClosed:
			return nil, fmt.Errorf("spot request %s is %s (%s)", id, r.State, r.StatusCode)
		}
	}
	return active, nil
}

// abort cancels every request and reports instances that were launched
// before the cancellation took effect. It runs detached from ctx so that
// an interrupted negotiation still cleans up.
func abort(ctx *provisioning.Context, requestIDs []string, cause error) error {
	cleanup := context.WithoutCancel(ctx)
	errs := []error{cause}

	ctx.Observer.Printf("[%s] Canceling spot instance requests", phase)
	if err := ctx.Cloud.CancelSpotRequests(cleanup, requestIDs); err != nil {
		errs = append(errs, err)
	} else {
		ctx.Recorder.RecordSpotCancelled(len(requestIDs))
	}

	aborted := &AbortedError{}
	view, err := cluster.Resolve(cleanup, ctx.Cloud, ctx.Config.ClusterName, cluster.Options{})
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to check for escaped instances: %w", err))
	} else if !view.Empty() {
		aborted.Escaped = view.IDs()
		provisioning.LogWarning(ctx.Observer, phase, fmt.Sprintf("%d instances are still running", view.Size()))
	}

	aborted.Cause = errors.Join(errs...)
	return aborted
}
