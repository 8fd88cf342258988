package cluster

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-logr/logr"

	"github.com/imamik/hadoop-ec2/internal/platform/ec2"
)

// ErrMainNotFound is returned by Resolve with RequireMain when the cluster
// has no live main instance.
var ErrMainNotFound = errors.New("main instance not found")

// NotFoundError names the cluster a lookup failed for.
type NotFoundError struct {
	Cluster string
	Region  string
	Err     error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("could not find a main instance for cluster %s in region %s", e.Cluster, e.Region)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// Options controls Resolve.
type Options struct {
	// RequireMain fails with ErrMainNotFound when no main is live.
	RequireMain bool
	// Region is reported in NotFoundError.
	Region string
}

// Lister enumerates the members of a security group.
type Lister interface {
	ListInstances(ctx context.Context, groupName string) ([]ec2.Instance, error)
}

// Resolve queries the provider for the cluster's instances. Provider
// errors are returned wrapped and are never retried here.
func Resolve(ctx context.Context, cloud Lister, name string, opts Options) (*View, error) {
	logger := logr.FromContextOrDiscard(ctx)
	view := &View{Name: name}

	for _, role := range Roles {
		instances, err := cloud.ListInstances(ctx, role.Group(name))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s instances of cluster %s: %w", role, name, err)
		}
		live := slices.DeleteFunc(instances, ec2.Instance.Terminal)
		slices.SortStableFunc(live, byLaunch)

		if role == RoleMain {
			view.Main = live
		} else {
			view.Subordinates = live
		}
	}

	logger.Info(fmt.Sprintf("Found %d main(s), %d subordinate(s)", len(view.Main), len(view.Subordinates)), "cluster", name)

	if opts.RequireMain && len(view.Main) == 0 {
		return nil, &NotFoundError{Cluster: name, Region: opts.Region, Err: ErrMainNotFound}
	}
	return view, nil
}

func byLaunch(a, b ec2.Instance) int {
	if c := a.LaunchTime.Compare(b.LaunchTime); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}
