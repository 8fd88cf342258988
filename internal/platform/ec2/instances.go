package ec2

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdkec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/samber/lo"
)

// Instance is a provider-side view of one EC2 instance.
type Instance struct {
	ID           string
	State        ec2types.InstanceStateName
	InstanceType string
	PublicDNS    string
	PublicIP     string
	PrivateIP    string
	// SpotRequestID is set for instances that fulfilled a spot request.
	SpotRequestID string
	GroupNames    []string
	Tags          map[string]string
	LaunchTime    time.Time
}

// Spot reports whether the instance is billed on the spot market.
func (i Instance) Spot() bool {
	return i.SpotRequestID != ""
}

// Host returns the address used to reach the instance over SSH: the
// public DNS name, falling back to the public IP.
func (i Instance) Host() string {
	if i.PublicDNS != "" {
		return i.PublicDNS
	}
	return i.PublicIP
}

// Terminal reports whether the instance is on its way out or gone.
func (i Instance) Terminal() bool {
	return i.State == ec2types.InstanceStateNameShuttingDown || i.State == ec2types.InstanceStateNameTerminated
}

// InstanceStatus is the result of the EC2 status checks for one instance.
type InstanceStatus struct {
	ID             string
	State          ec2types.InstanceStateName
	SystemStatus   ec2types.SummaryStatus
	InstanceStatus ec2types.SummaryStatus
}

// Healthy reports whether both status checks passed.
func (s InstanceStatus) Healthy() bool {
	return s.SystemStatus == ec2types.SummaryStatusOk && s.InstanceStatus == ec2types.SummaryStatusOk
}

// RunSpec describes a batch of identical on-demand instances.
type RunSpec struct {
	ImageID      string
	InstanceType string
	KeyName      string
	Zone         string
	SubnetID     string
	GroupIDs     []string
	Count        int
}

func fromSDKInstance(in ec2types.Instance) Instance {
	inst := Instance{
		ID:            aws.ToString(in.InstanceId),
		InstanceType:  string(in.InstanceType),
		PublicDNS:     aws.ToString(in.PublicDnsName),
		PublicIP:      aws.ToString(in.PublicIpAddress),
		PrivateIP:     aws.ToString(in.PrivateIpAddress),
		SpotRequestID: aws.ToString(in.SpotInstanceRequestId),
		LaunchTime:    aws.ToTime(in.LaunchTime),
		Tags:          make(map[string]string, len(in.Tags)),
	}
	if in.State != nil {
		inst.State = in.State.Name
	}
	for _, g := range in.SecurityGroups {
		inst.GroupNames = append(inst.GroupNames, aws.ToString(g.GroupName))
	}
	for _, t := range in.Tags {
		inst.Tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	return inst
}

func (c *RealClient) describe(ctx context.Context, in *sdkec2.DescribeInstancesInput) ([]Instance, error) {
	var out []Instance
	p := sdkec2.NewDescribeInstancesPaginator(c.api, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, r := range page.Reservations {
			for _, i := range r.Instances {
				out = append(out, fromSDKInstance(i))
			}
		}
	}
	return out, nil
}

// ListInstances returns every instance in the named security group,
// whatever its state.
func (c *RealClient) ListInstances(ctx context.Context, groupName string) ([]Instance, error) {
	instances, err := c.describe(ctx, &sdkec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{{
			Name:   aws.String("instance.group-name"),
			Values: []string{groupName},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list instances of group %s: %w", groupName, err)
	}
	return instances, nil
}

// DescribeInstances refreshes the given instances in batches.
func (c *RealClient) DescribeInstances(ctx context.Context, ids []string) ([]Instance, error) {
	var out []Instance
	for _, batch := range lo.Chunk(ids, batchSize) {
		instances, err := c.describe(ctx, &sdkec2.DescribeInstancesInput{InstanceIds: batch})
		if err != nil {
			return nil, fmt.Errorf("failed to describe instances: %w", err)
		}
		out = append(out, instances...)
	}
	return out, nil
}

// DescribeInstanceStatuses returns status checks for the given instances,
// including instances that are not running.
func (c *RealClient) DescribeInstanceStatuses(ctx context.Context, ids []string) ([]InstanceStatus, error) {
	var out []InstanceStatus
	for _, batch := range lo.Chunk(ids, batchSize) {
		p := sdkec2.NewDescribeInstanceStatusPaginator(c.api, &sdkec2.DescribeInstanceStatusInput{
			InstanceIds:         batch,
			IncludeAllInstances: aws.Bool(true),
		})
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to describe instance status: %w", err)
			}
			for _, s := range page.InstanceStatuses {
				status := InstanceStatus{ID: aws.ToString(s.InstanceId)}
				if s.InstanceState != nil {
					status.State = s.InstanceState.Name
				}
				if s.SystemStatus != nil {
					status.SystemStatus = s.SystemStatus.Status
				}
				if s.InstanceStatus != nil {
					status.InstanceStatus = s.InstanceStatus.Status
				}
				out = append(out, status)
			}
		}
	}
	return out, nil
}

// RunInstances launches exactly spec.Count instances or none.
func (c *RealClient) RunInstances(ctx context.Context, spec RunSpec) ([]Instance, error) {
	in := &sdkec2.RunInstancesInput{
		ImageId:          aws.String(spec.ImageID),
		InstanceType:     ec2types.InstanceType(spec.InstanceType),
		KeyName:          aws.String(spec.KeyName),
		MinCount:         aws.Int32(int32(spec.Count)),
		MaxCount:         aws.Int32(int32(spec.Count)),
		SecurityGroupIds: spec.GroupIDs,
		Placement:        &ec2types.Placement{AvailabilityZone: aws.String(spec.Zone)},
	}
	if spec.SubnetID != "" {
		in.SubnetId = aws.String(spec.SubnetID)
	}

	out, err := c.api.RunInstances(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to run %d %s instance(s): %w", spec.Count, spec.InstanceType, err)
	}
	instances := make([]Instance, 0, len(out.Instances))
	for _, i := range out.Instances {
		instances = append(instances, fromSDKInstance(i))
	}
	return instances, nil
}

func (c *RealClient) TerminateInstances(ctx context.Context, ids ...string) error {
	if _, err := c.api.TerminateInstances(ctx, &sdkec2.TerminateInstancesInput{InstanceIds: ids}); err != nil {
		return fmt.Errorf("failed to terminate %v: %w", ids, err)
	}
	return nil
}

func (c *RealClient) StopInstances(ctx context.Context, ids ...string) error {
	if _, err := c.api.StopInstances(ctx, &sdkec2.StopInstancesInput{InstanceIds: ids}); err != nil {
		return fmt.Errorf("failed to stop %v: %w", ids, err)
	}
	return nil
}

func (c *RealClient) StartInstances(ctx context.Context, ids ...string) error {
	if _, err := c.api.StartInstances(ctx, &sdkec2.StartInstancesInput{InstanceIds: ids}); err != nil {
		return fmt.Errorf("failed to start %v: %w", ids, err)
	}
	return nil
}

func (c *RealClient) RebootInstances(ctx context.Context, ids ...string) error {
	if _, err := c.api.RebootInstances(ctx, &sdkec2.RebootInstancesInput{InstanceIds: ids}); err != nil {
		return fmt.Errorf("failed to reboot %v: %w", ids, err)
	}
	return nil
}

// CreateTags attaches tags to the given resources.
func (c *RealClient) CreateTags(ctx context.Context, ids []string, tags []ec2types.Tag) error {
	if _, err := c.api.CreateTags(ctx, &sdkec2.CreateTagsInput{Resources: ids, Tags: tags}); err != nil {
		return fmt.Errorf("failed to tag %v: %w", ids, err)
	}
	return nil
}
