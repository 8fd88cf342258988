package ec2

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdkec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/samber/lo"
)

// SpotSpec describes one batch of spot requests.
type SpotSpec struct {
	RunSpec
	// Price is the maximum hourly price in USD.
	Price       float64
	LaunchGroup string
}

// SpotRequest is the provider-side state of one spot request.
type SpotRequest struct {
	ID         string
	State      ec2types.SpotInstanceState
	StatusCode string
	InstanceID string
}

// Active reports whether the request has been fulfilled.
func (r SpotRequest) Active() bool {
	return r.State == ec2types.SpotInstanceStateActive
}

// RequestSpotInstances submits spec.Count one-time spot requests sharing a
// launch group and returns their ids.
func (c *RealClient) RequestSpotInstances(ctx context.Context, spec SpotSpec) ([]string, error) {
	launch := &ec2types.RequestSpotLaunchSpecification{
		ImageId:          aws.String(spec.ImageID),
		InstanceType:     ec2types.InstanceType(spec.InstanceType),
		KeyName:          aws.String(spec.KeyName),
		SecurityGroupIds: spec.GroupIDs,
		Placement:        &ec2types.SpotPlacement{AvailabilityZone: aws.String(spec.Zone)},
	}
	if spec.SubnetID != "" {
		launch.SubnetId = aws.String(spec.SubnetID)
	}

	out, err := c.api.RequestSpotInstances(ctx, &sdkec2.RequestSpotInstancesInput{
		SpotPrice:           aws.String(fmt.Sprintf("%.3f", spec.Price)),
		InstanceCount:       aws.Int32(int32(spec.Count)),
		LaunchGroup:         aws.String(spec.LaunchGroup),
		Type:                ec2types.SpotInstanceTypeOneTime,
		LaunchSpecification: launch,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request %d spot instance(s): %w", spec.Count, err)
	}

	return lo.Map(out.SpotInstanceRequests, func(r ec2types.SpotInstanceRequest, _ int) string {
		return aws.ToString(r.SpotInstanceRequestId)
	}), nil
}

// DescribeSpotRequests returns the current state of the given requests.
// Freshly submitted requests may not be visible yet; EC2 then answers
// with a not-found error that callers can detect with IsNotFound.
func (c *RealClient) DescribeSpotRequests(ctx context.Context, ids []string) ([]SpotRequest, error) {
	var out []SpotRequest
	for _, batch := range lo.Chunk(ids, batchSize) {
		resp, err := c.api.DescribeSpotInstanceRequests(ctx, &sdkec2.DescribeSpotInstanceRequestsInput{
			SpotInstanceRequestIds: batch,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to describe spot requests: %w", err)
		}
		for _, r := range resp.SpotInstanceRequests {
			req := SpotRequest{
				ID:         aws.ToString(r.SpotInstanceRequestId),
				State:      r.State,
				InstanceID: aws.ToString(r.InstanceId),
			}
			if r.Status != nil {
				req.StatusCode = aws.ToString(r.Status.Code)
			}
			out = append(out, req)
		}
	}
	return out, nil
}

// CancelSpotRequests cancels the given requests. Instances already
// launched by them keep running.
func (c *RealClient) CancelSpotRequests(ctx context.Context, ids []string) error {
	for _, batch := range lo.Chunk(ids, batchSize) {
		_, err := c.api.CancelSpotInstanceRequests(ctx, &sdkec2.CancelSpotInstanceRequestsInput{
			SpotInstanceRequestIds: batch,
		})
		if err != nil {
			return fmt.Errorf("failed to cancel spot requests %v: %w", batch, err)
		}
	}
	return nil
}
