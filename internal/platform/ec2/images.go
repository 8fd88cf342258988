package ec2

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdkec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
)

// ErrImageNotFound is returned when the configured image does not exist
// in the region.
var ErrImageNotFound = errors.New("image not found")

// ResolveImage confirms that the image exists and returns its id.
func (c *RealClient) ResolveImage(ctx context.Context, imageID string) (string, error) {
	out, err := c.api.DescribeImages(ctx, &sdkec2.DescribeImagesInput{ImageIds: []string{imageID}})
	if err != nil {
		if IsNotFound(err) {
			return "", fmt.Errorf("%w: %s: %w", ErrImageNotFound, imageID, err)
		}
		return "", fmt.Errorf("failed to describe image %s: %w", imageID, err)
	}
	if len(out.Images) == 0 {
		return "", fmt.Errorf("%w: %s", ErrImageNotFound, imageID)
	}
	return aws.ToString(out.Images[0].ImageId), nil
}
