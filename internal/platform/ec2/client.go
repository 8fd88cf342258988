package ec2

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sdkec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go/middleware"

	"github.com/imamik/hadoop-ec2/internal/config"
	"github.com/imamik/hadoop-ec2/internal/metrics"
)

// batchSize bounds the number of ids passed to a single describe call.
const batchSize = 100

// API is the subset of the EC2 service client used by RealClient.
// *sdkec2.Client satisfies it.
type API interface {
	DescribeInstances(ctx context.Context, in *sdkec2.DescribeInstancesInput, optFns ...func(*sdkec2.Options)) (*sdkec2.DescribeInstancesOutput, error)
	DescribeInstanceStatus(ctx context.Context, in *sdkec2.DescribeInstanceStatusInput, optFns ...func(*sdkec2.Options)) (*sdkec2.DescribeInstanceStatusOutput, error)
	RunInstances(ctx context.Context, in *sdkec2.RunInstancesInput, optFns ...func(*sdkec2.Options)) (*sdkec2.RunInstancesOutput, error)
	TerminateInstances(ctx context.Context, in *sdkec2.TerminateInstancesInput, optFns ...func(*sdkec2.Options)) (*sdkec2.TerminateInstancesOutput, error)
	StopInstances(ctx context.Context, in *sdkec2.StopInstancesInput, optFns ...func(*sdkec2.Options)) (*sdkec2.StopInstancesOutput, error)
	StartInstances(ctx context.Context, in *sdkec2.StartInstancesInput, optFns ...func(*sdkec2.Options)) (*sdkec2.StartInstancesOutput, error)
	RebootInstances(ctx context.Context, in *sdkec2.RebootInstancesInput, optFns ...func(*sdkec2.Options)) (*sdkec2.RebootInstancesOutput, error)
	CreateTags(ctx context.Context, in *sdkec2.CreateTagsInput, optFns ...func(*sdkec2.Options)) (*sdkec2.CreateTagsOutput, error)

	RequestSpotInstances(ctx context.Context, in *sdkec2.RequestSpotInstancesInput, optFns ...func(*sdkec2.Options)) (*sdkec2.RequestSpotInstancesOutput, error)
	DescribeSpotInstanceRequests(ctx context.Context, in *sdkec2.DescribeSpotInstanceRequestsInput, optFns ...func(*sdkec2.Options)) (*sdkec2.DescribeSpotInstanceRequestsOutput, error)
	CancelSpotInstanceRequests(ctx context.Context, in *sdkec2.CancelSpotInstanceRequestsInput, optFns ...func(*sdkec2.Options)) (*sdkec2.CancelSpotInstanceRequestsOutput, error)

	DescribeSecurityGroups(ctx context.Context, in *sdkec2.DescribeSecurityGroupsInput, optFns ...func(*sdkec2.Options)) (*sdkec2.DescribeSecurityGroupsOutput, error)
	CreateSecurityGroup(ctx context.Context, in *sdkec2.CreateSecurityGroupInput, optFns ...func(*sdkec2.Options)) (*sdkec2.CreateSecurityGroupOutput, error)
	DeleteSecurityGroup(ctx context.Context, in *sdkec2.DeleteSecurityGroupInput, optFns ...func(*sdkec2.Options)) (*sdkec2.DeleteSecurityGroupOutput, error)
	AuthorizeSecurityGroupIngress(ctx context.Context, in *sdkec2.AuthorizeSecurityGroupIngressInput, optFns ...func(*sdkec2.Options)) (*sdkec2.AuthorizeSecurityGroupIngressOutput, error)
	RevokeSecurityGroupIngress(ctx context.Context, in *sdkec2.RevokeSecurityGroupIngressInput, optFns ...func(*sdkec2.Options)) (*sdkec2.RevokeSecurityGroupIngressOutput, error)

	DescribeImages(ctx context.Context, in *sdkec2.DescribeImagesInput, optFns ...func(*sdkec2.Options)) (*sdkec2.DescribeImagesOutput, error)
}

// InstanceManager enumerates and drives instances.
type InstanceManager interface {
	// ListInstances returns every instance that is a member of the named security group.
	ListInstances(ctx context.Context, groupName string) ([]Instance, error)
	DescribeInstances(ctx context.Context, ids []string) ([]Instance, error)
	DescribeInstanceStatuses(ctx context.Context, ids []string) ([]InstanceStatus, error)
	RunInstances(ctx context.Context, spec RunSpec) ([]Instance, error)
	TerminateInstances(ctx context.Context, ids ...string) error
	StopInstances(ctx context.Context, ids ...string) error
	StartInstances(ctx context.Context, ids ...string) error
	RebootInstances(ctx context.Context, ids ...string) error
	CreateTags(ctx context.Context, ids []string, tags []ec2types.Tag) error
}

// SecurityGroupManager manages the per-role security groups.
type SecurityGroupManager interface {
	// GetSecurityGroup returns nil without error when no group of that name exists.
	GetSecurityGroup(ctx context.Context, name, vpcID string) (*SecurityGroup, error)
	EnsureSecurityGroup(ctx context.Context, name, description, vpcID string) (*SecurityGroup, error)
	AuthorizeIngress(ctx context.Context, groupID string, rules []Rule) error
	RevokeIngress(ctx context.Context, groupID string, rule Rule) error
	DeleteSecurityGroup(ctx context.Context, groupID string) error
}

// SpotManager submits and tracks spot instance requests.
type SpotManager interface {
	RequestSpotInstances(ctx context.Context, spec SpotSpec) ([]string, error)
	DescribeSpotRequests(ctx context.Context, ids []string) ([]SpotRequest, error)
	CancelSpotRequests(ctx context.Context, ids []string) error
}

// ImageResolver checks that an image exists.
type ImageResolver interface {
	ResolveImage(ctx context.Context, imageID string) (string, error)
}

// CloudManager is the full provider surface used by the orchestration.
type CloudManager interface {
	InstanceManager
	SecurityGroupManager
	SpotManager
	ImageResolver
}

// RealClient implements CloudManager on top of the EC2 API.
type RealClient struct {
	api API
}

var _ CloudManager = (*RealClient)(nil)

// NewRealClient wraps an EC2 API implementation.
func NewRealClient(api API) *RealClient {
	return &RealClient{api: api}
}

// NewClient loads the AWS configuration for the region and returns a
// client backed by the EC2 service. Credentials are resolved eagerly so
// that a missing credential chain fails before any provider call.
func NewClient(ctx context.Context, region string, creds config.AWSConfig, rec *metrics.Recorder) (*RealClient, error) {
	awsCfg, err := LoadAWSConfig(ctx, region, creds, rec)
	if err != nil {
		return nil, err
	}
	return NewRealClient(sdkec2.NewFromConfig(awsCfg)), nil
}

// LoadAWSConfig resolves region and credentials. Static keys in creds
// take precedence over the default credential chain.
func LoadAWSConfig(ctx context.Context, region string, creds config.AWSConfig, rec *metrics.Recorder) (aws.Config, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if creds.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(creds.Profile))
	}
	if creds.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, "")))
	}
	if rec != nil {
		loadOpts = append(loadOpts, awsconfig.WithAPIOptions([]func(*middleware.Stack) error{
			metricsMiddleware(rec),
		}))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if _, err := awsCfg.Credentials.Retrieve(ctx); err != nil {
		return aws.Config{}, fmt.Errorf("no usable AWS credentials: %w", err)
	}
	return awsCfg, nil
}

// metricsMiddleware records every EC2 call with its operation name.
func metricsMiddleware(rec *metrics.Recorder) func(*middleware.Stack) error {
	return func(stack *middleware.Stack) error {
		return stack.Initialize.Add(middleware.InitializeMiddlewareFunc("HadoopEC2Metrics",
			func(ctx context.Context, in middleware.InitializeInput, next middleware.InitializeHandler) (middleware.InitializeOutput, middleware.Metadata, error) {
				start := time.Now()
				out, md, err := next.HandleInitialize(ctx, in)
				rec.RecordEC2Call(awsmiddleware.GetOperationName(ctx), err, time.Since(start))
				return out, md, err
			}), middleware.After)
	}
}
