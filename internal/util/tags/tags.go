package tags

import (
	"maps"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// Standard tag keys for EC2 resources.
const (
	// KeyName is the EC2 console display name.
	KeyName = "Name"

	KeyCluster   = "hadoop-ec2/cluster"
	KeyRole      = "hadoop-ec2/role"
	KeyManagedBy = "hadoop-ec2/managed-by"
)

const ManagedBy = "hadoop-ec2"

// Builder provides a fluent interface for building EC2 resource tags.
type Builder struct {
	tags map[string]string
}

// NewBuilder creates a new tag builder with the cluster name pre-set.
func NewBuilder(clusterName string) *Builder {
	return &Builder{
		tags: map[string]string{
			KeyCluster:   clusterName,
			KeyManagedBy: ManagedBy,
		},
	}
}

func (b *Builder) WithRole(role string) *Builder {
	b.tags[KeyRole] = role
	return b
}

func (b *Builder) WithName(name string) *Builder {
	b.tags[KeyName] = name
	return b
}

// Build returns a copy of the tags map.
func (b *Builder) Build() map[string]string {
	return maps.Clone(b.tags)
}

// EC2 returns the tags in the shape the EC2 API expects, sorted by key.
func (b *Builder) EC2() []ec2types.Tag {
	keys := slices.Sorted(maps.Keys(b.tags))
	out := make([]ec2types.Tag, 0, len(keys))
	for _, k := range keys {
		out = append(out, ec2types.Tag{Key: aws.String(k), Value: aws.String(b.tags[k])})
	}
	return out
}
