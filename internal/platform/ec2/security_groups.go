package ec2

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdkec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// SecurityGroup is a named set of ingress rules.
type SecurityGroup struct {
	ID      string
	Name    string
	VPCID   string
	Ingress []Rule
}

// Rule is a single ingress grant: one protocol and port range from either
// a CIDR range or another security group.
type Rule struct {
	Protocol      string
	FromPort      int32
	ToPort        int32
	CIDR          string
	SourceGroupID string
}

func (r Rule) String() string {
	source := r.CIDR
	if r.SourceGroupID != "" {
		source = r.SourceGroupID
	}
	return fmt.Sprintf("%s %d-%d from %s", r.Protocol, r.FromPort, r.ToPort, source)
}

func (r Rule) permission() ec2types.IpPermission {
	p := ec2types.IpPermission{
		IpProtocol: aws.String(r.Protocol),
		FromPort:   aws.Int32(r.FromPort),
		ToPort:     aws.Int32(r.ToPort),
	}
	if r.SourceGroupID != "" {
		p.UserIdGroupPairs = []ec2types.UserIdGroupPair{{GroupId: aws.String(r.SourceGroupID)}}
	} else {
		p.IpRanges = []ec2types.IpRange{{CidrIp: aws.String(r.CIDR)}}
	}
	return p
}

// rulesFromPermissions flattens EC2 permissions into individual grants.
func rulesFromPermissions(perms []ec2types.IpPermission) []Rule {
	var rules []Rule
	for _, p := range perms {
		base := Rule{
			Protocol: aws.ToString(p.IpProtocol),
			FromPort: aws.ToInt32(p.FromPort),
			ToPort:   aws.ToInt32(p.ToPort),
		}
		for _, r := range p.IpRanges {
			rule := base
			rule.CIDR = aws.ToString(r.CidrIp)
			rules = append(rules, rule)
		}
		for _, pair := range p.UserIdGroupPairs {
			rule := base
			rule.SourceGroupID = aws.ToString(pair.GroupId)
			rules = append(rules, rule)
		}
	}
	return rules
}

func fromSDKGroup(g ec2types.SecurityGroup) *SecurityGroup {
	return &SecurityGroup{
		ID:      aws.ToString(g.GroupId),
		Name:    aws.ToString(g.GroupName),
		VPCID:   aws.ToString(g.VpcId),
		Ingress: rulesFromPermissions(g.IpPermissions),
	}
}

// GetSecurityGroup looks a group up by name, optionally restricted to a VPC.
func (c *RealClient) GetSecurityGroup(ctx context.Context, name, vpcID string) (*SecurityGroup, error) {
	filters := []ec2types.Filter{{Name: aws.String("group-name"), Values: []string{name}}}
	if vpcID != "" {
		filters = append(filters, ec2types.Filter{Name: aws.String("vpc-id"), Values: []string{vpcID}})
	}

	out, err := c.api.DescribeSecurityGroups(ctx, &sdkec2.DescribeSecurityGroupsInput{Filters: filters})
	if err != nil {
		return nil, fmt.Errorf("failed to describe security group %s: %w", name, err)
	}
	if len(out.SecurityGroups) == 0 {
		return nil, nil
	}
	return fromSDKGroup(out.SecurityGroups[0]), nil
}

// EnsureSecurityGroup returns the named group, creating it when absent.
func (c *RealClient) EnsureSecurityGroup(ctx context.Context, name, description, vpcID string) (*SecurityGroup, error) {
	existing, err := c.GetSecurityGroup(ctx, name, vpcID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	in := &sdkec2.CreateSecurityGroupInput{
		GroupName:   aws.String(name),
		Description: aws.String(description),
	}
	if vpcID != "" {
		in.VpcId = aws.String(vpcID)
	}
	out, err := c.api.CreateSecurityGroup(ctx, in)
	if err != nil {
		if !IsDuplicate(err) {
			return nil, fmt.Errorf("failed to create security group %s: %w", name, err)
		}
		// Created concurrently by someone else
		existing, getErr := c.GetSecurityGroup(ctx, name, vpcID)
		if getErr != nil {
			return nil, getErr
		}
		if existing == nil {
			return nil, fmt.Errorf("security group %s reported as duplicate but not found: %w", name, err)
		}
		return existing, nil
	}

	return &SecurityGroup{ID: aws.ToString(out.GroupId), Name: name, VPCID: vpcID}, nil
}

// AuthorizeIngress adds the rules to the group in a single call.
func (c *RealClient) AuthorizeIngress(ctx context.Context, groupID string, rules []Rule) error {
	perms := make([]ec2types.IpPermission, 0, len(rules))
	for _, r := range rules {
		perms = append(perms, r.permission())
	}
	_, err := c.api.AuthorizeSecurityGroupIngress(ctx, &sdkec2.AuthorizeSecurityGroupIngressInput{
		GroupId:       aws.String(groupID),
		IpPermissions: perms,
	})
	if err != nil {
		return fmt.Errorf("failed to authorize ingress on %s: %w", groupID, err)
	}
	return nil
}

// RevokeIngress removes one grant from the group.
func (c *RealClient) RevokeIngress(ctx context.Context, groupID string, rule Rule) error {
	_, err := c.api.RevokeSecurityGroupIngress(ctx, &sdkec2.RevokeSecurityGroupIngressInput{
		GroupId:       aws.String(groupID),
		IpPermissions: []ec2types.IpPermission{rule.permission()},
	})
	if err != nil {
		return fmt.Errorf("failed to revoke %s on %s: %w", rule, groupID, err)
	}
	return nil
}

func (c *RealClient) DeleteSecurityGroup(ctx context.Context, groupID string) error {
	if _, err := c.api.DeleteSecurityGroup(ctx, &sdkec2.DeleteSecurityGroupInput{GroupId: aws.String(groupID)}); err != nil {
		return fmt.Errorf("failed to delete security group %s: %w", groupID, err)
	}
	return nil
}
