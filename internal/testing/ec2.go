package testing

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdkec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"

	"github.com/imamik/hadoop-ec2/internal/config"
)

// APIError builds an EC2-style error with the given code.
func APIError(code, message string) error {
	return &smithy.GenericAPIError{Code: code, Message: message, Fault: smithy.FaultClient}
}

type fakeInstance struct {
	inst   ec2types.Instance
	rounds int
	target ec2types.InstanceStateName
}

type fakeSpot struct {
	req  ec2types.SpotInstanceRequest
	spec ec2types.RequestSpotLaunchSpecification
}

// FakeEC2 is a stateful in-memory EC2 API. Instances move through their
// lifecycle as DescribeInstances is called; spot requests activate on a
// scripted schedule. It is safe for concurrent use.
type FakeEC2 struct {
	mu sync.Mutex

	// PendingRounds is how many DescribeInstances calls a transitioning
	// instance (pending, stopping, shutting-down) needs before it settles.
	PendingRounds int

	// Images lists the image ids DescribeImages knows about.
	Images map[string]bool

	// SpotActivations[n] is the number of requests that are active after
	// the n-th DescribeSpotInstanceRequests call. Beyond the end of the
	// slice the last value repeats. Nil activates everything on the first poll.
	SpotActivations []int

	// SpotInvisiblePolls makes the first polls fail with a not-found
	// error, as EC2 does right after submission.
	SpotInvisiblePolls int

	// DeleteFailures is the number of DeleteSecurityGroup calls that fail
	// with DependencyViolation before deletions go through.
	DeleteFailures int

	// Unhealthy instances report an impaired instance status check.
	Unhealthy map[string]bool

	// SystemImpaired instances report an impaired system status check.
	SystemImpaired map[string]bool

	// OnCall, when set, runs before every API call with the operation name.
	OnCall func(op string)

	failures  map[string][]error
	instances []*fakeInstance
	groups    []*ec2types.SecurityGroup
	spot      []*fakeSpot
	calls     []string
	cancelled []string
	spotPolls int
	nextID    int
}

// NewFakeEC2 creates an empty fake that knows the default image.
func NewFakeEC2() *FakeEC2 {
	return &FakeEC2{
		Images:         map[string]bool{config.DefaultImageID: true},
		Unhealthy:      map[string]bool{},
		SystemImpaired: map[string]bool{},
		failures:       map[string][]error{},
	}
}

// FailNext queues err to be returned by the next call of op.
func (f *FakeEC2) FailNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], err)
}

// Calls returns every operation invoked so far, in order.
func (f *FakeEC2) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// MutatingCalls returns the invoked operations that change provider state.
func (f *FakeEC2) MutatingCalls() []string {
	var out []string
	for _, c := range f.Calls() {
		if !strings.HasPrefix(c, "Describe") {
			out = append(out, c)
		}
	}
	return out
}

// CallCount returns how many times op was invoked.
func (f *FakeEC2) CallCount(op string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == op {
			n++
		}
	}
	return n
}

// CancelledSpotRequests returns every request id passed to
// CancelSpotInstanceRequests, duplicates included.
func (f *FakeEC2) CancelledSpotRequests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.cancelled)
}

// Instances returns a snapshot of every instance, terminated ones included.
func (f *FakeEC2) Instances() []ec2types.Instance {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ec2types.Instance, 0, len(f.instances))
	for _, fi := range f.instances {
		out = append(out, fi.inst)
	}
	return out
}

// TagValue returns the value of key on inst, or "".
func TagValue(inst ec2types.Instance, key string) string {
	for _, t := range inst.Tags {
		if aws.ToString(t.Key) == key {
			return aws.ToString(t.Value)
		}
	}
	return ""
}

// SecurityGroup returns the named group, or nil.
func (f *FakeEC2) SecurityGroup(name string) *ec2types.SecurityGroup {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.groups {
		if aws.ToString(g.GroupName) == name {
			cp := *g
			return &cp
		}
	}
	return nil
}

// SeedGroup creates a security group without recording a call.
func (f *FakeEC2) SeedGroup(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createGroup(name, "")
}

// SeedInstance adds an instance in the given state to the named group
// without recording a call, creating the group when needed.
func (f *FakeEC2) SeedInstance(groupName string, state ec2types.InstanceStateName) string {
	return f.seed(groupName, state, "")
}

// SeedSpotInstance is SeedInstance for an instance that fulfilled the
// given spot request.
func (f *FakeEC2) SeedSpotInstance(groupName string, state ec2types.InstanceStateName, requestID string) string {
	return f.seed(groupName, state, requestID)
}

// StateOf returns the current state of instance id, or "" if unknown.
func (f *FakeEC2) StateOf(id string) ec2types.InstanceStateName {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fi := f.find(id); fi != nil {
		return fi.inst.State.Name
	}
	return ""
}

func (f *FakeEC2) seed(groupName string, state ec2types.InstanceStateName, spotRequestID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	groupID := ""
	for _, g := range f.groups {
		if aws.ToString(g.GroupName) == groupName {
			groupID = aws.ToString(g.GroupId)
		}
	}
	if groupID == "" {
		groupID = f.createGroup(groupName, "")
	}
	fi := f.newInstance(ec2types.InstanceTypeM4Large, []string{groupID}, spotRequestID)
	f.settle(fi, state)
	return aws.ToString(fi.inst.InstanceId)
}

func (f *FakeEC2) record(op string) error {
	f.calls = append(f.calls, op)
	if q := f.failures[op]; len(q) > 0 {
		f.failures[op] = q[1:]
		return q[0]
	}
	return nil
}

func (f *FakeEC2) hook(op string) {
	f.mu.Lock()
	h := f.OnCall
	f.mu.Unlock()
	if h != nil {
		h(op)
	}
}

func (f *FakeEC2) createGroup(name, vpcID string) string {
	f.nextID++
	id := fmt.Sprintf("sg-%08d", f.nextID)
	g := &ec2types.SecurityGroup{
		GroupId:   aws.String(id),
		GroupName: aws.String(name),
	}
	if vpcID != "" {
		g.VpcId = aws.String(vpcID)
	}
	f.groups = append(f.groups, g)
	return id
}

func (f *FakeEC2) groupByID(id string) *ec2types.SecurityGroup {
	for _, g := range f.groups {
		if aws.ToString(g.GroupId) == id {
			return g
		}
	}
	return nil
}

func (f *FakeEC2) newInstance(instanceType ec2types.InstanceType, groupIDs []string, spotRequestID string) *fakeInstance {
	f.nextID++
	n := f.nextID
	inst := ec2types.Instance{
		InstanceId:       aws.String(fmt.Sprintf("i-%017d", n)),
		InstanceType:     instanceType,
		PrivateIpAddress: aws.String(fmt.Sprintf("10.0.%d.%d", n/256, n%256)),
		LaunchTime:       aws.Time(time.Date(2026, 1, 1, 0, 0, n, 0, time.UTC)),
		State:            &ec2types.InstanceState{Name: ec2types.InstanceStateNamePending},
	}
	if spotRequestID != "" {
		inst.SpotInstanceRequestId = aws.String(spotRequestID)
		inst.InstanceLifecycle = ec2types.InstanceLifecycleTypeSpot
	}
	for _, id := range groupIDs {
		if g := f.groupByID(id); g != nil {
			inst.SecurityGroups = append(inst.SecurityGroups, ec2types.GroupIdentifier{GroupId: g.GroupId, GroupName: g.GroupName})
		}
	}
	fi := &fakeInstance{inst: inst, rounds: f.PendingRounds, target: ec2types.InstanceStateNameRunning}
	f.instances = append(f.instances, fi)
	return fi
}

// settle puts an instance into state immediately.
func (f *FakeEC2) settle(fi *fakeInstance, state ec2types.InstanceStateName) {
	fi.inst.State = &ec2types.InstanceState{Name: state}
	fi.target = state
	fi.rounds = 0
	n := strings.TrimLeft(strings.TrimPrefix(aws.ToString(fi.inst.InstanceId), "i-"), "0")
	switch state {
	case ec2types.InstanceStateNameRunning:
		fi.inst.PublicIpAddress = aws.String("54.0.0." + n)
		fi.inst.PublicDnsName = aws.String(fmt.Sprintf("ec2-54-0-0-%s.compute.amazonaws.com", n))
	case ec2types.InstanceStateNameStopped, ec2types.InstanceStateNameTerminated:
		fi.inst.PublicIpAddress = nil
		fi.inst.PublicDnsName = aws.String("")
	}
}

func (f *FakeEC2) transition(fi *fakeInstance, via, target ec2types.InstanceStateName) {
	if fi.inst.State.Name == ec2types.InstanceStateNameTerminated {
		return
	}
	fi.inst.State = &ec2types.InstanceState{Name: via}
	fi.target = target
	fi.rounds = f.PendingRounds
}

// advance moves every transitioning instance one step towards its target.
func (f *FakeEC2) advance() {
	for _, fi := range f.instances {
		if fi.inst.State.Name == fi.target {
			continue
		}
		if fi.rounds > 0 {
			fi.rounds--
			continue
		}
		f.settle(fi, fi.target)
	}
}

func (f *FakeEC2) find(id string) *fakeInstance {
	for _, fi := range f.instances {
		if aws.ToString(fi.inst.InstanceId) == id {
			return fi
		}
	}
	return nil
}

func (f *FakeEC2) findAll(ids []string) ([]*fakeInstance, error) {
	out := make([]*fakeInstance, 0, len(ids))
	for _, id := range ids {
		fi := f.find(id)
		if fi == nil {
			return nil, APIError("InvalidInstanceID.NotFound", fmt.Sprintf("The instance ID '%s' does not exist", id))
		}
		out = append(out, fi)
	}
	return out, nil
}

func inGroup(inst ec2types.Instance, names []string) bool {
	for _, g := range inst.SecurityGroups {
		if slices.Contains(names, aws.ToString(g.GroupName)) {
			return true
		}
	}
	return false
}

func (f *FakeEC2) DescribeInstances(_ context.Context, in *sdkec2.DescribeInstancesInput, _ ...func(*sdkec2.Options)) (*sdkec2.DescribeInstancesOutput, error) {
	f.hook("DescribeInstances")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DescribeInstances"); err != nil {
		return nil, err
	}
	f.advance()

	candidates := f.instances
	if len(in.InstanceIds) > 0 {
		found, err := f.findAll(in.InstanceIds)
		if err != nil {
			return nil, err
		}
		candidates = found
	}

	out := &sdkec2.DescribeInstancesOutput{}
	for _, fi := range candidates {
		match := true
		for _, filter := range in.Filters {
			switch aws.ToString(filter.Name) {
			case "instance.group-name":
				match = match && inGroup(fi.inst, filter.Values)
			case "instance-state-name":
				match = match && slices.Contains(filter.Values, string(fi.inst.State.Name))
			}
		}
		if match {
			out.Reservations = append(out.Reservations, ec2types.Reservation{Instances: []ec2types.Instance{fi.inst}})
		}
	}
	return out, nil
}

func (f *FakeEC2) DescribeInstanceStatus(_ context.Context, in *sdkec2.DescribeInstanceStatusInput, _ ...func(*sdkec2.Options)) (*sdkec2.DescribeInstanceStatusOutput, error) {
	f.hook("DescribeInstanceStatus")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DescribeInstanceStatus"); err != nil {
		return nil, err
	}
	found, err := f.findAll(in.InstanceIds)
	if err != nil {
		return nil, err
	}

	out := &sdkec2.DescribeInstanceStatusOutput{}
	for _, fi := range found {
		running := fi.inst.State.Name == ec2types.InstanceStateNameRunning
		if !running && !aws.ToBool(in.IncludeAllInstances) {
			continue
		}
		summary := ec2types.SummaryStatusInitializing
		if running {
			summary = ec2types.SummaryStatusOk
		}
		systemSummary, instanceSummary := summary, summary
		if f.SystemImpaired[aws.ToString(fi.inst.InstanceId)] {
			systemSummary = ec2types.SummaryStatusImpaired
		}
		if f.Unhealthy[aws.ToString(fi.inst.InstanceId)] {
			instanceSummary = ec2types.SummaryStatusImpaired
		}
		out.InstanceStatuses = append(out.InstanceStatuses, ec2types.InstanceStatus{
			InstanceId:     fi.inst.InstanceId,
			InstanceState:  fi.inst.State,
			SystemStatus:   &ec2types.InstanceStatusSummary{Status: systemSummary},
			InstanceStatus: &ec2types.InstanceStatusSummary{Status: instanceSummary},
		})
	}
	return out, nil
}

func (f *FakeEC2) RunInstances(_ context.Context, in *sdkec2.RunInstancesInput, _ ...func(*sdkec2.Options)) (*sdkec2.RunInstancesOutput, error) {
	f.hook("RunInstances")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("RunInstances"); err != nil {
		return nil, err
	}
	if !f.Images[aws.ToString(in.ImageId)] {
		return nil, APIError("InvalidAMIID.NotFound", "image not found")
	}

	out := &sdkec2.RunInstancesOutput{}
	for range aws.ToInt32(in.MaxCount) {
		fi := f.newInstance(in.InstanceType, in.SecurityGroupIds, "")
		out.Instances = append(out.Instances, fi.inst)
	}
	return out, nil
}

func (f *FakeEC2) changeState(op string, ids []string, via, target ec2types.InstanceStateName) error {
	if err := f.record(op); err != nil {
		return err
	}
	found, err := f.findAll(ids)
	if err != nil {
		return err
	}
	for _, fi := range found {
		f.transition(fi, via, target)
	}
	return nil
}

func (f *FakeEC2) TerminateInstances(_ context.Context, in *sdkec2.TerminateInstancesInput, _ ...func(*sdkec2.Options)) (*sdkec2.TerminateInstancesOutput, error) {
	f.hook("TerminateInstances")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.changeState("TerminateInstances", in.InstanceIds, ec2types.InstanceStateNameShuttingDown, ec2types.InstanceStateNameTerminated); err != nil {
		return nil, err
	}
	return &sdkec2.TerminateInstancesOutput{}, nil
}

func (f *FakeEC2) StopInstances(_ context.Context, in *sdkec2.StopInstancesInput, _ ...func(*sdkec2.Options)) (*sdkec2.StopInstancesOutput, error) {
	f.hook("StopInstances")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.changeState("StopInstances", in.InstanceIds, ec2types.InstanceStateNameStopping, ec2types.InstanceStateNameStopped); err != nil {
		return nil, err
	}
	return &sdkec2.StopInstancesOutput{}, nil
}

func (f *FakeEC2) StartInstances(_ context.Context, in *sdkec2.StartInstancesInput, _ ...func(*sdkec2.Options)) (*sdkec2.StartInstancesOutput, error) {
	f.hook("StartInstances")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.changeState("StartInstances", in.InstanceIds, ec2types.InstanceStateNamePending, ec2types.InstanceStateNameRunning); err != nil {
		return nil, err
	}
	return &sdkec2.StartInstancesOutput{}, nil
}

func (f *FakeEC2) RebootInstances(_ context.Context, in *sdkec2.RebootInstancesInput, _ ...func(*sdkec2.Options)) (*sdkec2.RebootInstancesOutput, error) {
	f.hook("RebootInstances")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("RebootInstances"); err != nil {
		return nil, err
	}
	if _, err := f.findAll(in.InstanceIds); err != nil {
		return nil, err
	}
	return &sdkec2.RebootInstancesOutput{}, nil
}

func (f *FakeEC2) CreateTags(_ context.Context, in *sdkec2.CreateTagsInput, _ ...func(*sdkec2.Options)) (*sdkec2.CreateTagsOutput, error) {
	f.hook("CreateTags")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateTags"); err != nil {
		return nil, err
	}
	for _, id := range in.Resources {
		fi := f.find(id)
		if fi == nil {
			continue
		}
		for _, tag := range in.Tags {
			fi.inst.Tags = slices.DeleteFunc(fi.inst.Tags, func(t ec2types.Tag) bool {
				return aws.ToString(t.Key) == aws.ToString(tag.Key)
			})
			fi.inst.Tags = append(fi.inst.Tags, tag)
		}
	}
	return &sdkec2.CreateTagsOutput{}, nil
}

func (f *FakeEC2) RequestSpotInstances(_ context.Context, in *sdkec2.RequestSpotInstancesInput, _ ...func(*sdkec2.Options)) (*sdkec2.RequestSpotInstancesOutput, error) {
	f.hook("RequestSpotInstances")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("RequestSpotInstances"); err != nil {
		return nil, err
	}

	out := &sdkec2.RequestSpotInstancesOutput{}
	for range aws.ToInt32(in.InstanceCount) {
		f.nextID++
		req := ec2types.SpotInstanceRequest{
			SpotInstanceRequestId: aws.String(fmt.Sprintf("sir-%08d", f.nextID)),
			State:                 ec2types.SpotInstanceStateOpen,
			SpotPrice:             in.SpotPrice,
			LaunchGroup:           in.LaunchGroup,
			Status:                &ec2types.SpotInstanceStatus{Code: aws.String("pending-evaluation")},
		}
		f.spot = append(f.spot, &fakeSpot{req: req, spec: *in.LaunchSpecification})
		out.SpotInstanceRequests = append(out.SpotInstanceRequests, req)
	}
	return out, nil
}

func (f *FakeEC2) DescribeSpotInstanceRequests(_ context.Context, in *sdkec2.DescribeSpotInstanceRequestsInput, _ ...func(*sdkec2.Options)) (*sdkec2.DescribeSpotInstanceRequestsOutput, error) {
	f.hook("DescribeSpotInstanceRequests")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DescribeSpotInstanceRequests"); err != nil {
		return nil, err
	}
	if f.spotPolls < f.SpotInvisiblePolls {
		f.spotPolls++
		return nil, APIError("InvalidSpotInstanceRequestID.NotFound", "The spot instance request ID does not exist")
	}

	poll := f.spotPolls - f.SpotInvisiblePolls
	f.spotPolls++
	target := len(f.spot)
	if f.SpotActivations != nil {
		target = f.SpotActivations[min(poll, len(f.SpotActivations)-1)]
	}

	active := 0
	for _, s := range f.spot {
		if s.req.State == ec2types.SpotInstanceStateActive {
			active++
		}
	}
	for _, s := range f.spot {
		if active >= target {
			break
		}
		if s.req.State != ec2types.SpotInstanceStateOpen {
			continue
		}
		fi := f.newInstance(s.spec.InstanceType, s.spec.SecurityGroupIds, aws.ToString(s.req.SpotInstanceRequestId))
		s.req.State = ec2types.SpotInstanceStateActive
		s.req.InstanceId = fi.inst.InstanceId
		s.req.Status = &ec2types.SpotInstanceStatus{Code: aws.String("fulfilled")}
		active++
	}

	out := &sdkec2.DescribeSpotInstanceRequestsOutput{}
	for _, id := range in.SpotInstanceRequestIds {
		for _, s := range f.spot {
			if aws.ToString(s.req.SpotInstanceRequestId) == id {
				out.SpotInstanceRequests = append(out.SpotInstanceRequests, s.req)
			}
		}
	}
	return out, nil
}

func (f *FakeEC2) CancelSpotInstanceRequests(_ context.Context, in *sdkec2.CancelSpotInstanceRequestsInput, _ ...func(*sdkec2.Options)) (*sdkec2.CancelSpotInstanceRequestsOutput, error) {
	f.hook("CancelSpotInstanceRequests")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CancelSpotInstanceRequests"); err != nil {
		return nil, err
	}
	f.cancelled = append(f.cancelled, in.SpotInstanceRequestIds...)
	for _, id := range in.SpotInstanceRequestIds {
		for _, s := range f.spot {
			if aws.ToString(s.req.SpotInstanceRequestId) == id {
				s.req.State = ec2types.SpotInstanceStateCancelled
			}
		}
	}
	return &sdkec2.CancelSpotInstanceRequestsOutput{}, nil
}

func (f *FakeEC2) DescribeSecurityGroups(_ context.Context, in *sdkec2.DescribeSecurityGroupsInput, _ ...func(*sdkec2.Options)) (*sdkec2.DescribeSecurityGroupsOutput, error) {
	f.hook("DescribeSecurityGroups")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DescribeSecurityGroups"); err != nil {
		return nil, err
	}

	out := &sdkec2.DescribeSecurityGroupsOutput{}
	for _, g := range f.groups {
		match := len(in.GroupIds) == 0 || slices.Contains(in.GroupIds, aws.ToString(g.GroupId))
		for _, filter := range in.Filters {
			switch aws.ToString(filter.Name) {
			case "group-name":
				match = match && slices.Contains(filter.Values, aws.ToString(g.GroupName))
			case "vpc-id":
				match = match && slices.Contains(filter.Values, aws.ToString(g.VpcId))
			}
		}
		if match {
			cp := *g
			cp.IpPermissions = slices.Clone(g.IpPermissions)
			out.SecurityGroups = append(out.SecurityGroups, cp)
		}
	}
	return out, nil
}

func (f *FakeEC2) CreateSecurityGroup(_ context.Context, in *sdkec2.CreateSecurityGroupInput, _ ...func(*sdkec2.Options)) (*sdkec2.CreateSecurityGroupOutput, error) {
	f.hook("CreateSecurityGroup")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateSecurityGroup"); err != nil {
		return nil, err
	}
	for _, g := range f.groups {
		if aws.ToString(g.GroupName) == aws.ToString(in.GroupName) && aws.ToString(g.VpcId) == aws.ToString(in.VpcId) {
			return nil, APIError("InvalidGroup.Duplicate", fmt.Sprintf("The security group '%s' already exists", aws.ToString(in.GroupName)))
		}
	}
	id := f.createGroup(aws.ToString(in.GroupName), aws.ToString(in.VpcId))
	return &sdkec2.CreateSecurityGroupOutput{GroupId: aws.String(id)}, nil
}

func (f *FakeEC2) AuthorizeSecurityGroupIngress(_ context.Context, in *sdkec2.AuthorizeSecurityGroupIngressInput, _ ...func(*sdkec2.Options)) (*sdkec2.AuthorizeSecurityGroupIngressOutput, error) {
	f.hook("AuthorizeSecurityGroupIngress")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("AuthorizeSecurityGroupIngress"); err != nil {
		return nil, err
	}
	g := f.groupByID(aws.ToString(in.GroupId))
	if g == nil {
		return nil, APIError("InvalidGroup.NotFound", "security group not found")
	}
	g.IpPermissions = append(g.IpPermissions, in.IpPermissions...)
	return &sdkec2.AuthorizeSecurityGroupIngressOutput{}, nil
}

func samePorts(a, b ec2types.IpPermission) bool {
	return aws.ToString(a.IpProtocol) == aws.ToString(b.IpProtocol) &&
		aws.ToInt32(a.FromPort) == aws.ToInt32(b.FromPort) &&
		aws.ToInt32(a.ToPort) == aws.ToInt32(b.ToPort)
}

// removeGrant deletes one CIDR or group grant from perms.
func removeGrant(perms []ec2types.IpPermission, grant ec2types.IpPermission) ([]ec2types.IpPermission, bool) {
	for i := range perms {
		p := &perms[i]
		if !samePorts(*p, grant) {
			continue
		}
		for _, r := range grant.IpRanges {
			before := len(p.IpRanges)
			p.IpRanges = slices.DeleteFunc(p.IpRanges, func(x ec2types.IpRange) bool {
				return aws.ToString(x.CidrIp) == aws.ToString(r.CidrIp)
			})
			if len(p.IpRanges) < before {
				return pruneEmpty(perms), true
			}
		}
		for _, pair := range grant.UserIdGroupPairs {
			before := len(p.UserIdGroupPairs)
			p.UserIdGroupPairs = slices.DeleteFunc(p.UserIdGroupPairs, func(x ec2types.UserIdGroupPair) bool {
				return aws.ToString(x.GroupId) == aws.ToString(pair.GroupId)
			})
			if len(p.UserIdGroupPairs) < before {
				return pruneEmpty(perms), true
			}
		}
	}
	return perms, false
}

func pruneEmpty(perms []ec2types.IpPermission) []ec2types.IpPermission {
	return slices.DeleteFunc(perms, func(p ec2types.IpPermission) bool {
		return len(p.IpRanges) == 0 && len(p.UserIdGroupPairs) == 0
	})
}

func (f *FakeEC2) RevokeSecurityGroupIngress(_ context.Context, in *sdkec2.RevokeSecurityGroupIngressInput, _ ...func(*sdkec2.Options)) (*sdkec2.RevokeSecurityGroupIngressOutput, error) {
	f.hook("RevokeSecurityGroupIngress")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("RevokeSecurityGroupIngress"); err != nil {
		return nil, err
	}
	g := f.groupByID(aws.ToString(in.GroupId))
	if g == nil {
		return nil, APIError("InvalidGroup.NotFound", "security group not found")
	}
	for _, grant := range in.IpPermissions {
		perms, ok := removeGrant(g.IpPermissions, grant)
		if !ok {
			return nil, APIError("InvalidPermission.NotFound", "the specified rule does not exist in this security group")
		}
		g.IpPermissions = perms
	}
	return &sdkec2.RevokeSecurityGroupIngressOutput{}, nil
}

func (f *FakeEC2) DeleteSecurityGroup(_ context.Context, in *sdkec2.DeleteSecurityGroupInput, _ ...func(*sdkec2.Options)) (*sdkec2.DeleteSecurityGroupOutput, error) {
	f.hook("DeleteSecurityGroup")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteSecurityGroup"); err != nil {
		return nil, err
	}
	id := aws.ToString(in.GroupId)
	if f.groupByID(id) == nil {
		return nil, APIError("InvalidGroup.NotFound", "security group not found")
	}
	if f.DeleteFailures > 0 {
		f.DeleteFailures--
		return nil, APIError("DependencyViolation", "resource has a dependent object")
	}
	for _, fi := range f.instances {
		if fi.inst.State.Name == ec2types.InstanceStateNameTerminated {
			continue
		}
		for _, g := range fi.inst.SecurityGroups {
			if aws.ToString(g.GroupId) == id {
				return nil, APIError("DependencyViolation", "resource has a dependent object")
			}
		}
	}
	for _, g := range f.groups {
		for _, p := range g.IpPermissions {
			for _, pair := range p.UserIdGroupPairs {
				if aws.ToString(pair.GroupId) == id && aws.ToString(g.GroupId) != id {
					return nil, APIError("DependencyViolation", "resource has a dependent object")
				}
			}
		}
	}
	f.groups = slices.DeleteFunc(f.groups, func(g *ec2types.SecurityGroup) bool {
		return aws.ToString(g.GroupId) == id
	})
	return &sdkec2.DeleteSecurityGroupOutput{}, nil
}

func (f *FakeEC2) DescribeImages(_ context.Context, in *sdkec2.DescribeImagesInput, _ ...func(*sdkec2.Options)) (*sdkec2.DescribeImagesOutput, error) {
	f.hook("DescribeImages")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DescribeImages"); err != nil {
		return nil, err
	}
	out := &sdkec2.DescribeImagesOutput{}
	for _, id := range in.ImageIds {
		if !f.Images[id] {
			return nil, APIError("InvalidAMIID.NotFound", fmt.Sprintf("The image id '[%s]' does not exist", id))
		}
		out.Images = append(out.Images, ec2types.Image{ImageId: aws.String(id), VirtualizationType: ec2types.VirtualizationTypeHvm})
	}
	return out, nil
}
