package ec2_test

import (
	"context"
	"testing"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/hadoop-ec2/internal/config"
	"github.com/imamik/hadoop-ec2/internal/platform/ec2"
	testutil "github.com/imamik/hadoop-ec2/internal/testing"
)

func newClient() (*ec2.RealClient, *testutil.FakeEC2) {
	api := testutil.NewFakeEC2()
	return ec2.NewRealClient(api), api
}

func TestEnsureSecurityGroup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, api := newClient()

	created, err := client.EnsureSecurityGroup(ctx, "demo-main", "main group", "")
	require.NoError(t, err)
	assert.Equal(t, "demo-main", created.Name)
	assert.Empty(t, created.Ingress)

	again, err := client.EnsureSecurityGroup(ctx, "demo-main", "main group", "")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, 1, api.CallCount("CreateSecurityGroup"))
}

func TestEnsureSecurityGroup_DuplicateButMissing(t *testing.T) {
	t.Parallel()
	client, api := newClient()
	api.FailNext("CreateSecurityGroup", testutil.APIError("InvalidGroup.Duplicate", "exists"))

	_, err := client.EnsureSecurityGroup(context.Background(), "demo-main", "main group", "")
	require.Error(t, err)
	assert.True(t, ec2.IsDuplicate(err))
	assert.Equal(t, 2, api.CallCount("DescribeSecurityGroups"))
}

func TestGetSecurityGroup_Missing(t *testing.T) {
	t.Parallel()
	client, _ := newClient()

	g, err := client.GetSecurityGroup(context.Background(), "nope", "")
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestIngressRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, _ := newClient()
	main, err := client.EnsureSecurityGroup(ctx, "demo-main", "main group", "")
	require.NoError(t, err)
	sub, err := client.EnsureSecurityGroup(ctx, "demo-subordinates", "subordinate group", "")
	require.NoError(t, err)

	rules := []ec2.Rule{
		{Protocol: "tcp", FromPort: 0, ToPort: 65535, SourceGroupID: sub.ID},
		{Protocol: "tcp", FromPort: 22, ToPort: 22, CIDR: "0.0.0.0/0"},
	}
	require.NoError(t, client.AuthorizeIngress(ctx, main.ID, rules))

	got, err := client.GetSecurityGroup(ctx, "demo-main", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, rules, got.Ingress)

	require.NoError(t, client.RevokeIngress(ctx, main.ID, rules[0]))
	got, err = client.GetSecurityGroup(ctx, "demo-main", "")
	require.NoError(t, err)
	assert.Equal(t, rules[1:], got.Ingress)

	err = client.RevokeIngress(ctx, main.ID, rules[0])
	require.Error(t, err)
	assert.True(t, ec2.IsNotFound(err))
}

func TestDeleteSecurityGroup_DependencyViolation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, api := newClient()
	api.SeedInstance("demo-main", ec2types.InstanceStateNameRunning)
	g, err := client.GetSecurityGroup(ctx, "demo-main", "")
	require.NoError(t, err)

	err = client.DeleteSecurityGroup(ctx, g.ID)
	require.Error(t, err)
	assert.True(t, ec2.IsDependencyViolation(err))
}

func TestRunAndDescribeInstances(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, _ := newClient()
	g, err := client.EnsureSecurityGroup(ctx, "demo-subordinates", "subordinate group", "")
	require.NoError(t, err)

	launched, err := client.RunInstances(ctx, ec2.RunSpec{
		ImageID:      config.DefaultImageID,
		InstanceType: "m4.large",
		KeyName:      "demo-key",
		Zone:         config.DefaultZone,
		GroupIDs:     []string{g.ID},
		Count:        3,
	})
	require.NoError(t, err)
	require.Len(t, launched, 3)
	assert.Equal(t, ec2types.InstanceStateNamePending, launched[0].State)
	assert.Equal(t, "m4.large", launched[0].InstanceType)
	assert.False(t, launched[0].Spot())

	listed, err := client.ListInstances(ctx, "demo-subordinates")
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, ec2types.InstanceStateNameRunning, listed[0].State)
	assert.NotEmpty(t, listed[0].Host())
	assert.Contains(t, listed[0].GroupNames, "demo-subordinates")

	statuses, err := client.DescribeInstanceStatuses(ctx, []string{launched[0].ID})
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Healthy())
}

func TestDescribeInstances_Batches(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, api := newClient()

	ids := make([]string, 0, 250)
	for range 250 {
		ids = append(ids, api.SeedInstance("demo-subordinates", ec2types.InstanceStateNameRunning))
	}

	got, err := client.DescribeInstances(ctx, ids)
	require.NoError(t, err)
	assert.Len(t, got, 250)
	assert.Equal(t, 3, api.CallCount("DescribeInstances"))
}

func TestDescribeInstances_NotFound(t *testing.T) {
	t.Parallel()
	client, _ := newClient()

	_, err := client.DescribeInstances(context.Background(), []string{"i-00000000000000042"})
	require.Error(t, err)
	assert.True(t, ec2.IsNotFound(err))
}

func TestInstance(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "dns", ec2.Instance{PublicDNS: "dns", PublicIP: "1.2.3.4"}.Host())
	assert.Equal(t, "1.2.3.4", ec2.Instance{PublicIP: "1.2.3.4"}.Host())
	assert.True(t, ec2.Instance{State: ec2types.InstanceStateNameShuttingDown}.Terminal())
	assert.True(t, ec2.Instance{State: ec2types.InstanceStateNameTerminated}.Terminal())
	assert.False(t, ec2.Instance{State: ec2types.InstanceStateNameStopped}.Terminal())
	assert.True(t, ec2.Instance{SpotRequestID: "sir-1"}.Spot())
}

func TestResolveImage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, _ := newClient()

	id, err := client.ResolveImage(ctx, config.DefaultImageID)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultImageID, id)

	_, err = client.ResolveImage(ctx, "ami-missing")
	require.ErrorIs(t, err, ec2.ErrImageNotFound)
}

func TestSpotRequests(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client, api := newClient()
	api.SpotActivations = []int{1, 2}

	ids, err := client.RequestSpotInstances(ctx, ec2.SpotSpec{
		RunSpec: ec2.RunSpec{
			ImageID:      config.DefaultImageID,
			InstanceType: "m4.large",
			Zone:         config.DefaultZone,
			Count:        2,
		},
		Price:       0.5,
		LaunchGroup: "launch-group-demo",
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)

	reqs, err := client.DescribeSpotRequests(ctx, ids)
	require.NoError(t, err)
	active := 0
	for _, r := range reqs {
		if r.Active() {
			active++
			assert.NotEmpty(t, r.InstanceID)
		}
	}
	assert.Equal(t, 1, active)

	require.NoError(t, client.CancelSpotRequests(ctx, ids))
	assert.ElementsMatch(t, ids, api.CancelledSpotRequests())
}
