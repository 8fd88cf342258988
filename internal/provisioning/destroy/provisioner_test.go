package destroy_test

import (
	"context"
	"testing"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/hadoop-ec2/internal/platform/ec2"
	"github.com/imamik/hadoop-ec2/internal/provisioning/destroy"
	"github.com/imamik/hadoop-ec2/internal/provisioning/launch"
	testutil "github.com/imamik/hadoop-ec2/internal/testing"
)

// terminationLog records the order of termination calls.
type terminationLog struct {
	ec2.CloudManager
	ids []string
}

func (l *terminationLog) TerminateInstances(ctx context.Context, ids ...string) error {
	l.ids = append(l.ids, ids...)
	return l.CloudManager.TerminateInstances(ctx, ids...)
}

// laggingGroup serves one security group whose rules stay visible after
// being revoked and whose deletion fails a scripted number of times, with
// failure or a DependencyViolation.
type laggingGroup struct {
	ec2.CloudManager
	group          ec2.SecurityGroup
	deleteFailures int
	failure        error
	revokes        int
	deletes        int
	deleted        bool
}

func (g *laggingGroup) GetSecurityGroup(_ context.Context, name, _ string) (*ec2.SecurityGroup, error) {
	if name != g.group.Name || g.deleted {
		return nil, nil
	}
	cp := g.group
	return &cp, nil
}

func (g *laggingGroup) RevokeIngress(context.Context, string, ec2.Rule) error {
	g.revokes++
	return nil
}

func (g *laggingGroup) DeleteSecurityGroup(context.Context, string) error {
	g.deletes++
	if g.deleteFailures != 0 {
		g.deleteFailures--
		if g.failure != nil {
			return g.failure
		}
		return testutil.APIError("DependencyViolation", "resource sg-1 has a dependent object")
	}
	g.deleted = true
	return nil
}

func launched(t *testing.T, b *testutil.ConfigBuilder) *testutil.Env {
	t.Helper()
	env := testutil.NewEnv(t, b.WithClusterName("demo").WithSubordinates(2).WithIdentityFile(testutil.IdentityFile(t)).Build())
	require.NoError(t, launch.Run(env.Ctx, launch.Options{}))
	return env
}

func TestRun_TerminatesMainsFirst(t *testing.T) {
	t.Parallel()
	env := launched(t, testutil.NewConfigBuilder())
	mainID := env.Ctx.State.MainIDs[0]
	log := &terminationLog{CloudManager: env.Ctx.Cloud}
	env.Ctx.Cloud = log

	res, err := destroy.Run(env.Ctx)
	require.NoError(t, err)

	require.Len(t, log.ids, 3)
	assert.Equal(t, mainID, log.ids[0])
	assert.ElementsMatch(t, env.Ctx.State.SubordinateIDs, log.ids[1:])
	assert.Equal(t, log.ids, res.Terminated)
	assert.Equal(t, 3, env.API.CallCount("TerminateInstances"))
	assert.Zero(t, env.API.CallCount("DeleteSecurityGroup"))
	assert.NotNil(t, env.API.SecurityGroup("demo-main"))
}

func TestRun_TerminationErrorsAreCollected(t *testing.T) {
	t.Parallel()
	env := launched(t, testutil.NewConfigBuilder().WithDeleteGroups(true))
	env.API.FailNext("TerminateInstances", testutil.APIError("UnauthorizedOperation", "denied"))

	res, err := destroy.Run(env.Ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
	assert.Equal(t, 3, env.API.CallCount("TerminateInstances"))
	assert.Len(t, res.Terminated, 2)
	assert.Zero(t, env.API.CallCount("DeleteSecurityGroup"))
}

func TestRun_DeletesGroups(t *testing.T) {
	t.Parallel()
	env := launched(t, testutil.NewConfigBuilder().WithDeleteGroups(true))
	env.API.PendingRounds = 2

	res, err := destroy.Run(env.Ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Attempts)
	assert.Empty(t, res.RemainingGroups)
	assert.Nil(t, env.API.SecurityGroup("demo-main"))
	assert.Nil(t, env.API.SecurityGroup("demo-subordinates"))
	// 4 cross-group and 15 public rules on main, 4 and 6 on subordinates
	assert.Equal(t, 29, env.API.CallCount("RevokeSecurityGroupIngress"))
	for _, inst := range env.API.Instances() {
		assert.Equal(t, ec2types.InstanceStateNameTerminated, inst.State.Name)
	}
}

func TestRun_GroupDeletionRetriedOnDependencyViolation(t *testing.T) {
	t.Parallel()
	env := launched(t, testutil.NewConfigBuilder().WithDeleteGroups(true))
	env.API.DeleteFailures = 2

	res, err := destroy.Run(env.Ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	assert.Nil(t, env.API.SecurityGroup("demo-main"))
	assert.Nil(t, env.API.SecurityGroup("demo-subordinates"))
}

func TestRun_BoundedGroupDeletion(t *testing.T) {
	t.Parallel()
	env := testutil.NewEnv(t, testutil.NewConfigBuilder().WithClusterName("demo").WithDeleteGroups(true).Build())
	group := &laggingGroup{
		CloudManager: env.Ctx.Cloud,
		group: ec2.SecurityGroup{ID: "sg-1", Name: "demo-main", Ingress: []ec2.Rule{
			{Protocol: "tcp", FromPort: 0, ToPort: 65535, SourceGroupID: "sg-1"},
			{Protocol: "tcp", FromPort: 0, ToPort: 65535, SourceGroupID: "sg-2"},
			{Protocol: "udp", FromPort: 0, ToPort: 65535, SourceGroupID: "sg-2"},
		}},
		deleteFailures: 2,
	}
	env.Ctx.Cloud = group

	res, err := destroy.Run(env.Ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 9, group.revokes)
	assert.Equal(t, 3, group.deletes)
	assert.Empty(t, res.RemainingGroups)
	assert.Empty(t, env.Observer.Warnings())
	assert.True(t, env.Observer.Logged("Security group demo-main is still in use"))
	assert.False(t, env.Observer.Logged("Failed to delete security group"))
}

func TestRun_GroupDeletionOtherFailure(t *testing.T) {
	t.Parallel()
	env := testutil.NewEnv(t, testutil.NewConfigBuilder().WithClusterName("demo").WithDeleteGroups(true).Build())
	group := &laggingGroup{
		CloudManager:   env.Ctx.Cloud,
		group:          ec2.SecurityGroup{ID: "sg-1", Name: "demo-main"},
		deleteFailures: 1,
		failure:        testutil.APIError("RequestLimitExceeded", "slow down"),
	}
	env.Ctx.Cloud = group

	res, err := destroy.Run(env.Ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Attempts)
	assert.Empty(t, res.RemainingGroups)
	assert.True(t, env.Observer.Logged("Failed to delete security group demo-main"))
	assert.False(t, env.Observer.Logged("is still in use"))
}

func TestRun_GroupDeletionGivesUpWithWarning(t *testing.T) {
	t.Parallel()
	env := testutil.NewEnv(t, testutil.NewConfigBuilder().WithClusterName("demo").WithDeleteGroups(true).Build())
	group := &laggingGroup{
		CloudManager:   env.Ctx.Cloud,
		group:          ec2.SecurityGroup{ID: "sg-1", Name: "demo-main"},
		deleteFailures: -1,
	}
	env.Ctx.Cloud = group

	res, err := destroy.Run(env.Ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, []string{"demo-main"}, res.RemainingGroups)
	require.Len(t, env.Observer.Warnings(), 1)
	assert.Contains(t, env.Observer.Warnings()[0], "Try re-running in a few minutes")
}

func TestRun_EmptyCluster(t *testing.T) {
	t.Parallel()
	env := testutil.NewEnv(t, testutil.NewConfigBuilder().WithClusterName("demo").WithDeleteGroups(true).Build())
	env.API.SeedGroup("demo-main")

	res, err := destroy.Run(env.Ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Terminated)
	assert.Zero(t, env.API.CallCount("TerminateInstances"))
	assert.Nil(t, env.API.SecurityGroup("demo-main"))
}

func TestProvisioner(t *testing.T) {
	t.Parallel()
	env := launched(t, testutil.NewConfigBuilder())

	p := destroy.NewProvisioner()
	assert.Equal(t, "Destroy", p.Name())
	require.NoError(t, p.Provision(env.Ctx))
	assert.Len(t, p.Result().Terminated, 3)
}
