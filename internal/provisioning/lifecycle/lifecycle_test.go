package lifecycle_test

import (
	"testing"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/hadoop-ec2/internal/cluster"
	"github.com/imamik/hadoop-ec2/internal/provisioning/lifecycle"
	testutil "github.com/imamik/hadoop-ec2/internal/testing"
)

const (
	mainGroup        = "test-cluster-main"
	subordinateGroup = "test-cluster-subordinates"
)

func TestStop(t *testing.T) {
	t.Parallel()
	env := testutil.NewEnv(t, testutil.NewConfigBuilder().Build())
	main := env.API.SeedInstance(mainGroup, ec2types.InstanceStateNameRunning)
	onDemand := env.API.SeedInstance(subordinateGroup, ec2types.InstanceStateNameRunning)
	spot := env.API.SeedSpotInstance(subordinateGroup, ec2types.InstanceStateNameRunning, "sir-00000001")
	gone := env.API.SeedInstance(subordinateGroup, ec2types.InstanceStateNameTerminated)

	res, err := lifecycle.Stop(env.Ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{main, onDemand}, res.Stopped)
	assert.Equal(t, []string{spot}, res.Terminated)
	assert.Equal(t, ec2types.InstanceStateNameStopping, env.API.StateOf(main))
	assert.Equal(t, ec2types.InstanceStateNameStopping, env.API.StateOf(onDemand))
	assert.Equal(t, ec2types.InstanceStateNameShuttingDown, env.API.StateOf(spot))
	assert.Equal(t, ec2types.InstanceStateNameTerminated, env.API.StateOf(gone))
	assert.Equal(t, []string{"StopInstances", "StopInstances", "TerminateInstances"}, env.API.MutatingCalls())
}

func TestStop_CollectsErrors(t *testing.T) {
	t.Parallel()
	env := testutil.NewEnv(t, testutil.NewConfigBuilder().Build())
	env.API.SeedInstance(mainGroup, ec2types.InstanceStateNameRunning)
	sub := env.API.SeedInstance(subordinateGroup, ec2types.InstanceStateNameRunning)
	env.API.FailNext("StopInstances", testutil.APIError("IncorrectInstanceState", "busy"))

	res, err := lifecycle.Stop(env.Ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IncorrectInstanceState")
	assert.Equal(t, []string{sub}, res.Stopped)
}

func TestStop_EmptyCluster(t *testing.T) {
	t.Parallel()
	env := testutil.NewEnv(t, testutil.NewConfigBuilder().Build())

	res, err := lifecycle.Stop(env.Ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Stopped)
	assert.Empty(t, env.API.MutatingCalls())
}

func TestStart(t *testing.T) {
	t.Parallel()
	cfg := testutil.NewConfigBuilder().WithSetupCommand("hadoop-ec2/setup.sh").Build()
	env := testutil.NewEnv(t, cfg)
	env.API.PendingRounds = 1
	main := env.API.SeedInstance(mainGroup, ec2types.InstanceStateNameStopped)
	sub := env.API.SeedInstance(subordinateGroup, ec2types.InstanceStateNameStopped)

	view, err := lifecycle.Start(env.Ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"StartInstances", "StartInstances"}, env.API.MutatingCalls())
	assert.Equal(t, ec2types.InstanceStateNameRunning, env.API.StateOf(main))
	assert.Equal(t, ec2types.InstanceStateNameRunning, env.API.StateOf(sub))

	host := view.First().Host()
	require.NotEmpty(t, host)
	// The cluster key from launch is reused: only the setup command runs.
	assert.Equal(t, []string{"hadoop-ec2/setup.sh"}, env.Transport.Commands(host))
	assert.Empty(t, env.Transport.Commands(view.Subordinates[0].Host()))
}

func TestStart_RequiresMain(t *testing.T) {
	t.Parallel()
	env := testutil.NewEnv(t, testutil.NewConfigBuilder().Build())
	env.API.SeedInstance(subordinateGroup, ec2types.InstanceStateNameStopped)

	_, err := lifecycle.Start(env.Ctx)
	require.ErrorIs(t, err, cluster.ErrMainNotFound)
	var nf *cluster.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "test-cluster", nf.Cluster)
	assert.Empty(t, env.API.MutatingCalls())
}

func TestRebootSubordinates(t *testing.T) {
	t.Parallel()
	env := testutil.NewEnv(t, testutil.NewConfigBuilder().Build())
	env.API.SeedInstance(mainGroup, ec2types.InstanceStateNameRunning)
	a := env.API.SeedInstance(subordinateGroup, ec2types.InstanceStateNameRunning)
	b := env.API.SeedInstance(subordinateGroup, ec2types.InstanceStateNameRunning)
	env.API.SeedInstance(subordinateGroup, ec2types.InstanceStateNameShuttingDown)

	rebooted, err := lifecycle.RebootSubordinates(env.Ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, rebooted)
	assert.Equal(t, 2, env.API.CallCount("RebootInstances"))
}

func TestGetMain(t *testing.T) {
	t.Parallel()

	t.Run("running main", func(t *testing.T) {
		t.Parallel()
		env := testutil.NewEnv(t, testutil.NewConfigBuilder().Build())
		env.API.SeedInstance(mainGroup, ec2types.InstanceStateNameRunning)

		dns, err := lifecycle.GetMain(env.Ctx)
		require.NoError(t, err)
		assert.Contains(t, dns, ".compute.amazonaws.com")
	})

	t.Run("stopped main has no DNS name", func(t *testing.T) {
		t.Parallel()
		env := testutil.NewEnv(t, testutil.NewConfigBuilder().Build())
		env.API.SeedInstance(mainGroup, ec2types.InstanceStateNameStopped)

		dns, err := lifecycle.GetMain(env.Ctx)
		require.NoError(t, err)
		assert.Empty(t, dns)
		require.Len(t, env.Observer.Warnings(), 1)
		assert.Contains(t, env.Observer.Warnings()[0], "no public DNS name")
	})

	t.Run("no main", func(t *testing.T) {
		t.Parallel()
		env := testutil.NewEnv(t, testutil.NewConfigBuilder().Build())

		_, err := lifecycle.GetMain(env.Ctx)
		require.ErrorIs(t, err, cluster.ErrMainNotFound)
	})

	t.Run("provider failure is not a missing main", func(t *testing.T) {
		t.Parallel()
		env := testutil.NewEnv(t, testutil.NewConfigBuilder().Build())
		env.API.FailNext("DescribeInstances", testutil.APIError("RequestLimitExceeded", "slow down"))

		_, err := lifecycle.GetMain(env.Ctx)
		require.Error(t, err)
		assert.NotErrorIs(t, err, cluster.ErrMainNotFound)
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()
	env := testutil.NewEnv(t, testutil.NewConfigBuilder().Build())
	env.API.SeedInstance(mainGroup, ec2types.InstanceStateNameRunning)
	dns, err := lifecycle.GetMain(env.Ctx)
	require.NoError(t, err)

	require.NoError(t, lifecycle.Login(env.Ctx))

	calls := env.Transport.CallsTo(dns)
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Interactive)
	assert.Empty(t, calls[0].Command)
}

func TestLogin_NoMain(t *testing.T) {
	t.Parallel()
	env := testutil.NewEnv(t, testutil.NewConfigBuilder().Build())

	require.ErrorIs(t, lifecycle.Login(env.Ctx), cluster.ErrMainNotFound)
	assert.Empty(t, env.Transport.Calls())
}
