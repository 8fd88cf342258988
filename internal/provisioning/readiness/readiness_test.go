package readiness_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/hadoop-ec2/internal/provisioning/readiness"
	testutil "github.com/imamik/hadoop-ec2/internal/testing"
)

func host(t *testing.T, env *testutil.Env, id string) string {
	t.Helper()
	insts, err := env.Ctx.Cloud.DescribeInstances(env.Ctx, []string{id})
	require.NoError(t, err)
	require.Len(t, insts, 1)
	return insts[0].Host()
}

func TestEvaluate_SSHReady(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		degrade func(t *testing.T, env *testutil.Env, victim string)
		want    bool
	}{
		{
			name:    "all conditions hold",
			degrade: func(*testing.T, *testutil.Env, string) {},
			want:    true,
		},
		{
			name: "one instance not running",
			degrade: func(t *testing.T, env *testutil.Env, victim string) {
				require.NoError(t, env.Ctx.Cloud.StopInstances(env.Ctx, victim))
			},
		},
		{
			name: "one instance fails the system check",
			degrade: func(_ *testing.T, env *testutil.Env, victim string) {
				env.API.SystemImpaired[victim] = true
			},
		},
		{
			name: "one instance fails the instance check",
			degrade: func(_ *testing.T, env *testutil.Env, victim string) {
				env.API.Unhealthy[victim] = true
			},
		},
		{
			name: "one instance refuses ssh",
			degrade: func(t *testing.T, env *testutil.Env, victim string) {
				env.Transport.SetReachable(host(t, env, victim), false)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := testutil.NewEnv(t, testutil.NewConfigBuilder().Build())
			ids := []string{
				env.API.SeedInstance("test-cluster-main", ec2types.InstanceStateNameRunning),
				env.API.SeedInstance("test-cluster-subordinates", ec2types.InstanceStateNameRunning),
				env.API.SeedInstance("test-cluster-subordinates", ec2types.InstanceStateNameRunning),
			}
			tt.degrade(t, env, ids[1])

			res, err := readiness.Evaluate(env.Ctx, ids, readiness.SSHReady)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Ready(readiness.SSHReady))
			assert.Equal(t, 3, res.Total)
		})
	}
}

func TestEvaluate_NoProbeUntilHealthy(t *testing.T) {
	t.Parallel()
	env := testutil.NewEnv(t, testutil.NewConfigBuilder().Build())
	ids := []string{
		env.API.SeedInstance("test-cluster-main", ec2types.InstanceStateNameRunning),
		env.API.SeedInstance("test-cluster-subordinates", ec2types.InstanceStateNameStopped),
	}

	res, err := readiness.Evaluate(env.Ctx, ids, readiness.SSHReady)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Matched)
	assert.False(t, res.Reachable)
	assert.Empty(t, env.Transport.Calls())
}

func TestEvaluate_LifecycleState(t *testing.T) {
	t.Parallel()
	env := testutil.NewEnv(t, testutil.NewConfigBuilder().Build())
	ids := []string{
		env.API.SeedInstance("test-cluster-main", ec2types.InstanceStateNameTerminated),
		env.API.SeedInstance("test-cluster-subordinates", ec2types.InstanceStateNameRunning),
	}

	res, err := readiness.Evaluate(env.Ctx, ids, readiness.Terminated)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Matched)
	assert.False(t, res.Ready(readiness.Terminated))
	assert.Empty(t, env.Transport.Calls())
}

func TestEvaluate_Batches(t *testing.T) {
	t.Parallel()
	env := testutil.NewEnv(t, testutil.NewConfigBuilder().Build())
	var ids []string
	for range 250 {
		ids = append(ids, env.API.SeedInstance("test-cluster-subordinates", ec2types.InstanceStateNameRunning))
	}

	res, err := readiness.Evaluate(env.Ctx, ids, readiness.Running)
	require.NoError(t, err)
	assert.True(t, res.Ready(readiness.Running))
	assert.Equal(t, 3, env.API.CallCount("DescribeInstances"))
}

func TestEvaluate_UnknownInstanceIsNotReady(t *testing.T) {
	t.Parallel()
	env := testutil.NewEnv(t, testutil.NewConfigBuilder().Build())

	res, err := readiness.Evaluate(env.Ctx, []string{"i-missing"}, readiness.Running)
	require.NoError(t, err)
	assert.False(t, res.Ready(readiness.Running))
}

func TestWait_PendingInstances(t *testing.T) {
	t.Parallel()
	env := testutil.NewEnv(t, testutil.NewConfigBuilder().Build())
	env.API.PendingRounds = 3
	insts, err := env.Ctx.Cloud.RunInstances(env.Ctx, runSpec(2))
	require.NoError(t, err)

	_, err = readiness.Wait(env.Ctx, []string{insts[0].ID, insts[1].ID}, readiness.SSHReady)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(env.Observer.Events("progress")), 4)
	assert.True(t, env.Observer.Logged("Cluster is now in 'ssh-ready' state"))
}

func TestWait_UnreachableUntilTimeout(t *testing.T) {
	t.Parallel()
	cfg := testutil.NewConfigBuilder().Build()
	cfg.Timeouts.Wait = 50 * time.Millisecond
	cfg.Timeouts.ReadinessStep = time.Millisecond
	env := testutil.NewEnv(t, cfg)
	id := env.API.SeedInstance("test-cluster-main", ec2types.InstanceStateNameRunning)
	env.Transport.SetReachable(host(t, env, id), false)

	_, err := readiness.Wait(env.Ctx, []string{id}, readiness.SSHReady)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWait_ProviderErrorIsFatal(t *testing.T) {
	t.Parallel()
	env := testutil.NewEnv(t, testutil.NewConfigBuilder().Build())
	id := env.API.SeedInstance("test-cluster-main", ec2types.InstanceStateNameRunning)
	env.API.FailNext("DescribeInstances", testutil.APIError("UnauthorizedOperation", "denied"))

	_, err := readiness.Wait(env.Ctx, []string{id}, readiness.Running)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
	assert.Equal(t, 1, env.API.CallCount("DescribeInstances"))
}

func TestWait_NoInstances(t *testing.T) {
	t.Parallel()
	env := testutil.NewEnv(t, testutil.NewConfigBuilder().Build())

	elapsed, err := readiness.Wait(env.Ctx, nil, readiness.SSHReady)
	require.NoError(t, err)
	assert.Zero(t, elapsed)
	assert.Empty(t, env.API.Calls())
}

func TestResult_Ready(t *testing.T) {
	t.Parallel()
	tests := []struct {
		res    readiness.Result
		target readiness.Target
		want   bool
	}{
		{readiness.Result{Total: 2, Matched: 2}, readiness.Running, true},
		{readiness.Result{Total: 2, Matched: 1}, readiness.Running, false},
		{readiness.Result{Total: 2, Matched: 2}, readiness.SSHReady, false},
		{readiness.Result{Total: 2, Matched: 2, Reachable: true}, readiness.SSHReady, true},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.res.Ready(tt.target))
		})
	}
}
