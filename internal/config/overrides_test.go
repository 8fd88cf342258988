package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestOverrides_Apply(t *testing.T) {
	t.Parallel()
	cfg := Default()
	cfg.Timeouts = Immediate()

	Overrides{
		Zone:         ptr("us-east-1a"),
		Subordinates: ptr(4),
		SpotPrice:    ptr(0.25),
		DeleteGroups: ptr(true),
		WaitTimeout:  ptr(10 * time.Minute),
	}.Apply(cfg)

	assert.Equal(t, "us-east-1a", cfg.Zone)
	assert.Equal(t, 4, cfg.Subordinates)
	assert.InDelta(t, 0.25, cfg.SpotPrice, 1e-9)
	assert.True(t, cfg.DeleteGroups)
	assert.Equal(t, 10*time.Minute, cfg.Timeouts.Wait)
	// Untouched fields keep their defaults.
	assert.Equal(t, DefaultRegion, cfg.Region)
	assert.Equal(t, DefaultInstanceType, cfg.InstanceType)
}

func TestLoad(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "cluster.yaml")
	require.NoError(t, os.WriteFile(path, []byte("zone: us-west-2a\nsubordinates: 3\nkey_pair: from-file\n"), 0o600))

	cfg, err := Load(path, "demo", Overrides{KeyPair: ptr("from-flag")})
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.ClusterName)
	assert.Equal(t, "us-west-2a", cfg.Zone)
	assert.Equal(t, 3, cfg.Subordinates)
	assert.Equal(t, "from-flag", cfg.KeyPair)
}

func TestLoad_NoFile(t *testing.T) {
	t.Parallel()
	cfg, err := Load("", "demo", Overrides{})
	require.NoError(t, err)
	assert.Equal(t, DefaultZone, cfg.Zone)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), "demo", Overrides{})
	require.Error(t, err)
}
