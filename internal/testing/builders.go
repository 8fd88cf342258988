package testing

import (
	"github.com/imamik/hadoop-ec2/internal/config"
)

// ConfigBuilder provides a fluent interface for constructing test configs.
// Each method returns a new builder (immutable) for chaining.
type ConfigBuilder struct {
	cfg config.Config
}

// NewConfigBuilder creates a builder with defaults and zero-delay timeouts.
func NewConfigBuilder() *ConfigBuilder {
	cfg := config.Default()
	cfg.ClusterName = "test-cluster"
	cfg.KeyPair = "test-key"
	cfg.Timeouts = config.Immediate()
	return &ConfigBuilder{cfg: *cfg}
}

func (b *ConfigBuilder) WithClusterName(name string) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.ClusterName = name
	return nb
}

func (b *ConfigBuilder) WithSubordinates(n int) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.Subordinates = n
	return nb
}

func (b *ConfigBuilder) WithInstanceTypes(mainType, subordinateType string) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.MainInstanceType = mainType
	nb.cfg.InstanceType = subordinateType
	return nb
}

// WithSpotPrice launches subordinates on the spot market.
func (b *ConfigBuilder) WithSpotPrice(price float64) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.SpotPrice = price
	return nb
}

func (b *ConfigBuilder) WithIdentityFile(path string) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.IdentityFile = path
	return nb
}

func (b *ConfigBuilder) WithKeyPair(name string) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.KeyPair = name
	return nb
}

func (b *ConfigBuilder) WithVPC(vpcID, subnetID string) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.VPCID = vpcID
	nb.cfg.SubnetID = subnetID
	return nb
}

func (b *ConfigBuilder) WithDeleteGroups(v bool) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.DeleteGroups = v
	return nb
}

func (b *ConfigBuilder) WithSetupCommand(cmd string) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.SetupCommand = cmd
	return nb
}

// WithTimeouts replaces the zero-delay timeouts.
func (b *ConfigBuilder) WithTimeouts(t *config.Timeouts) *ConfigBuilder {
	nb := b.clone()
	nb.cfg.Timeouts = t
	return nb
}

// Build returns a copy of the built configuration.
func (b *ConfigBuilder) Build() *config.Config {
	cfg := b.cfg
	timeouts := *b.cfg.Timeouts
	cfg.Timeouts = &timeouts
	return &cfg
}

func (b *ConfigBuilder) clone() *ConfigBuilder {
	cfg := b.cfg
	timeouts := *b.cfg.Timeouts
	cfg.Timeouts = &timeouts
	return &ConfigBuilder{cfg: cfg}
}
