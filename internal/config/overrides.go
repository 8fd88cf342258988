package config

import "time"

// Overrides holds command line values. Nil fields leave the loaded
// configuration untouched.
type Overrides struct {
	Region            *string
	Zone              *string
	ImageID           *string
	User              *string
	KeyPair           *string
	IdentityFile      *string
	InstanceType      *string
	MainInstanceType  *string
	Subordinates      *int
	SpotPrice         *float64
	AuthorizedAddress *string
	VPCID             *string
	SubnetID          *string
	DeleteGroups      *bool
	SetupCommand      *string
	WaitTimeout       *time.Duration
}

// Apply copies every set field onto c.
func (o Overrides) Apply(c *Config) {
	set(&c.Region, o.Region)
	set(&c.Zone, o.Zone)
	set(&c.ImageID, o.ImageID)
	set(&c.User, o.User)
	set(&c.KeyPair, o.KeyPair)
	set(&c.IdentityFile, o.IdentityFile)
	set(&c.InstanceType, o.InstanceType)
	set(&c.MainInstanceType, o.MainInstanceType)
	set(&c.Subordinates, o.Subordinates)
	set(&c.SpotPrice, o.SpotPrice)
	set(&c.AuthorizedAddress, o.AuthorizedAddress)
	set(&c.VPCID, o.VPCID)
	set(&c.SubnetID, o.SubnetID)
	set(&c.DeleteGroups, o.DeleteGroups)
	set(&c.SetupCommand, o.SetupCommand)
	if o.WaitTimeout != nil {
		if c.Timeouts == nil {
			c.Timeouts = LoadTimeouts()
		}
		c.Timeouts.Wait = *o.WaitTimeout
	}
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Load reads path, or starts from the defaults when path is empty, and
// applies the overrides for the named cluster.
func Load(path, clusterName string, o Overrides) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	}
	o.Apply(cfg)
	cfg.ClusterName = clusterName
	return cfg, nil
}
