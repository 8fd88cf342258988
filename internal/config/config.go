package config

// Defaults applied when neither the config file nor a flag sets a value.
const (
	DefaultRegion            = "us-west-2"
	DefaultZone              = "us-west-2c"
	DefaultImageID           = "ami-08e58d39fdf619dff"
	DefaultUser              = "ubuntu"
	DefaultInstanceType      = "m4.10xlarge"
	DefaultAuthorizedAddress = "0.0.0.0/0"
	DefaultSubordinates      = 1
)

// Config holds everything an action needs to talk to EC2 and the nodes.
type Config struct {
	// ClusterName namespaces every provider resource. Set from the command line.
	ClusterName string `yaml:"-"`

	Region string `yaml:"region"`
	Zone   string `yaml:"zone"`

	// ImageID is the AMI all instances boot from.
	ImageID string `yaml:"ami"`

	// User is the remote login user on every node.
	User string `yaml:"user"`

	KeyPair      string `yaml:"key_pair"`
	IdentityFile string `yaml:"identity_file"`

	InstanceType string `yaml:"instance_type"`
	// MainInstanceType falls back to InstanceType when empty.
	MainInstanceType string `yaml:"main_instance_type"`

	Subordinates int `yaml:"subordinates"`

	// SpotPrice > 0 launches subordinates as spot instances with this ceiling (USD).
	SpotPrice float64 `yaml:"spot_price"`

	AuthorizedAddress string `yaml:"authorized_address"`
	VPCID             string `yaml:"vpc_id"`
	SubnetID          string `yaml:"subnet_id"`

	// DeleteGroups removes both security groups on destroy.
	DeleteGroups bool `yaml:"delete_groups"`

	// SetupCommand runs on the main once the cluster is reachable. Empty skips it.
	SetupCommand string `yaml:"setup_command"`

	AWS AWSConfig `yaml:"aws"`

	Timeouts *Timeouts `yaml:"-"`
}

// AWSConfig carries optional static credentials. Empty values defer to
// the default AWS credential chain.
type AWSConfig struct {
	Profile         string `yaml:"profile"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.Zone == "" {
		c.Zone = DefaultZone
	}
	if c.ImageID == "" {
		c.ImageID = DefaultImageID
	}
	if c.User == "" {
		c.User = DefaultUser
	}
	if c.InstanceType == "" {
		c.InstanceType = DefaultInstanceType
	}
	if c.AuthorizedAddress == "" {
		c.AuthorizedAddress = DefaultAuthorizedAddress
	}
	if c.Subordinates == 0 {
		c.Subordinates = DefaultSubordinates
	}
	if c.Timeouts == nil {
		c.Timeouts = LoadTimeouts()
	}
}

// MainType returns the instance type used for the main node.
func (c *Config) MainType() string {
	if c.MainInstanceType == "" {
		return c.InstanceType
	}
	return c.MainInstanceType
}

// UseSpot reports whether subordinates are requested on the spot market.
func (c *Config) UseSpot() bool {
	return c.SpotPrice > 0
}
