package commands

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/imamik/hadoop-ec2/cmd/hadoop-ec2/handlers"
	"github.com/imamik/hadoop-ec2/internal/config"
)

// flags holds the values of the flags shared by every action.
type flags struct {
	configPath  string
	yes         bool
	verbosity   int
	metricsFile string

	region            string
	zone              string
	ami               string
	user              string
	keyPair           string
	identityFile      string
	instanceType      string
	mainInstanceType  string
	subordinates      int
	spotPrice         float64
	authorizedAddress string
	vpcID             string
	subnetID          string
	deleteGroups      bool
	setupCommand      string
	waitTimeout       time.Duration
}

func (f *flags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "Path to a YAML configuration file")
	pf.BoolVarP(&f.yes, "yes", "y", false, "Answer yes to every confirmation prompt")
	pf.CountVarP(&f.verbosity, "verbose", "v", "Increase log verbosity (repeatable)")
	pf.StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics of this run to a textfile")

	pf.StringVarP(&f.region, "region", "r", config.DefaultRegion, "EC2 region")
	pf.StringVarP(&f.zone, "zone", "z", config.DefaultZone, "Availability zone to launch instances in")
	pf.StringVarP(&f.ami, "ami", "a", config.DefaultImageID, "Amazon Machine Image ID to use")
	pf.StringVarP(&f.user, "user", "u", config.DefaultUser, "The SSH user you want to connect as")
	pf.StringVarP(&f.keyPair, "key-pair", "k", "", "Key pair to use on instances")
	pf.StringVarP(&f.identityFile, "identity-file", "i", "", "SSH private key file to use for logging into instances")
	pf.StringVarP(&f.instanceType, "instance-type", "t", config.DefaultInstanceType, "Type of instance to launch")
	pf.StringVarP(&f.mainInstanceType, "main-instance-type", "m", "", "Main instance type (leave empty for same as instance-type)")
	pf.IntVarP(&f.subordinates, "subordinates", "s", config.DefaultSubordinates, "Number of subordinates to launch")
	pf.Float64Var(&f.spotPrice, "spot-price", 0, "If specified, launch subordinates as spot instances with the given maximum price (in dollars)")
	pf.StringVar(&f.authorizedAddress, "authorized-address", config.DefaultAuthorizedAddress, "Address to authorize on created security groups")
	pf.StringVar(&f.vpcID, "vpc-id", "", "VPC to launch instances in")
	pf.StringVar(&f.subnetID, "subnet-id", "", "VPC subnet to launch instances in")
	pf.BoolVar(&f.deleteGroups, "delete-groups", false, "When destroying a cluster, delete the security groups that were created")
	pf.StringVar(&f.setupCommand, "setup-command", "", "Command run on the main once the cluster is reachable")
	pf.DurationVar(&f.waitTimeout, "wait-timeout", 0, "Give up waiting for the cluster after this long (0 waits forever)")
}

// overrides returns the flags explicitly set on the command line.
func (f *flags) overrides(fs *pflag.FlagSet) config.Overrides {
	var o config.Overrides
	bind(fs, "region", &o.Region, f.region)
	bind(fs, "zone", &o.Zone, f.zone)
	bind(fs, "ami", &o.ImageID, f.ami)
	bind(fs, "user", &o.User, f.user)
	bind(fs, "key-pair", &o.KeyPair, f.keyPair)
	bind(fs, "identity-file", &o.IdentityFile, f.identityFile)
	bind(fs, "instance-type", &o.InstanceType, f.instanceType)
	bind(fs, "main-instance-type", &o.MainInstanceType, f.mainInstanceType)
	bind(fs, "subordinates", &o.Subordinates, f.subordinates)
	bind(fs, "spot-price", &o.SpotPrice, f.spotPrice)
	bind(fs, "authorized-address", &o.AuthorizedAddress, f.authorizedAddress)
	bind(fs, "vpc-id", &o.VPCID, f.vpcID)
	bind(fs, "subnet-id", &o.SubnetID, f.subnetID)
	bind(fs, "delete-groups", &o.DeleteGroups, f.deleteGroups)
	bind(fs, "setup-command", &o.SetupCommand, f.setupCommand)
	bind(fs, "wait-timeout", &o.WaitTimeout, f.waitTimeout)
	return o
}

func bind[T any](fs *pflag.FlagSet, name string, dst **T, value T) {
	if fs.Changed(name) {
		*dst = &value
	}
}

// request builds the handler request for the cluster named in args.
func (f *flags) request(cmd *cobra.Command, args []string) handlers.Request {
	return handlers.Request{
		ClusterName: args[0],
		ConfigPath:  f.configPath,
		Overrides:   f.overrides(cmd.Flags()),
		Yes:         f.yes,
		Verbosity:   f.verbosity,
		MetricsFile: f.metricsFile,
	}
}
