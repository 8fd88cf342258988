package launch

import (
	"github.com/imamik/hadoop-ec2/internal/cluster"
	"github.com/imamik/hadoop-ec2/internal/platform/ec2"
)

type portRange struct {
	protocol string
	from, to int32
}

var (
	mainPublicPorts = []portRange{
		{"tcp", 22, 22},
		{"tcp", 8080, 8081},
		{"tcp", 18080, 18080},
		{"tcp", 19999, 19999},
		{"tcp", 50030, 50030},
		{"tcp", 50070, 50070},
		{"tcp", 60070, 60070},
		{"tcp", 4040, 4045},
		// HDFS NFS gateway
		{"tcp", 111, 111},
		{"udp", 111, 111},
		{"tcp", 2049, 2049},
		{"udp", 2049, 2049},
		{"tcp", 4242, 4242},
		{"udp", 4242, 4242},
		// YARN resource manager
		{"tcp", 8088, 8088},
	}

	subordinatePublicPorts = []portRange{
		{"tcp", 22, 22},
		{"tcp", 8080, 8081},
		{"tcp", 50060, 50060},
		{"tcp", 50075, 50075},
		{"tcp", 60060, 60060},
		{"tcp", 60075, 60075},
	}
)

// Rules returns the ingress rules of a freshly created role group: all
// traffic from both cluster groups, plus the role's service ports from
// the authorized CIDR.
func Rules(role cluster.Role, mainGroupID, subordinateGroupID, cidr string) []ec2.Rule {
	var rules []ec2.Rule
	for _, source := range []string{mainGroupID, subordinateGroupID} {
		for _, proto := range []string{"tcp", "udp"} {
			rules = append(rules, ec2.Rule{Protocol: proto, FromPort: 0, ToPort: 65535, SourceGroupID: source})
		}
	}

	public := subordinatePublicPorts
	if role == cluster.RoleMain {
		public = mainPublicPorts
	}
	for _, p := range public {
		rules = append(rules, ec2.Rule{Protocol: p.protocol, FromPort: p.from, ToPort: p.to, CIDR: cidr})
	}
	return rules
}
