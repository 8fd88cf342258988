package launch

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/imamik/hadoop-ec2/internal/cluster"
	"github.com/imamik/hadoop-ec2/internal/platform/ec2"
)

func TestRules(t *testing.T) {
	t.Parallel()

	fromGroups := []ec2.Rule{
		{Protocol: "tcp", FromPort: 0, ToPort: 65535, SourceGroupID: "sg-main"},
		{Protocol: "udp", FromPort: 0, ToPort: 65535, SourceGroupID: "sg-main"},
		{Protocol: "tcp", FromPort: 0, ToPort: 65535, SourceGroupID: "sg-sub"},
		{Protocol: "udp", FromPort: 0, ToPort: 65535, SourceGroupID: "sg-sub"},
	}
	public := func(proto string, from, to int32) ec2.Rule {
		return ec2.Rule{Protocol: proto, FromPort: from, ToPort: to, CIDR: "10.1.0.0/16"}
	}

	tests := []struct {
		role cluster.Role
		want []ec2.Rule
	}{
		{
			role: cluster.RoleMain,
			want: append(append([]ec2.Rule{}, fromGroups...),
				public("tcp", 22, 22),
				public("tcp", 8080, 8081),
				public("tcp", 18080, 18080),
				public("tcp", 19999, 19999),
				public("tcp", 50030, 50030),
				public("tcp", 50070, 50070),
				public("tcp", 60070, 60070),
				public("tcp", 4040, 4045),
				public("tcp", 111, 111),
				public("udp", 111, 111),
				public("tcp", 2049, 2049),
				public("udp", 2049, 2049),
				public("tcp", 4242, 4242),
				public("udp", 4242, 4242),
				public("tcp", 8088, 8088),
			),
		},
		{
			role: cluster.RoleSubordinate,
			want: append(append([]ec2.Rule{}, fromGroups...),
				public("tcp", 22, 22),
				public("tcp", 8080, 8081),
				public("tcp", 50060, 50060),
				public("tcp", 50075, 50075),
				public("tcp", 60060, 60060),
				public("tcp", 60075, 60075),
			),
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			t.Parallel()
			got := Rules(tt.role, "sg-main", "sg-sub", "10.1.0.0/16")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Rules(%s) mismatch (-want +got):\n%s", tt.role, diff)
			}
		})
	}
}
