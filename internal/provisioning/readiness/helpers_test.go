package readiness_test

import (
	"github.com/imamik/hadoop-ec2/internal/config"
	"github.com/imamik/hadoop-ec2/internal/platform/ec2"
)

func runSpec(n int) ec2.RunSpec {
	return ec2.RunSpec{
		ImageID:      config.DefaultImageID,
		InstanceType: "m4.large",
		KeyName:      "test-key",
		Zone:         config.DefaultZone,
		Count:        n,
	}
}
