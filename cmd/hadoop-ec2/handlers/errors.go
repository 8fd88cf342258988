package handlers

import (
	"github.com/imamik/hadoop-ec2/internal/platform/ec2"
	"github.com/imamik/hadoop-ec2/internal/platform/ssh"
	"github.com/imamik/hadoop-ec2/internal/provisioning"
)

// Explain renders err for the terminal, adding a hint for failures the
// user can fix.
func Explain(err error) string {
	switch {
	case err == nil:
		return ""
	case provisioning.IsPrecondition(err):
		return "Cannot continue: " + err.Error()
	case ssh.IsAuthFailure(err):
		return err.Error() + "\nThe identity file must hold the private key of the key pair the cluster was launched with."
	case ec2.IsAuthFailure(err):
		return err.Error() + "\nAWS rejected the request. Check the AWS credentials in use and their EC2 permissions."
	default:
		return err.Error()
	}
}
