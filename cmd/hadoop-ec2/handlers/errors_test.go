package handlers

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/imamik/hadoop-ec2/internal/platform/ssh"
	"github.com/imamik/hadoop-ec2/internal/provisioning"
	testutil "github.com/imamik/hadoop-ec2/internal/testing"
)

func TestExplain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		prefix string
		hint   string
	}{
		{name: "nil", err: nil},
		{
			name:   "precondition",
			err:    provisioning.Preconditionf("no key pair given"),
			prefix: "Cannot continue: no key pair given",
		},
		{
			name:   "ssh auth after retries",
			err:    fmt.Errorf("setup: %w", &ssh.AuthError{Host: "ec2-1", Err: errors.New("no supported methods remain")}),
			prefix: "setup: failed to SSH to remote host ec2-1",
			hint:   "private key of the key pair",
		},
		{
			name:   "ssh transport auth",
			err:    &ssh.TransportError{Host: "ec2-1", Auth: true, Err: errors.New("unable to authenticate")},
			prefix: "ssh authentication to ec2-1 failed",
			hint:   "private key of the key pair",
		},
		{
			name:   "aws credentials",
			err:    fmt.Errorf("failed to list instances: %w", testutil.APIError("AuthFailure", "bad token")),
			prefix: "failed to list instances",
			hint:   "Check the AWS credentials",
		},
		{
			name:   "other",
			err:    errors.New("boom"),
			prefix: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Explain(tt.err)
			if tt.err == nil {
				assert.Empty(t, got)
				return
			}
			assert.True(t, strings.HasPrefix(got, tt.prefix), got)
			if tt.hint == "" {
				assert.NotContains(t, got, "\n")
				return
			}
			assert.Contains(t, got, tt.hint)
		})
	}
}
