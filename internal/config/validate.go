package config

import (
	"fmt"
	"net"
	"os"
)

// ValidateIdentity checks the identity file, when one is configured. It
// must exist and be readable by its owner only.
func (c *Config) ValidateIdentity() error {
	if c.IdentityFile == "" {
		return nil
	}

	info, err := os.Stat(c.IdentityFile)
	if err != nil {
		return fmt.Errorf("the identity file %q doesn't exist", c.IdentityFile)
	}

	mode := info.Mode().Perm()
	if mode&0o400 == 0 || mode&0o077 != 0 {
		return fmt.Errorf("the identity file must be accessible only by you, fix this with: chmod 400 %q", c.IdentityFile)
	}
	return nil
}

// ValidateLaunch checks everything a launch needs before the first
// provider call.
func (c *Config) ValidateLaunch() error {
	if c.IdentityFile == "" {
		return fmt.Errorf("an identity file (-i) is required for ssh connections")
	}
	if c.KeyPair == "" {
		return fmt.Errorf("a key pair (-k) is required to launch a cluster")
	}
	if c.Subordinates < 1 {
		return fmt.Errorf("at least 1 subordinate is required, got %d", c.Subordinates)
	}
	if c.SpotPrice < 0 {
		return fmt.Errorf("spot price must not be negative, got %v", c.SpotPrice)
	}
	if _, _, err := net.ParseCIDR(c.AuthorizedAddress); err != nil {
		return fmt.Errorf("invalid authorized address %q: %w", c.AuthorizedAddress, err)
	}
	return c.ValidateIdentity()
}
