package config

import (
	"fmt"
	"slices"

	ec2info "github.com/LeanerCloud/ec2-instances-info"
)

// Catalog maps instance types to the virtualization types their AMIs may use.
type Catalog struct {
	virtualization map[string][]string
}

// LoadCatalog builds a catalog from the embedded EC2 instance data.
func LoadCatalog() (*Catalog, error) {
	data, err := ec2info.Data()
	if err != nil {
		return nil, fmt.Errorf("failed to load instance type data: %w", err)
	}

	m := make(map[string][]string, len(*data))
	for _, it := range *data {
		m[it.InstanceType] = it.LinuxVirtualizationTypes
	}
	return NewCatalog(m), nil
}

// NewCatalog creates a catalog from an explicit mapping.
func NewCatalog(virtualization map[string][]string) *Catalog {
	return &Catalog{virtualization: virtualization}
}

// Virtualization returns the virtualization types of an instance type.
func (c *Catalog) Virtualization(instanceType string) ([]string, bool) {
	v, ok := c.virtualization[instanceType]
	return v, ok
}

// CheckCompatible verifies that the main and subordinate types can boot
// the same image. Unknown types produce warnings rather than errors; an
// error is returned only when both types resolve and share no
// virtualization type.
func (c *Catalog) CheckCompatible(mainType, subordinateType string) (warnings []string, err error) {
	mainVirt, mainKnown := c.Virtualization(mainType)
	if !mainKnown {
		warnings = append(warnings, fmt.Sprintf("unrecognized EC2 instance type for main-instance-type: %s", mainType))
	}
	subVirt, subKnown := c.Virtualization(subordinateType)
	if !subKnown {
		warnings = append(warnings, fmt.Sprintf("unrecognized EC2 instance type for instance-type: %s", subordinateType))
	}
	if !mainKnown || !subKnown || len(mainVirt) == 0 || len(subVirt) == 0 {
		return warnings, nil
	}

	for _, v := range mainVirt {
		if slices.Contains(subVirt, v) {
			return warnings, nil
		}
	}
	return warnings, fmt.Errorf("main and subordinates with different AMI virtualization types are not supported (main %s: %v, subordinate %s: %v)",
		mainType, mainVirt, subordinateType, subVirt)
}
