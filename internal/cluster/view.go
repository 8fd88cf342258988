package cluster

import (
	"github.com/imamik/hadoop-ec2/internal/platform/ec2"
	"github.com/imamik/hadoop-ec2/internal/util/naming"
)

// Role is the part an instance plays in the cluster.
type Role string

const (
	RoleMain        Role = naming.MainRole
	RoleSubordinate Role = naming.SubordinateRole
)

// Roles lists every role, main first.
var Roles = []Role{RoleMain, RoleSubordinate}

// Group returns the security group that holds the role's instances.
func (r Role) Group(clusterName string) string {
	if r == RoleMain {
		return naming.MainGroup(clusterName)
	}
	return naming.SubordinateGroup(clusterName)
}

// View is a snapshot of a cluster's live instances by role, each list
// ordered by launch time.
type View struct {
	Name         string
	Main         []ec2.Instance
	Subordinates []ec2.Instance
}

// Empty reports whether the cluster has no live instance at all.
func (v *View) Empty() bool {
	return len(v.Main) == 0 && len(v.Subordinates) == 0
}

// Size returns the number of live instances.
func (v *View) Size() int {
	return len(v.Main) + len(v.Subordinates)
}

// First returns the main instance. It must only be called on views
// resolved with RequireMain.
func (v *View) First() ec2.Instance {
	return v.Main[0]
}

// Role returns the instances holding role.
func (v *View) Role(r Role) []ec2.Instance {
	if r == RoleMain {
		return v.Main
	}
	return v.Subordinates
}

// All returns every instance, mains first.
func (v *View) All() []ec2.Instance {
	all := make([]ec2.Instance, 0, v.Size())
	all = append(all, v.Main...)
	return append(all, v.Subordinates...)
}

// IDs returns the ids of every instance, mains first.
func (v *View) IDs() []string {
	return IDs(v.All())
}

// IDs extracts instance ids, preserving order.
func IDs(instances []ec2.Instance) []string {
	ids := make([]string, len(instances))
	for i, inst := range instances {
		ids[i] = inst.ID
	}
	return ids
}
