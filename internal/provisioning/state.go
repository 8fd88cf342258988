package provisioning

import (
	"github.com/imamik/hadoop-ec2/internal/cluster"
)

// State holds the shared results of the launch phases.
// It is progressively populated as each phase completes and is passed
// to subsequent phases that need earlier results. Only identifiers are
// kept; instances are always re-queried before they are used.
type State struct {
	// Existing is the cluster as resolved before any mutation.
	Existing *cluster.View

	// Security group ids by role (populated by the security group phase)
	GroupIDs map[cluster.Role]string

	ImageID string

	// Instance ids (populated by the allocation phases)
	SubordinateIDs []string
	MainIDs        []string
}

// NewState creates an empty provisioning state.
func NewState() *State {
	return &State{
		GroupIDs: make(map[cluster.Role]string),
	}
}

// InstanceIDs returns every allocated instance id, mains first.
func (s *State) InstanceIDs() []string {
	ids := make([]string, 0, len(s.MainIDs)+len(s.SubordinateIDs))
	ids = append(ids, s.MainIDs...)
	return append(ids, s.SubordinateIDs...)
}
