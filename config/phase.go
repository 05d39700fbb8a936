package config

// Phase is the lifecycle stage of a configuration tree. Phases only move
// forward.
type Phase int

const (
	PhaseCreated Phase = iota
	PhaseAccumulating
	PhaseChildrenMerged
	PhaseFinalized
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseAccumulating:
		return "accumulating"
	case PhaseChildrenMerged:
		return "children_merged"
	case PhaseFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

func (p Phase) in(phases ...Phase) bool {
	for _, candidate := range phases {
		if p == candidate {
			return true
		}
	}
	return false
}
