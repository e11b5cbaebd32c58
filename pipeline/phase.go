// Package pipeline provides phase identity and the bounded parallel executor
// that runs stage logic over grouped keyed input.
//
// Stages are pure functions over fully grouped input; the executor only
// decides how groups are spread over workers. Output ordering is made
// deterministic by collecting results in sorted key order, so a re-run
// produces byte-identical datasets regardless of scheduling.
package pipeline

import "fmt"

// Phase identifies one checkpointed transform step of the pipeline.
type Phase int

const (
	// PhaseItemIndex assigns dense item indices.
	PhaseItemIndex Phase = iota
	// PhaseUserVectors materializes per-user preference vectors.
	PhaseUserVectors
	// PhaseCooccurrence builds the item-item co-occurrence columns.
	PhaseCooccurrence
	// PhasePartialProducts prunes user vectors, joins them against
	// co-occurrence columns and fans out partial score vectors.
	PhasePartialProducts
	// PhaseRecommendations aggregates partial scores into top-N lists.
	PhaseRecommendations

	numPhases
)

// Phases returns all phases in execution order.
func Phases() []Phase {
	out := make([]Phase, 0, numPhases)
	for p := PhaseItemIndex; p < numPhases; p++ {
		out = append(out, p)
	}
	return out
}

// String returns the stable name of the phase, used in manifests and logs.
func (p Phase) String() string {
	switch p {
	case PhaseItemIndex:
		return "itemindex"
	case PhaseUserVectors:
		return "uservectors"
	case PhaseCooccurrence:
		return "cooccurrence"
	case PhasePartialProducts:
		return "partialproducts"
	case PhaseRecommendations:
		return "recommendations"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ParsePhase resolves a phase by its stable name.
func ParsePhase(name string) (Phase, error) {
	for p := PhaseItemIndex; p < numPhases; p++ {
		if p.String() == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("pipeline: unknown phase %q", name)
}
