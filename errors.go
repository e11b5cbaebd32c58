package recgo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/recgo/pipeline"
	"github.com/hupe1980/recgo/recommend"
)

var (
	// ErrMalformedRecord indicates an input line that does not parse as a
	// preference record. Fatal: the run is aborted, never retried.
	ErrMalformedRecord = recommend.ErrMalformedRecord

	// ErrUnknownItemID indicates a preference referencing an item absent
	// from the index table. Fatal input-consistency error.
	ErrUnknownItemID = recommend.ErrUnknownItemID

	// ErrDuplicateCooccurrenceColumn indicates two co-occurrence columns
	// for one item index at the join. Signals a defect in an upstream
	// phase; surfaced immediately, never dropped.
	ErrDuplicateCooccurrenceColumn = recommend.ErrDuplicateCooccurrenceColumn

	// ErrInvalidPhaseRange is returned when the configured start phase
	// comes after the end phase.
	ErrInvalidPhaseRange = errors.New("recgo: start phase after end phase")

	// ErrPhaseNotComplete is returned when a run starts past a phase whose
	// output is not recorded in the manifest.
	ErrPhaseNotComplete = errors.New("recgo: required phase output missing")
)

// PhaseError wraps a stage failure with the phase it occurred in, so a
// failed run is diagnosable by phase and reason.
type PhaseError struct {
	Phase pipeline.Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("phase %s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }
