package reach

import (
	"errors"
	"fmt"
)

// Error kinds. A failing step returns a *LoopError that unwraps to one of
// these and to the underlying cause.
var (
	ErrSimulatorUnreachable = errors.New("reach: simulator unreachable")
	ErrControllerFailed     = errors.New("reach: controller computation failed")
	ErrKinematicsFailed     = errors.New("reach: forward kinematics failed")
	ErrSimulationDiverged   = errors.New("reach: simulation diverged")
	ErrDegenerateTarget     = errors.New("reach: target coincides with the normalization offset")
	ErrNoTargets            = errors.New("reach: no targets")
	ErrStepBudget           = errors.New("reach: step budget exhausted")
)

// LoopError records where in the run a failure happened.
type LoopError struct {
	Iteration   int
	TargetIndex int
	Kind        error
	Err         error
}

func (e *LoopError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("iteration %d (target %d): %v", e.Iteration, e.TargetIndex, e.Kind)
	}
	return fmt.Sprintf("iteration %d (target %d): %v: %v", e.Iteration, e.TargetIndex, e.Kind, e.Err)
}

func (e *LoopError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Kind returns the error kind of err, or nil if err did not come from the
// loop.
func Kind(err error) error {
	var le *LoopError
	if errors.As(err, &le) {
		return le.Kind
	}
	return nil
}

func newLoopError(st *LoopState, kind, err error) *LoopError {
	le := &LoopError{Kind: kind, Err: err}
	if st != nil {
		le.Iteration = st.Count
		le.TargetIndex = st.TargetIndex
	}
	return le
}
