package state

import "fmt"

// PreconditionError reports an action applied to a state where its
// grounded precondition set does not hold. The call fails; the caller
// may recover by choosing a different action.
type PreconditionError struct {
	Action  string
	Missing string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition unsatisfied for %s: missing %s", e.Action, e.Missing)
}

// InconsistentStateError reports a fact that does not conform to any
// declared signature. It marks a defect in the logic context or its
// caller and is never silently recovered.
type InconsistentStateError struct {
	Fact   string
	Reason string
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("inconsistent state: fact %s: %s", e.Fact, e.Reason)
}
