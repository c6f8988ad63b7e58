package txn

import "fmt"

// StateError an operation was invoked in a state that does not allow it
type StateError struct {
	op    string
	state State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s a %s transaction", e.op, e.state)
}

func NewStateError(op string, state State) *StateError {
	return &StateError{op: op, state: state}
}

// CommitError a commit failed after writes may have started
type CommitError struct {
	phase string
	err   error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit failed during %s: %v", e.phase, e.err)
}

func (e *CommitError) Unwrap() error {
	return e.err
}

// Phase names the commit step that failed: "validate", "backup write",
// "backup verify", "table write" or "verify".
func (e *CommitError) Phase() string {
	return e.phase
}

func NewCommitError(phase string, err error) *CommitError {
	return &CommitError{phase: phase, err: err}
}
