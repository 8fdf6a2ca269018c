// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"errors"
	"fmt"
)

const (
	// StateNew is an assembly with no module extracted yet.
	StateNew State = iota
	// StateExtracted means a signed archive has been unpacked into a tree.
	StateExtracted
	// StateRezipped means the latest tree has been packed into a module.
	StateRezipped
	// StateAssembled is terminal: bundletool produced the bundle.
	StateAssembled
)

// ErrInvalidTransition is the sentinel error wrapped by TransitionError.
var ErrInvalidTransition = errors.New("invalid bundle assembly transition")

type (
	// State is the position of an Assembly in its lifecycle.
	State int

	// TransitionError reports a step attempted from the wrong state.
	TransitionError struct {
		From State
		To   State
	}
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateExtracted:
		return "extracted"
	case StateRezipped:
		return "rezipped"
	case StateAssembled:
		return "assembled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateAssembled
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid bundle assembly transition %s -> %s", e.From, e.To)
}

// Unwrap returns ErrInvalidTransition so callers can use errors.Is for classification.
func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// isAllowedTransition encodes Extracted -> Rezipped -> Assembled, where a
// multi-module bundle loops Rezipped -> Extracted once per extra module.
func isAllowedTransition(from, to State) bool {
	switch from {
	case StateNew:
		return to == StateExtracted
	case StateExtracted:
		return to == StateRezipped
	case StateRezipped:
		return to == StateExtracted || to == StateAssembled
	default:
		return false
	}
}
