// SPDX-License-Identifier: MPL-2.0

package align

import (
	"errors"
	"fmt"
)

var (
	// ErrAlignment is the sentinel error wrapped by Failure.
	ErrAlignment = errors.New("alignment failed")

	// ErrMisaligned is the sentinel error wrapped by MisalignedEntryError.
	ErrMisaligned = errors.New("archive entry is not aligned")

	// ErrInvalidEngine is the sentinel error wrapped by InvalidEngineError.
	ErrInvalidEngine = errors.New("invalid alignment engine")
)

type (
	// Failure is returned when an archive cannot be aligned, e.g. because the
	// input is not a valid zip or zipalign exited non-zero.
	Failure struct {
		Input string
		Err   error
	}

	// MisalignedEntryError reports the first stored entry whose data offset
	// is not a multiple of the required alignment.
	MisalignedEntryError struct {
		Archive   string
		Entry     string
		Offset    int64
		Alignment int
	}

	// InvalidEngineError is returned when an Engine value is not recognized.
	InvalidEngineError struct {
		Value Engine
	}
)

// Error implements the error interface.
func (e *Failure) Error() string {
	return fmt.Sprintf("align %s: %v", e.Input, e.Err)
}

// Unwrap returns both ErrAlignment and the underlying cause, so errors.As
// still reaches a *proc.ExternalToolFailure.
func (e *Failure) Unwrap() []error { return []error{ErrAlignment, e.Err} }

// Error implements the error interface.
func (e *MisalignedEntryError) Error() string {
	return fmt.Sprintf("%s: entry %q data offset %d is not %d-byte aligned", e.Archive, e.Entry, e.Offset, e.Alignment)
}

// Unwrap returns ErrMisaligned so callers can use errors.Is for classification.
func (e *MisalignedEntryError) Unwrap() error { return ErrMisaligned }

// Error implements the error interface.
func (e *InvalidEngineError) Error() string {
	return fmt.Sprintf("invalid alignment engine %q (valid: auto, tool, builtin)", e.Value)
}

// Unwrap returns ErrInvalidEngine so callers can use errors.Is for classification.
func (e *InvalidEngineError) Unwrap() error { return ErrInvalidEngine }
