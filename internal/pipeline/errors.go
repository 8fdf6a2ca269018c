// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/invowk/nativepack/internal/artifact"
)

var (
	// ErrConfiguration is the sentinel error wrapped by ConfigurationError.
	ErrConfiguration = errors.New("invalid build configuration")
	// ErrMissingArtifact marks a required library or stage output that does not exist.
	ErrMissingArtifact = artifact.ErrMissing
	// ErrIO marks filesystem failures not classified otherwise.
	ErrIO = artifact.ErrIO
)

type (
	// ConfigurationError lists every problem found in a BuildDescriptor.
	ConfigurationError struct {
		Problems []error
	}

	// StageError tags a failure with the stage it occurred in.
	StageError struct {
		Stage Stage
		Err   error
	}

	// MissingArtifactError reports a stage input that a prior stage should have produced.
	MissingArtifactError struct {
		Stage    Stage
		Artifact Artifact
	}

	// IOError is a filesystem failure of the orchestrator itself.
	IOError struct {
		Op   string
		Path string
		Err  error
	}
)

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	msgs := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		msgs = append(msgs, p.Error())
	}
	return "invalid build configuration: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrConfiguration and every problem.
func (e *ConfigurationError) Unwrap() []error {
	return append([]error{ErrConfiguration}, e.Problems...)
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

// Unwrap returns the stage's underlying error.
func (e *StageError) Unwrap() error { return e.Err }

// Error implements the error interface.
func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("%s stage input %s does not exist", e.Stage, e.Artifact)
}

// Unwrap returns ErrMissingArtifact so callers can use errors.Is for classification.
func (e *MissingArtifactError) Unwrap() error { return ErrMissingArtifact }

// Error implements the error interface.
func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns ErrIO and the underlying error.
func (e *IOError) Unwrap() []error { return []error{ErrIO, e.Err} }

// FailedStage returns the stage err is tagged with, if any.
func FailedStage(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
