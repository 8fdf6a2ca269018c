// SPDX-License-Identifier: MPL-2.0

package proc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/invowk/nativepack/pkg/types"
)

var (
	// ErrExternalTool is the sentinel error wrapped by ExternalToolFailure.
	ErrExternalTool = errors.New("external tool failed")

	// ErrToolNotFound is the sentinel error wrapped by ToolNotFoundError.
	ErrToolNotFound = errors.New("external tool not found")
)

type (
	// ExternalToolFailure is returned when a tool exits with a non-zero status.
	// Output holds the combined stdout/stderr exactly as the tool wrote it.
	ExternalToolFailure struct {
		Tool        string
		CommandLine string
		Args        []string
		Output      []byte
		ExitCode    types.ExitCode
	}

	// ToolNotFoundError is returned when the tool executable cannot be started
	// because it does not exist.
	ToolNotFoundError struct {
		Tool string
		Path string
		Err  error
	}
)

// Error implements the error interface.
func (e *ExternalToolFailure) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s exited with status %s\ncommand: %s", e.Tool, e.ExitCode, e.CommandLine)
	if out := strings.TrimRight(string(e.Output), "\n"); out != "" {
		sb.WriteString("\noutput:\n")
		sb.WriteString(out)
	}
	return sb.String()
}

// Unwrap returns ErrExternalTool so callers can use errors.Is for classification.
func (e *ExternalToolFailure) Unwrap() error { return ErrExternalTool }

// Error implements the error interface.
func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("%s not found at %q: %v", e.Tool, e.Path, e.Err)
}

// Unwrap returns ErrToolNotFound so callers can use errors.Is for classification.
func (e *ToolNotFoundError) Unwrap() error { return ErrToolNotFound }
