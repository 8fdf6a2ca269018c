// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"strconv"
)

// ExitCodeSignaled is reported for a tool process that was terminated by a
// signal (including context cancellation) instead of exiting on its own.
const ExitCodeSignaled ExitCode = -1

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode represents the exit status of an external tool process.
	// Exit codes are in the range 0-255 on POSIX systems, plus ExitCodeSignaled.
	// The zero value (0) means success.
	ExitCode int

	// InvalidExitCodeError is returned when an ExitCode is outside the
	// valid range (-1..255).
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

// Error implements the error interface.
func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("invalid exit code %d (must be in range 0-255, or -1 for signaled)", e.Value)
}

// Unwrap returns ErrInvalidExitCode so callers can use errors.Is for programmatic detection.
func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// Validate returns an error if the ExitCode is outside the valid range.
func (c ExitCode) Validate() error {
	if c < ExitCodeSignaled || c > 255 {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

// IsSuccess returns true if the exit code indicates successful execution.
func (c ExitCode) IsSuccess() bool { return c == 0 }

// IsSignaled returns true if the process did not exit on its own.
func (c ExitCode) IsSignaled() bool { return c == ExitCodeSignaled }

// String returns the decimal string representation of the ExitCode.
func (c ExitCode) String() string {
	if c.IsSignaled() {
		return "signaled"
	}
	return strconv.Itoa(int(c))
}
