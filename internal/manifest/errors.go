// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"fmt"

	"github.com/invowk/nativepack/internal/artifact"
)

// ErrManifest is the sentinel error wrapped by ParseError and SerializeError.
var ErrManifest = errors.New("manifest error")

type (
	// ParseError is returned when manifest bytes are not a well-formed
	// <manifest> document.
	ParseError struct {
		Path string
		Err  error
	}

	// SerializeError is returned when a Manifest cannot be encoded.
	SerializeError struct {
		Err error
	}

	// IOError is returned when reading or writing a manifest file fails.
	IOError struct {
		Op   string
		Path string
		Err  error
	}
)

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parse manifest: %v", e.Err)
	}
	return fmt.Sprintf("parse manifest %s: %v", e.Path, e.Err)
}

// Unwrap returns ErrManifest and the decoder error.
func (e *ParseError) Unwrap() []error { return []error{ErrManifest, e.Err} }

// Error implements the error interface.
func (e *SerializeError) Error() string {
	return fmt.Sprintf("serialize manifest: %v", e.Err)
}

// Unwrap returns ErrManifest and the encoder error.
func (e *SerializeError) Unwrap() []error { return []error{ErrManifest, e.Err} }

// Error implements the error interface.
func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns artifact.ErrIO and the underlying filesystem error.
func (e *IOError) Unwrap() []error { return []error{artifact.ErrIO, e.Err} }
