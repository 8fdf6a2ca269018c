// SPDX-License-Identifier: MPL-2.0

package embed

import (
	"fmt"
	"slices"

	"github.com/invowk/nativepack/internal/artifact"
	"github.com/invowk/nativepack/pkg/fspath"
	"github.com/invowk/nativepack/pkg/types"
)

type (
	// LibrarySet maps each target ABI to the path of its compiled shared library.
	LibrarySet map[ABI]types.FilesystemPath

	// MissingLibraryError reports a target ABI with no usable library.
	MissingLibraryError struct {
		ABI  ABI
		Path types.FilesystemPath
	}
)

// ABIs returns the set's ABIs sorted.
func (s LibrarySet) ABIs() []ABI {
	abis := make([]ABI, 0, len(s))
	for abi := range s {
		abis = append(abis, abi)
	}
	slices.Sort(abis)
	return abis
}

// Check returns a *MissingLibraryError for the first target, in target
// order, that has no entry in the set.
func (s LibrarySet) Check(targets []ABI) error {
	for _, abi := range targets {
		if p, ok := s[abi]; !ok || p == "" {
			return &MissingLibraryError{ABI: abi}
		}
	}
	return nil
}

// Abs returns a copy of the set with every path made absolute.
func (s LibrarySet) Abs() (LibrarySet, error) {
	out := make(LibrarySet, len(s))
	for abi, p := range s {
		abs, err := fspath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("library for %s: %w", abi, err)
		}
		out[abi] = abs
	}
	return out, nil
}

// Error implements the error interface.
func (e *MissingLibraryError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("missing native library for architecture %q: %s does not exist", e.ABI, e.Path)
	}
	return fmt.Sprintf("missing native library for architecture %q", e.ABI)
}

// Unwrap returns artifact.ErrMissing so callers can use errors.Is for classification.
func (e *MissingLibraryError) Unwrap() error { return artifact.ErrMissing }
