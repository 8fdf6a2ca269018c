// SPDX-License-Identifier: MPL-2.0

package sign

import (
	"errors"
	"fmt"
)

const (
	// KindKeyUnavailable means the keystore is missing, unreadable or cannot
	// be unlocked. A debug key in this state can be regenerated.
	KindKeyUnavailable Kind = iota + 1
	// KindRejected means apksigner refused to sign the archive.
	KindRejected
)

// ErrSigning is the sentinel error wrapped by Failure.
var ErrSigning = errors.New("signing failed")

type (
	// Kind classifies a signing failure.
	Kind int

	// Failure is returned by the signing stage.
	Failure struct {
		Kind    Kind
		Archive string
		Key     string
		Err     error
	}
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case KindKeyUnavailable:
		return "key unavailable"
	case KindRejected:
		return "rejected"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Recoverable reports whether the failure can be fixed by regenerating the
// debug key, as opposed to a rejection of the archive itself.
func (e *Failure) Recoverable() bool {
	return e.Kind == KindKeyUnavailable
}

// Error implements the error interface.
func (e *Failure) Error() string {
	switch e.Kind {
	case KindKeyUnavailable:
		return fmt.Sprintf("signing key %s unavailable: %v", e.Key, e.Err)
	default:
		return fmt.Sprintf("sign %s: %v", e.Archive, e.Err)
	}
}

// Unwrap returns ErrSigning and the underlying cause.
func (e *Failure) Unwrap() []error { return []error{ErrSigning, e.Err} }
