// SPDX-License-Identifier: MPL-2.0

package embed

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	// ABIArm64 is the 64-bit ARM ABI.
	ABIArm64 ABI = "arm64-v8a"
	// ABIArmV7 is the 32-bit ARM ABI.
	ABIArmV7 ABI = "armeabi-v7a"
	// ABIX86 is the 32-bit x86 ABI.
	ABIX86 ABI = "x86"
	// ABIX8664 is the 64-bit x86 ABI.
	ABIX8664 ABI = "x86_64"
)

// ErrInvalidABI is the sentinel error wrapped by InvalidABIError.
var ErrInvalidABI = errors.New("invalid ABI")

var (
	canonicalABIs = []ABI{ABIArm64, ABIArmV7, ABIX86, ABIX8664}

	abiAliases = map[string]ABI{
		"arm64":   ABIArm64,
		"aarch64": ABIArm64,
		"arm":     ABIArmV7,
		"armv7":   ABIArmV7,
		"x64":     ABIX8664,
		"amd64":   ABIX8664,
		"386":     ABIX86,
		"i686":    ABIX86,
	}
)

type (
	// ABI names a CPU target. It doubles as the directory name under lib/.
	ABI string

	// InvalidABIError is returned when an ABI value cannot be used as a
	// library directory name or, for ParseABI, is not a known Android ABI.
	InvalidABIError struct {
		Value  ABI
		Reason string
	}
)

// CanonicalABIs returns the Android ABI identifiers in a stable order.
func CanonicalABIs() []ABI {
	return slices.Clone(canonicalABIs)
}

// ParseABI maps s to a canonical Android ABI, accepting common aliases such as
// "arm64" and "amd64".
func ParseABI(s string) (ABI, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if abi, ok := abiAliases[key]; ok {
		return abi, nil
	}
	if abi := ABI(key); abi.IsCanonical() {
		return abi, nil
	}
	return "", &InvalidABIError{Value: ABI(s), Reason: "unknown Android ABI"}
}

// IsCanonical reports whether a is one of the Android ABI identifiers.
func (a ABI) IsCanonical() bool {
	return slices.Contains(canonicalABIs, a)
}

// String returns the string representation of the ABI.
func (a ABI) String() string { return string(a) }

// Validate checks that a is usable as a single path element.
func (a ABI) Validate() error {
	s := string(a)
	switch {
	case s == "":
		return &InvalidABIError{Value: a, Reason: "empty"}
	case s == "." || s == "..", strings.ContainsAny(s, `/\`):
		return &InvalidABIError{Value: a, Reason: "must be a single directory name"}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidABIError) Error() string {
	return fmt.Sprintf("invalid ABI %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidABI so callers can use errors.Is for classification.
func (e *InvalidABIError) Unwrap() error { return ErrInvalidABI }
