// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and remediation
// hints. The issue catalog holds longer Markdown guidance per failure class (missing SDK,
// missing native library, keystore problems and so on), rendered with glamour when the
// CLI runs with --verbose.
package issue
