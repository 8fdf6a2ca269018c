// SPDX-License-Identifier: MPL-2.0

// Package proc runs the external SDK tools (aapt2, zipalign, apksigner,
// keytool, bundletool) that the packaging stages drive.
//
// A command is described by an immutable CommandSpec value and executed by a
// Runner. The Runner captures combined stdout/stderr and converts a non-zero
// exit status into an *ExternalToolFailure carrying the command line and the
// captured output verbatim. Runners never retry; retry policy belongs to the
// caller of the whole build.
package proc
