// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for nativepack.
//
// This package implements the Cobra command hierarchy: build, align,
// verify-align, debug-key, sdk, config and version. Handlers receive an App,
// which owns configuration loading, the process runner and output streams.
package cmd
