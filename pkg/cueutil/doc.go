// SPDX-License-Identifier: MPL-2.0

// Package cueutil holds the CUE parsing flow shared by the project file loader
// and the user configuration loader:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify it with a schema definition
//  3. Validate and decode into a Go value
//
// Errors carry the offending file and a JSON-style field path, e.g.
//
//	nativepack.cue: android.version_code: conflicting values 0 and >0
package cueutil
