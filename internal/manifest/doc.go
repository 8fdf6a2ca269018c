// SPDX-License-Identifier: MPL-2.0

// Package manifest builds and serializes AndroidManifest.xml.
//
// A manifest is either generated from build metadata or loaded from a user
// override file. In both cases the version code, version name and native
// library reference come from the build, so the build stays the single source
// of truth for versioning. Elements and attributes of an override that the
// typed model does not cover are carried through unchanged.
package manifest
