// SPDX-License-Identifier: MPL-2.0

// Package resource drives aapt2: compiling each raw resource file into an
// intermediate .flat file, then linking the compiled set with the manifest
// and the platform android.jar into one archive.
package resource
