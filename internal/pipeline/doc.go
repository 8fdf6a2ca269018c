// SPDX-License-Identifier: MPL-2.0

// Package pipeline sequences the packaging stages: manifest, resources,
// embedding, alignment, signing and, for bundles, bundle assembly.
//
// A build validates its BuildDescriptor, selects the stage list once from the
// output format, and runs the stages strictly in order under the build
// directory. The first failure aborts the build and is returned as a
// *StageError naming the stage; the final artifact is published at
// {BuildDir}/{name}.apk or .aab only when every stage succeeded.
package pipeline
