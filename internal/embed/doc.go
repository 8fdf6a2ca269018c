// SPDX-License-Identifier: MPL-2.0

// Package embed places per-architecture native libraries into an APK working
// tree under lib/<abi>/ and repackages the tree into an unaligned archive.
//
// Stale ABI directories from earlier builds are pruned as an explicit step
// before copying, so after embedding the tree's lib/ directory holds exactly
// one subdirectory per entry of the LibrarySet.
package embed
