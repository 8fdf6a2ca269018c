// SPDX-License-Identifier: MPL-2.0

// Package align rewrites an archive so entry data starts on a fixed byte
// boundary, which the Android installer needs to memory-map stored entries
// in place.
//
// Two engines are available. ToolAligner drives the SDK zipalign binary.
// BuiltinAligner performs the same structural rewrite in-process: entries are
// copied raw, an alignment extra field (ID 0xD935) pads each local header so
// the data offset lands on the boundary, and the central directory is
// recomputed by the zip writer. Both replace their output atomically, so the
// input and output path may be the same file.
package align
