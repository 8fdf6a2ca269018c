// SPDX-License-Identifier: MPL-2.0

// Package config handles user configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/nativepack/config.cue (or the XDG equivalent on
// Linux, ~/Library/Application Support/nativepack/config.cue on macOS,
// %APPDATA%\nativepack\config.cue on Windows), then from ./config.cue. NATIVEPACK_*
// environment variables override file values (NATIVEPACK_SDK_ANDROID_HOME sets
// sdk.android_home). The settings cover SDK discovery, debug signing, pipeline tuning and
// UI preferences.
//
// Files are validated against an embedded CUE schema (config_schema.cue) before they are
// merged into Viper.
package config
