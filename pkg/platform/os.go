// SPDX-License-Identifier: MPL-2.0

package platform

import "runtime"

// OS name constants for runtime.GOOS comparisons.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// ExecutableName returns name with the native binary suffix for goos
// (".exe" on Windows).
func ExecutableName(goos, name string) string {
	if goos == Windows {
		return name + ".exe"
	}
	return name
}

// ScriptName returns name with the wrapper-script suffix the SDK uses on goos
// (".bat" on Windows). apksigner ships as such a wrapper.
func ScriptName(goos, name string) string {
	if goos == Windows {
		return name + ".bat"
	}
	return name
}

// Exe is ExecutableName for the running system.
func Exe(name string) string { return ExecutableName(runtime.GOOS, name) }

// Script is ScriptName for the running system.
func Script(name string) string { return ScriptName(runtime.GOOS, name) }
