// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"path/filepath"
	"testing"

	"github.com/invowk/nativepack/pkg/platform"
)

// FakeSDK lays out an Android SDK under a new temp directory with empty
// aapt2, zipalign and apksigner for each build-tools version and an
// android.jar for each platform directory name (e.g. "android-34").
// It returns the SDK root.
func FakeSDK(t testing.TB, buildTools, platforms []string) string {
	t.Helper()

	home := t.TempDir()
	for _, v := range buildTools {
		dir := filepath.Join(home, "build-tools", v)
		MustWriteFile(t, filepath.Join(dir, platform.Exe("aapt2")), nil, 0o755)
		MustWriteFile(t, filepath.Join(dir, platform.Exe("zipalign")), nil, 0o755)
		MustWriteFile(t, filepath.Join(dir, platform.Script("apksigner")), nil, 0o755)
	}
	for _, p := range platforms {
		MustWriteFile(t, filepath.Join(home, "platforms", p, "android.jar"), nil, 0o644)
	}
	return home
}

// FakeJDK creates a JAVA_HOME with empty keytool and java executables.
func FakeJDK(t testing.TB) string {
	t.Helper()

	jdk := t.TempDir()
	MustWriteFile(t, filepath.Join(jdk, "bin", platform.Exe("keytool")), nil, 0o755)
	MustWriteFile(t, filepath.Join(jdk, "bin", platform.Exe("java")), nil, 0o755)
	return jdk
}

// FakeLibrary writes a stand-in shared library at path and returns path.
func FakeLibrary(t testing.TB, path string) string {
	t.Helper()
	MustWriteFile(t, path, []byte("\x7fELF"+filepath.Base(path)), 0o755)
	return path
}
