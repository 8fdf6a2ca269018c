// SPDX-License-Identifier: MPL-2.0

package sdk

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"testing"

	"github.com/invowk/nativepack/internal/issue"
	"github.com/invowk/nativepack/internal/proc"
	"github.com/invowk/nativepack/internal/testutil"
	"github.com/invowk/nativepack/pkg/platform"
)

// fakeSDK lays out an SDK with the given build-tools versions and platform levels.
func fakeSDK(t *testing.T, buildTools []string, platforms []string) string {
	t.Helper()
	return testutil.FakeSDK(t, buildTools, platforms)
}

func fakeJDK(t *testing.T) string {
	t.Helper()
	return testutil.FakeJDK(t)
}

func noEnv(string) string { return "" }

func noPath(string) (string, error) { return "", exec.ErrNotFound }

func TestLocate_NewestVersions(t *testing.T) {
	t.Parallel()

	home := fakeSDK(t, []string{"30.0.3", "34.0.0", "33.0.2", "35.0.0-rc1", "debian"}, []string{"android-30", "android-34", "android-UpsideDownCake"})
	jdk := fakeJDK(t)

	tc, err := Locate(Options{AndroidHome: home, JavaHome: jdk, Getenv: noEnv, LookPath: noPath})
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}

	if tc.BuildToolsVersion != "34.0.0" {
		t.Errorf("BuildToolsVersion = %s, stable releases win over a newer prerelease", tc.BuildToolsVersion)
	}
	if tc.Platform != "android-34" {
		t.Errorf("Platform = %s, want android-34", tc.Platform)
	}
	if want := filepath.Join(home, "platforms", "android-34", "android.jar"); tc.AndroidJar != want {
		t.Errorf("AndroidJar = %s, want %s", tc.AndroidJar, want)
	}
	if want := filepath.Join(home, "build-tools", "34.0.0", platform.Exe("aapt2")); tc.AAPT2.Path != want {
		t.Errorf("AAPT2.Path = %s, want %s", tc.AAPT2.Path, want)
	}
	if tc.Zipalign.Name != "zipalign" {
		t.Errorf("Zipalign.Name = %s", tc.Zipalign.Name)
	}
	if want := filepath.Join(jdk, "bin", platform.Exe("keytool")); tc.Keytool.Path != want {
		t.Errorf("Keytool.Path = %s, want %s", tc.Keytool.Path, want)
	}
	if !tc.Bundletool.IsZero() {
		t.Errorf("Bundletool = %+v, want none", tc.Bundletool)
	}
}

func TestNewestVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		versions   []string
		prerelease bool
		want       string
	}{
		{[]string{"35.0.0-rc1", "34.0.0-rc2"}, true, "35.0.0-rc1"},
		{[]string{"35.0.0-rc1"}, false, ""},
		{[]string{"9.0.0", "34.0.0", "debian", "33.0.10"}, false, "34.0.0"},
	}
	for _, tt := range tests {
		if got := newestVersion(tt.versions, tt.prerelease); got != tt.want {
			t.Errorf("newestVersion(%v, %v) = %q, want %q", tt.versions, tt.prerelease, got, tt.want)
		}
	}
}

func TestFindPlatform(t *testing.T) {
	t.Parallel()

	home := fakeSDK(t, nil, []string{"android-9", "android-34", "android-preview"})
	// A level without android.jar is an incomplete install.
	if err := os.MkdirAll(filepath.Join(home, "platforms", "android-35"), 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		pinned string
		want   string
		err    error
	}{
		{"highest complete level", "", "android-34", nil},
		{"pinned level", "9", "android-9", nil},
		{"pinned directory name", "android-34", "android-34", nil},
		{"pinned without android.jar", "35", "", ErrPlatformNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := findPlatform(home, tt.pinned)
			if !errors.Is(err, tt.err) {
				t.Fatalf("findPlatform(%q) error = %v, want %v", tt.pinned, err, tt.err)
			}
			if got != tt.want {
				t.Errorf("findPlatform(%q) = %q, want %q", tt.pinned, got, tt.want)
			}
		})
	}

	if _, err := findPlatform(t.TempDir(), ""); !errors.Is(err, ErrPlatformNotFound) {
		t.Errorf("findPlatform(empty SDK) error = %v, want ErrPlatformNotFound", err)
	}
}

func TestLocate_Pinned(t *testing.T) {
	t.Parallel()

	home := fakeSDK(t, []string{"33.0.2", "34.0.0"}, []string{"android-33", "android-34"})
	tc, err := Locate(Options{
		AndroidHome: home,
		BuildTools:  "33.0.2",
		Platform:    "33",
		JavaHome:    fakeJDK(t),
		Getenv:      noEnv,
		LookPath:    noPath,
	})
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if tc.BuildToolsVersion != "33.0.2" || tc.Platform != "android-33" {
		t.Errorf("Locate() = build-tools %s, platform %s, want the pinned 33.0.2 and android-33", tc.BuildToolsVersion, tc.Platform)
	}

	_, err = Locate(Options{AndroidHome: home, BuildTools: "29.0.0", Getenv: noEnv, LookPath: noPath})
	if !errors.Is(err, ErrBuildToolsNotFound) {
		t.Errorf("Locate(build-tools 29.0.0) error = %v, want ErrBuildToolsNotFound", err)
	}

	_, err = Locate(Options{AndroidHome: home, Platform: "android-21", Getenv: noEnv, LookPath: noPath})
	if !errors.Is(err, ErrPlatformNotFound) {
		t.Errorf("Locate(android-21) error = %v, want ErrPlatformNotFound", err)
	}
}

func TestLocate_EnvFallback(t *testing.T) {
	t.Parallel()

	home := fakeSDK(t, []string{"34.0.0"}, []string{"android-34"})
	jdk := fakeJDK(t)
	env := map[string]string{EnvAndroidSDKRoot: home, EnvJavaHome: jdk}

	tc, err := Locate(Options{Getenv: func(k string) string { return env[k] }, LookPath: noPath})
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if tc.AndroidHome != home {
		t.Errorf("AndroidHome = %s, want %s", tc.AndroidHome, home)
	}
}

func TestLocate_NoSDK(t *testing.T) {
	t.Parallel()

	_, err := Locate(Options{AndroidHome: filepath.Join(t.TempDir(), "missing"), Getenv: noEnv, LookPath: noPath})
	if !errors.Is(err, ErrSDKNotFound) {
		t.Fatalf("Locate() error = %v, want ErrSDKNotFound", err)
	}

	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("Locate() error = %v, want ActionableError", err)
	}
	if !ae.HasSuggestions() {
		t.Error("a missing SDK should come with suggestions")
	}
}

func TestLocate_MissingBuildTool(t *testing.T) {
	t.Parallel()

	home := fakeSDK(t, []string{"34.0.0"}, []string{"android-34"})
	if err := os.Remove(filepath.Join(home, "build-tools", "34.0.0", platform.Exe("zipalign"))); err != nil {
		t.Fatal(err)
	}

	_, err := Locate(Options{AndroidHome: home, Getenv: noEnv, LookPath: noPath})
	if !errors.Is(err, proc.ErrToolNotFound) {
		t.Fatalf("Locate() error = %v, want ErrToolNotFound", err)
	}
	var nf *proc.ToolNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Locate() error = %v, want ToolNotFoundError", err)
	}
	if nf.Tool != "zipalign" {
		t.Errorf("missing tool = %s, want zipalign", nf.Tool)
	}
}

func TestLocate_Keytool(t *testing.T) {
	t.Parallel()

	home := fakeSDK(t, []string{"34.0.0"}, []string{"android-34"})

	if _, err := Locate(Options{AndroidHome: home, Getenv: noEnv, LookPath: noPath}); !errors.Is(err, proc.ErrToolNotFound) {
		t.Fatalf("Locate() without a JDK error = %v, want ErrToolNotFound", err)
	}

	tc, err := Locate(Options{AndroidHome: home, Getenv: noEnv, LookPath: func(name string) (string, error) {
		if name == "keytool" {
			return "/usr/bin/keytool", nil
		}
		return "", exec.ErrNotFound
	}})
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if tc.Keytool.Path != "/usr/bin/keytool" {
		t.Errorf("Keytool.Path = %s, want the PATH entry", tc.Keytool.Path)
	}
}

func TestLocateKeytool(t *testing.T) {
	t.Parallel()

	jdk := fakeJDK(t)
	tool, err := LocateKeytool(Options{JavaHome: jdk, Getenv: noEnv, LookPath: noPath})
	if err != nil {
		t.Fatalf("LocateKeytool() error = %v", err)
	}
	if tool.Name != "keytool" {
		t.Errorf("Name = %s, want keytool", tool.Name)
	}
	if want := filepath.Join(jdk, "bin", platform.Exe("keytool")); tool.Path != want {
		t.Errorf("Path = %s, want %s", tool.Path, want)
	}

	if _, err := LocateKeytool(Options{Getenv: noEnv, LookPath: noPath}); !errors.Is(err, proc.ErrToolNotFound) {
		t.Errorf("LocateKeytool() without a JDK error = %v, want ErrToolNotFound", err)
	}
}

func TestLocate_Bundletool(t *testing.T) {
	t.Parallel()

	home := fakeSDK(t, []string{"34.0.0"}, []string{"android-34"})
	jdk := fakeJDK(t)

	_, err := Locate(Options{AndroidHome: home, JavaHome: jdk, RequireBundletool: true, Getenv: noEnv, LookPath: noPath})
	if !errors.Is(err, proc.ErrToolNotFound) {
		t.Fatalf("Locate() error = %v, want ErrToolNotFound", err)
	}

	jar := filepath.Join(t.TempDir(), "bundletool-all-1.17.2.jar")
	testutil.MustWriteFile(t, jar, nil, 0o755)
	tc, err := Locate(Options{AndroidHome: home, JavaHome: jdk, Bundletool: jar, RequireBundletool: true, Getenv: noEnv, LookPath: noPath})
	if err != nil {
		t.Fatalf("Locate() with a jar error = %v", err)
	}
	if want := filepath.Join(jdk, "bin", platform.Exe("java")); tc.Bundletool.Path != want {
		t.Errorf("Bundletool.Path = %s, want %s", tc.Bundletool.Path, want)
	}
	if got, want := tc.Bundletool.Command("build-bundle").Args, []string{"-jar", jar, "build-bundle"}; !slices.Equal(got, want) {
		t.Errorf("bundletool argv = %v, want %v", got, want)
	}

	if runtime.GOOS == platform.Windows {
		return
	}
	bin := filepath.Join(t.TempDir(), "bundletool")
	testutil.MustWriteFile(t, bin, nil, 0o755)
	tc, err = Locate(Options{
		AndroidHome: home,
		JavaHome:    jdk,
		Getenv:      func(k string) string { return map[string]string{EnvBundletool: bin}[k] },
		LookPath:    noPath,
	})
	if err != nil {
		t.Fatalf("Locate() with %s error = %v", EnvBundletool, err)
	}
	if tc.Bundletool.Path != bin {
		t.Errorf("Bundletool.Path = %s, want %s", tc.Bundletool.Path, bin)
	}
	if len(tc.Bundletool.Prefix) != 0 {
		t.Errorf("native bundletool takes no prefix, got %v", tc.Bundletool.Prefix)
	}
}
