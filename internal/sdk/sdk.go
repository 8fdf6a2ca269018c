// SPDX-License-Identifier: MPL-2.0

package sdk

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/invowk/nativepack/internal/issue"
	"github.com/invowk/nativepack/internal/proc"
	"github.com/invowk/nativepack/pkg/platform"
)

const (
	// EnvAndroidHome is the preferred SDK root variable.
	EnvAndroidHome = "ANDROID_HOME"
	// EnvAndroidSDKRoot is the legacy SDK root variable.
	EnvAndroidSDKRoot = "ANDROID_SDK_ROOT"
	// EnvJavaHome points at the JDK providing keytool.
	EnvJavaHome = "JAVA_HOME"
	// EnvBundletool points at a bundletool binary or jar.
	EnvBundletool = "BUNDLETOOL_PATH"

	platformPrefix = "android-"
)

var (
	// ErrSDKNotFound is returned when no Android SDK root can be resolved.
	ErrSDKNotFound = errors.New("android SDK not found")
	// ErrBuildToolsNotFound is returned when no usable build-tools version exists.
	ErrBuildToolsNotFound = errors.New("android build-tools not found")
	// ErrPlatformNotFound is returned when no platform android.jar exists.
	ErrPlatformNotFound = errors.New("android platform not found")
)

type (
	// Options controls Locate. Empty fields fall back to the environment and
	// then to the newest installed version.
	Options struct {
		AndroidHome string
		// BuildTools pins a build-tools version such as "34.0.0".
		BuildTools string
		// Platform pins a platform as "android-34" or "34".
		Platform   string
		Bundletool string
		JavaHome   string
		// RequireBundletool makes a missing bundletool an error.
		RequireBundletool bool

		// Getenv and LookPath default to os.Getenv and exec.LookPath.
		Getenv   func(string) string
		LookPath func(string) (string, error)
	}

	// Toolchain is the set of resolved tools.
	Toolchain struct {
		AndroidHome       string
		BuildToolsVersion string
		Platform          string
		AndroidJar        string

		AAPT2      proc.Tool
		Zipalign   proc.Tool
		APKSigner  proc.Tool
		Keytool    proc.Tool
		Bundletool proc.Tool
	}
)

// Locate resolves a Toolchain from opts and the environment.
func Locate(opts Options) (*Toolchain, error) {
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	if opts.LookPath == nil {
		opts.LookPath = exec.LookPath
	}

	home, err := androidHome(opts)
	if err != nil {
		return nil, err
	}
	tc := &Toolchain{AndroidHome: home}

	if tc.BuildToolsVersion, err = buildToolsVersion(home, opts.BuildTools); err != nil {
		return nil, err
	}
	btDir := filepath.Join(home, "build-tools", tc.BuildToolsVersion)
	for _, t := range []struct {
		dst  *proc.Tool
		name string
		file string
	}{
		{&tc.AAPT2, "aapt2", platform.Exe("aapt2")},
		{&tc.Zipalign, "zipalign", platform.Exe("zipalign")},
		{&tc.APKSigner, "apksigner", platform.Script("apksigner")},
	} {
		path := filepath.Join(btDir, t.file)
		if !isFile(path) {
			return nil, missingTool(t.name, path, tc.BuildToolsVersion)
		}
		*t.dst = proc.Tool{Name: t.name, Path: path}
	}

	if tc.Platform, err = findPlatform(home, opts.Platform); err != nil {
		return nil, err
	}
	tc.AndroidJar = filepath.Join(home, "platforms", tc.Platform, "android.jar")

	if tc.Keytool, err = keytool(opts); err != nil {
		return nil, err
	}

	tc.Bundletool, err = bundletool(opts, tc.Keytool)
	if err != nil && opts.RequireBundletool {
		return nil, err
	}
	return tc, nil
}

func androidHome(opts Options) (string, error) {
	candidates := []string{opts.AndroidHome, opts.Getenv(EnvAndroidHome), opts.Getenv(EnvAndroidSDKRoot)}
	for _, c := range candidates {
		if c != "" && isDir(c) {
			return c, nil
		}
	}
	return "", issue.NewErrorContext().
		WithOperation("locate Android SDK").
		WithSuggestions(
			"Set "+EnvAndroidHome+" to your Android SDK directory",
			"Or set sdk.android_home in the nativepack config file",
		).
		Wrap(ErrSDKNotFound).
		BuildError()
}

// buildToolsVersion returns pinned when installed, otherwise the newest
// stable version under build-tools.
func buildToolsVersion(home, pinned string) (string, error) {
	root := filepath.Join(home, "build-tools")
	if pinned != "" {
		if isDir(filepath.Join(root, pinned)) {
			return pinned, nil
		}
		return "", issue.NewErrorContext().
			WithOperation("locate build-tools " + pinned).
			WithResource(root).
			WithSuggestion("Install it with: sdkmanager \"build-tools;" + pinned + "\"").
			Wrap(ErrBuildToolsNotFound).
			BuildError()
	}

	best := newestVersion(subdirs(root), false)
	if best == "" {
		best = newestVersion(subdirs(root), true)
	}
	if best == "" {
		return "", issue.NewErrorContext().
			WithOperation("locate build-tools").
			WithResource(root).
			WithSuggestion("Install build-tools with: sdkmanager \"build-tools;34.0.0\"").
			Wrap(ErrBuildToolsNotFound).
			BuildError()
	}
	return best, nil
}

// newestVersion picks the highest semver-valid name. Prereleases are
// considered only when allowPre is set.
func newestVersion(names []string, allowPre bool) string {
	best := ""
	for _, name := range names {
		v := "v" + name
		if !semver.IsValid(v) || (!allowPre && semver.Prerelease(v) != "") {
			continue
		}
		if best == "" || semver.Compare(v, "v"+best) > 0 {
			best = name
		}
	}
	return best
}

// findPlatform returns the pinned platform or the highest numbered one holding android.jar.
func findPlatform(home, pinned string) (string, error) {
	root := filepath.Join(home, "platforms")
	if pinned != "" {
		if !strings.HasPrefix(pinned, platformPrefix) {
			pinned = platformPrefix + pinned
		}
		if isFile(filepath.Join(root, pinned, "android.jar")) {
			return pinned, nil
		}
		return "", issue.NewErrorContext().
			WithOperation("locate platform " + pinned).
			WithResource(root).
			WithSuggestion("Install it with: sdkmanager \"platforms;" + pinned + "\"").
			Wrap(ErrPlatformNotFound).
			BuildError()
	}

	best, bestLevel := "", -1
	for _, name := range subdirs(root) {
		level, err := strconv.Atoi(strings.TrimPrefix(name, platformPrefix))
		if err != nil || !strings.HasPrefix(name, platformPrefix) {
			continue
		}
		if level > bestLevel && isFile(filepath.Join(root, name, "android.jar")) {
			best, bestLevel = name, level
		}
	}
	if best == "" {
		return "", issue.NewErrorContext().
			WithOperation("locate Android platform").
			WithResource(root).
			WithSuggestion("Install a platform with: sdkmanager \"platforms;android-34\"").
			Wrap(ErrPlatformNotFound).
			BuildError()
	}
	return best, nil
}

// LocateKeytool resolves only keytool, for callers that need the JDK but not
// the Android SDK.
func LocateKeytool(opts Options) (proc.Tool, error) {
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	if opts.LookPath == nil {
		opts.LookPath = exec.LookPath
	}
	return keytool(opts)
}

func keytool(opts Options) (proc.Tool, error) {
	for _, javaHome := range []string{opts.JavaHome, opts.Getenv(EnvJavaHome)} {
		if javaHome == "" {
			continue
		}
		if path := filepath.Join(javaHome, "bin", platform.Exe("keytool")); isFile(path) {
			return proc.Tool{Name: "keytool", Path: path}, nil
		}
	}
	if path, err := opts.LookPath("keytool"); err == nil {
		return proc.Tool{Name: "keytool", Path: path}, nil
	}
	return proc.Tool{}, issue.NewErrorContext().
		WithOperation("locate keytool").
		WithSuggestions(
			"Install a JDK and set "+EnvJavaHome,
			"Or set sdk.java_home in the nativepack config file",
		).
		Wrap(&proc.ToolNotFoundError{Tool: "keytool", Path: "keytool", Err: exec.ErrNotFound}).
		BuildError()
}

// bundletool resolves an explicit path, BUNDLETOOL_PATH or PATH. A jar is run
// with the java binary next to keytool.
func bundletool(opts Options, keytool proc.Tool) (proc.Tool, error) {
	candidates := []string{opts.Bundletool, opts.Getenv(EnvBundletool)}
	if path, err := opts.LookPath("bundletool"); err == nil {
		candidates = append(candidates, path)
	}
	for _, path := range candidates {
		if path == "" || !isFile(path) {
			continue
		}
		if !strings.EqualFold(filepath.Ext(path), ".jar") {
			return proc.Tool{Name: "bundletool", Path: path}, nil
		}
		java := filepath.Join(filepath.Dir(keytool.Path), platform.Exe("java"))
		if !isFile(java) {
			var err error
			if java, err = opts.LookPath("java"); err != nil {
				return proc.Tool{}, &proc.ToolNotFoundError{Tool: "java", Path: "java", Err: err}
			}
		}
		return proc.Tool{Name: "bundletool", Path: java, Prefix: []string{"-jar", path}}, nil
	}
	return proc.Tool{}, issue.NewErrorContext().
		WithOperation("locate bundletool").
		WithSuggestions(
			"Download bundletool-all.jar from https://github.com/google/bundletool/releases",
			"Then set "+EnvBundletool+" or sdk.bundletool to its path",
		).
		Wrap(&proc.ToolNotFoundError{Tool: "bundletool", Path: "bundletool", Err: exec.ErrNotFound}).
		BuildError()
}

func missingTool(name, path, version string) error {
	return issue.NewErrorContext().
		WithOperation("locate " + name).
		WithResource(path).
		WithSuggestion(fmt.Sprintf("Reinstall build-tools %s with sdkmanager", version)).
		Wrap(&proc.ToolNotFoundError{Tool: name, Path: path, Err: os.ErrNotExist}).
		BuildError()
}

func subdirs(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
