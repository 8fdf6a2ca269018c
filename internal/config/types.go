// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/invowk/nativepack/internal/align"
	"github.com/invowk/nativepack/internal/sdk"
	"github.com/invowk/nativepack/pkg/types"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// maxJobs caps build.jobs.
	maxJobs = 256
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidBuildToolsVersion is returned when a pinned build-tools version is not a version.
	ErrInvalidBuildToolsVersion = errors.New("invalid build-tools version")
	// ErrInvalidPlatform is returned when a pinned platform is neither "N" nor "android-N".
	ErrInvalidPlatform = errors.New("invalid platform")
	// ErrInvalidJobs is returned when build.jobs is out of range.
	ErrInvalidJobs = errors.New("invalid job count")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidLoadOptions is the sentinel error wrapped by InvalidLoadOptionsError.
	ErrInvalidLoadOptions = errors.New("invalid load options")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// BuildToolsVersion pins an installed build-tools directory, e.g. "34.0.0".
	// The zero value means "newest installed".
	BuildToolsVersion string

	// InvalidBuildToolsVersionError is returned for a malformed BuildToolsVersion.
	InvalidBuildToolsVersionError struct {
		Value BuildToolsVersion
	}

	// PlatformLevel pins an installed platform as "34" or "android-34".
	// The zero value means "newest installed".
	PlatformLevel string

	// InvalidPlatformError is returned for a malformed PlatformLevel.
	InvalidPlatformError struct {
		Value PlatformLevel
	}

	// JobCount bounds concurrent aapt2 compile processes. Zero means one per CPU.
	JobCount int

	// InvalidJobsError is returned when a JobCount is negative or above the cap.
	InvalidJobsError struct {
		Value JobCount
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// SDK locates the Android SDK and its tools.
		SDK SDKConfig `json:"sdk" mapstructure:"sdk"`
		// Signing configures debug signing.
		Signing SigningConfig `json:"signing" mapstructure:"signing"`
		// Build tunes the pipeline.
		Build BuildConfig `json:"build" mapstructure:"build"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// SDKConfig overrides SDK discovery. Empty fields fall back to the
	// environment (ANDROID_HOME, JAVA_HOME, BUNDLETOOL_PATH) and then to the
	// newest installed versions.
	SDKConfig struct {
		AndroidHome types.FilesystemPath `json:"android_home,omitempty" mapstructure:"android_home"`
		BuildTools  BuildToolsVersion    `json:"build_tools,omitempty" mapstructure:"build_tools"`
		Platform    PlatformLevel        `json:"platform,omitempty" mapstructure:"platform"`
		Bundletool  types.FilesystemPath `json:"bundletool,omitempty" mapstructure:"bundletool"`
		JavaHome    types.FilesystemPath `json:"java_home,omitempty" mapstructure:"java_home"`
	}

	// SigningConfig configures debug signing.
	SigningConfig struct {
		// DebugKeystore overrides ~/.android/debug.keystore.
		DebugKeystore types.FilesystemPath `json:"debug_keystore,omitempty" mapstructure:"debug_keystore"`
	}

	// BuildConfig tunes the pipeline.
	BuildConfig struct {
		Jobs        JobCount     `json:"jobs" mapstructure:"jobs"`
		AlignEngine align.Engine `json:"align_engine" mapstructure:"align_engine"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables verbose output
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Build: BuildConfig{
			AlignEngine: align.EngineAuto,
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
	}
}

// Validate returns an *InvalidConfigError listing every invalid field.
func (c *Config) Validate() error {
	var errs []error
	for _, p := range []types.FilesystemPath{c.SDK.AndroidHome, c.SDK.Bundletool, c.SDK.JavaHome, c.Signing.DebugKeystore} {
		if p == "" {
			continue
		}
		if err := p.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, v := range []interface{ Validate() error }{
		c.SDK.BuildTools, c.SDK.Platform, c.Build.Jobs, c.Build.AlignEngine, c.UI.ColorScheme,
	} {
		if err := v.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// SDKOptions maps the sdk section onto discovery options.
func (c *Config) SDKOptions() sdk.Options {
	return sdk.Options{
		AndroidHome: string(c.SDK.AndroidHome),
		BuildTools:  string(c.SDK.BuildTools),
		Platform:    string(c.SDK.Platform),
		Bundletool:  string(c.SDK.Bundletool),
		JavaHome:    string(c.SDK.JavaHome),
	}
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig and the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// Validate returns an error if the ColorScheme is not recognized.
func (cs ColorScheme) Validate() error {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return nil
	default:
		return &InvalidColorSchemeError{Value: cs}
	}
}

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// Validate accepts the zero value and dotted versions such as "34.0.0" or "35.0.0-rc1".
func (v BuildToolsVersion) Validate() error {
	if v == "" {
		return nil
	}
	s := string(v)
	if strings.Count(s, ".") != 2 || !semver.IsValid("v"+s) {
		return &InvalidBuildToolsVersionError{Value: v}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidBuildToolsVersionError) Error() string {
	return fmt.Sprintf("invalid build-tools version %q (expected MAJOR.MINOR.PATCH)", e.Value)
}

// Unwrap returns ErrInvalidBuildToolsVersion for errors.Is() compatibility.
func (e *InvalidBuildToolsVersionError) Unwrap() error { return ErrInvalidBuildToolsVersion }

// Validate accepts the zero value, "N" and "android-N".
func (p PlatformLevel) Validate() error {
	if p == "" {
		return nil
	}
	n := strings.TrimPrefix(string(p), "android-")
	if n == "" || strings.TrimLeft(n, "0123456789") != "" {
		return &InvalidPlatformError{Value: p}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidPlatformError) Error() string {
	return fmt.Sprintf("invalid platform %q (expected \"34\" or \"android-34\")", e.Value)
}

// Unwrap returns ErrInvalidPlatform for errors.Is() compatibility.
func (e *InvalidPlatformError) Unwrap() error { return ErrInvalidPlatform }

// Validate returns an error if the count is negative or above the cap.
func (j JobCount) Validate() error {
	if j < 0 || j > maxJobs {
		return &InvalidJobsError{Value: j}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidJobsError) Error() string {
	return fmt.Sprintf("invalid job count %d (must be 0-%d)", e.Value, maxJobs)
}

// Unwrap returns ErrInvalidJobs for errors.Is() compatibility.
func (e *InvalidJobsError) Unwrap() error { return ErrInvalidJobs }
