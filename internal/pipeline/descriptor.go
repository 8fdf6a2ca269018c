// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/invowk/nativepack/internal/embed"
	"github.com/invowk/nativepack/internal/libbuild"
	"github.com/invowk/nativepack/internal/manifest"
	"github.com/invowk/nativepack/internal/sign"
)

const (
	// FormatArchive produces a signed, installable APK.
	FormatArchive OutputFormat = "archive"
	// FormatBundle produces an Android App Bundle.
	FormatBundle OutputFormat = "bundle"
)

var packageSegment = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

type (
	// OutputFormat selects the final artifact kind.
	OutputFormat string

	// BuildDescriptor is the immutable configuration of one build.
	BuildDescriptor struct {
		PackageID   string
		Label       string
		VersionName string
		VersionCode uint32
		MinSDK      int
		TargetSDK   int
		Targets     []embed.ABI
		Format      OutputFormat
		Key         sign.Key

		ResDir    string
		AssetsDir string
		// BuildDir holds intermediates and the final artifact.
		BuildDir string
		// ManifestOverride is an optional user AndroidManifest.xml.
		ManifestOverride string

		Permissions []string
		Features    []string
		// LibName is the library file name inside lib/<abi>/. Empty means
		// lib<name>.so, see DefaultLibName.
		LibName    string
		Debuggable bool

		// Libraries optionally builds the native libraries during the build.
		Libraries libbuild.Hook

		// split names the feature module this descriptor builds inside a
		// multi-module bundle.
		split string
		// packageID is the resource package id of a feature module; zero
		// keeps the app default.
		packageID uint8
	}
)

// IsValid reports whether f is a known format.
func (f OutputFormat) IsValid() bool {
	return f == FormatArchive || f == FormatBundle
}

// Extension returns the final artifact file extension.
func (f OutputFormat) Extension() string {
	if f == FormatBundle {
		return ".aab"
	}
	return ".apk"
}

// ParseOutputFormat accepts "archive"/"apk" and "bundle"/"aab".
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "archive", "apk":
		return FormatArchive, nil
	case "bundle", "aab":
		return FormatBundle, nil
	}
	return "", fmt.Errorf("unknown output format %q (want archive or bundle)", s)
}

// Name returns the base name of the final artifact: the label, or the
// package identifier when no label is set.
func (d BuildDescriptor) Name() string {
	if d.Label != "" {
		return d.Label
	}
	return d.PackageID
}

// OutputPath returns {BuildDir}/{Name}.apk or .aab.
func (d BuildDescriptor) OutputPath() string {
	return filepath.Join(d.BuildDir, d.Name()+d.Format.Extension())
}

// DefaultLibName derives lib<stem>.so from the label, or from the last
// package segment when the label is unset or not a valid identifier.
func (d BuildDescriptor) DefaultLibName() string {
	stem := d.Label
	if !packageSegment.MatchString(stem) {
		stem = d.PackageID[strings.LastIndex(d.PackageID, ".")+1:]
	}
	return "lib" + stem + ".so"
}

// EffectiveLibName returns LibName or DefaultLibName.
func (d BuildDescriptor) EffectiveLibName() string {
	if d.LibName != "" {
		return d.LibName
	}
	return d.DefaultLibName()
}

// Validate reports every invalid field at once as a *ConfigurationError.
func (d BuildDescriptor) Validate() error {
	var problems []error
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if err := validatePackageID(d.PackageID); err != nil {
		problems = append(problems, err)
	}
	if name := d.Name(); strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		add("label %q cannot be used as a file name", name)
	}
	if d.VersionName == "" {
		add("version name is required")
	}
	if d.VersionCode == 0 {
		add("version code must be greater than zero")
	}
	if d.MinSDK < 0 || d.TargetSDK < 0 {
		add("SDK levels must not be negative")
	}
	if d.MinSDK > 0 && d.TargetSDK > 0 && d.MinSDK > d.TargetSDK {
		add("min SDK %d is above target SDK %d", d.MinSDK, d.TargetSDK)
	}
	if !d.Format.IsValid() {
		add("output format %q is not one of archive, bundle", d.Format)
	}
	if d.BuildDir == "" {
		add("build directory is required")
	}

	if len(d.Targets) == 0 {
		add("at least one target ABI is required")
	}
	seen := make(map[embed.ABI]bool, len(d.Targets))
	for _, abi := range d.Targets {
		if err := abi.Validate(); err != nil {
			problems = append(problems, err)
			continue
		}
		if seen[abi] {
			add("target ABI %s listed twice", abi)
		}
		seen[abi] = true
	}

	if !d.Key.Debug {
		if d.Key.Path == "" {
			add("signing key path is required unless the debug key is used")
		}
		if d.Key.Alias == "" {
			add("signing key alias is required unless the debug key is used")
		}
	}
	if d.LibName != "" && (filepath.Base(d.LibName) != d.LibName || !strings.HasSuffix(d.LibName, ".so")) {
		add("library name %q must be a bare .so file name", d.LibName)
	}
	if err := d.Libraries.Validate(); err != nil {
		problems = append(problems, err)
	}

	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}

func validatePackageID(id string) error {
	if id == "" {
		return errors.New("package identifier is required")
	}
	segments := strings.Split(id, ".")
	if len(segments) < 2 {
		return fmt.Errorf("package identifier %q needs at least two segments", id)
	}
	for _, s := range segments {
		if !packageSegment.MatchString(s) {
			return fmt.Errorf("package identifier %q has invalid segment %q", id, s)
		}
	}
	return nil
}

func (d BuildDescriptor) manifestInput() manifest.Input {
	libName := d.EffectiveLibName()
	if d.split != "" && len(d.Targets) == 0 {
		libName = ""
	}
	return manifest.Input{
		PackageID:    d.PackageID,
		Label:        d.Name(),
		VersionName:  d.VersionName,
		VersionCode:  d.VersionCode,
		MinSDK:       d.MinSDK,
		TargetSDK:    d.TargetSDK,
		Permissions:  d.Permissions,
		Features:     d.Features,
		LibName:      libName,
		Debuggable:   d.Debuggable,
		OverridePath: d.ManifestOverride,
		Split:        d.split,
	}
}
