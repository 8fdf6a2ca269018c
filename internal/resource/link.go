// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/invowk/nativepack/internal/artifact"
	"github.com/invowk/nativepack/internal/proc"
)

const (
	// AppPackageID is the resource package id aapt2 assigns by default. The
	// base module of a bundle keeps it.
	AppPackageID uint8 = 0x7f
	// MinFeaturePackageID is the lowest id a feature module may take; 0x00
	// and 0x01 belong to shared libraries and the framework.
	MinFeaturePackageID uint8 = 0x02
)

type (
	// Options are the link flags decided by the build's output format.
	Options struct {
		// ProtoFormat emits protobuf resources for bundletool instead of binary XML.
		ProtoFormat bool
		// AutoAddOverlay allows overlays to add resources not in the base.
		AutoAddOverlay bool
	}

	// LinkRequest describes one `aapt2 link` run.
	LinkRequest struct {
		Compiled     []artifact.Artifact
		ManifestPath string
		AndroidJar   string
		OutPath      string
		// AssetsDir is packaged with -A when it exists.
		AssetsDir   string
		Options     Options
		MinSDK      int
		TargetSDK   int
		VersionCode uint32
		VersionName string
		// Includes are extra -I archives, e.g. the linked base module when
		// linking a feature module.
		Includes []string
		// PackageID sets --package-id. Zero or AppPackageID leaves aapt2's
		// default; lower ids also pass --allow-reserved-package-id.
		PackageID uint8
	}

	// Linker runs `aapt2 link`.
	Linker struct {
		Runner proc.Runner
		AAPT2  proc.Tool
	}
)

// LinkArgs returns the aapt2 arguments for req, in the order aapt2 documents them.
func LinkArgs(req LinkRequest) []string {
	args := []string{"link", "-o", req.OutPath, "--manifest", req.ManifestPath, "-I", req.AndroidJar}
	if req.Options.ProtoFormat {
		args = append(args, "--proto-format")
	}
	if req.Options.AutoAddOverlay {
		args = append(args, "--auto-add-overlay")
	}
	if req.AssetsDir != "" {
		args = append(args, "-A", req.AssetsDir)
	}
	if req.MinSDK > 0 {
		args = append(args, "--min-sdk-version", strconv.Itoa(req.MinSDK))
	}
	if req.TargetSDK > 0 {
		args = append(args, "--target-sdk-version", strconv.Itoa(req.TargetSDK))
	}
	if req.VersionCode > 0 {
		args = append(args, "--version-code", strconv.FormatUint(uint64(req.VersionCode), 10))
	}
	if req.VersionName != "" {
		args = append(args, "--version-name", req.VersionName)
	}
	if req.PackageID != 0 && req.PackageID != AppPackageID {
		args = append(args, "--package-id", fmt.Sprintf("0x%02x", req.PackageID))
		if req.PackageID < AppPackageID {
			args = append(args, "--allow-reserved-package-id")
		}
	}
	for _, inc := range req.Includes {
		args = append(args, "-I", inc)
	}
	for _, c := range req.Compiled {
		args = append(args, c.Path)
	}
	return args
}

// Link merges the compiled resources, manifest and framework jar into
// req.OutPath. On failure any partial output is removed.
func (l Linker) Link(ctx context.Context, req LinkRequest) (artifact.Artifact, error) {
	if err := removeIfExists(req.OutPath); err != nil {
		return artifact.Artifact{}, err
	}
	if req.AssetsDir != "" {
		ok, err := isDir(req.AssetsDir)
		if err != nil {
			return artifact.Artifact{}, err
		}
		if !ok {
			req.AssetsDir = ""
		}
	}

	if _, err := l.Runner.Run(ctx, l.AAPT2.Command(LinkArgs(req)...)); err != nil {
		if rmErr := removeIfExists(req.OutPath); rmErr != nil {
			err = errors.Join(err, rmErr)
		}
		return artifact.Artifact{}, fmt.Errorf("link: %w", err)
	}
	if _, err := os.Stat(req.OutPath); err != nil {
		return artifact.Artifact{}, fmt.Errorf("link produced no output at %s: %w", req.OutPath, artifact.ErrMissing)
	}
	return artifact.New(req.OutPath, artifact.TagLinked), nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove stale %s: %w", path, err)
	}
	return nil
}

func isDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
