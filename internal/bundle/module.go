// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/invowk/nativepack/internal/ziputil"
	"github.com/invowk/nativepack/pkg/platform"
)

// BaseModule is the name of the module every bundle must contain.
const BaseModule = "base"

var (
	// ErrBinaryResources is returned when an archive holds resources.arsc:
	// bundle modules need resources linked with --proto-format.
	ErrBinaryResources = errors.New("archive has binary resources (resources.arsc); bundle modules require proto-format linking")

	// ErrInvalidModuleName is returned for module names bundletool would reject.
	ErrInvalidModuleName = errors.New("invalid bundle module name")

	moduleNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
)

type (
	// Tree is an extracted archive.
	Tree struct {
		Dir string
	}

	// Module is a re-zipped bundle module ready for bundletool.
	Module struct {
		Name string
		Path string
	}
)

// ValidateModuleName checks name against bundletool's module naming rules.
// Names Windows reserves are refused too, since each module becomes <name>.zip.
func ValidateModuleName(name string) error {
	if !moduleNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidModuleName, name)
	}
	if platform.IsWindowsReservedName(name) {
		return fmt.Errorf("%w: %q is a reserved file name on Windows", ErrInvalidModuleName, name)
	}
	return nil
}

// Extract unpacks a signed archive into scratch, which is emptied first.
func Extract(signedArchive, scratch string) (Tree, error) {
	if err := ziputil.ExtractFresh(signedArchive, scratch); err != nil {
		return Tree{}, fmt.Errorf("extract %s: %w", signedArchive, err)
	}
	return Tree{Dir: scratch}, nil
}

// Rezip packs tree into out using the bundle module layout.
func Rezip(tree Tree, moduleName, out string) (Module, error) {
	if err := ValidateModuleName(moduleName); err != nil {
		return Module{}, err
	}

	var layoutErr error
	opts := ziputil.TreeOptions{
		Rename: func(rel string) (string, bool) {
			name, keep, err := modulePath(rel)
			if err != nil && layoutErr == nil {
				layoutErr = err
			}
			return name, keep
		},
		Stored: storedInModule,
	}
	if err := ziputil.WriteTree(tree.Dir, out, opts); err != nil {
		return Module{}, fmt.Errorf("write module %s: %w", moduleName, err)
	}
	if layoutErr != nil {
		return Module{}, errors.Join(layoutErr, removeFile(out))
	}
	return Module{Name: moduleName, Path: out}, nil
}

// modulePath maps an APK entry to its place in a bundle module. Signature
// files are dropped since bundletool signs nothing and rejects stale ones.
func modulePath(rel string) (name string, keep bool, err error) {
	top, _, _ := strings.Cut(rel, "/")
	switch {
	case rel == "AndroidManifest.xml":
		return "manifest/AndroidManifest.xml", true, nil
	case rel == "resources.pb":
		return rel, true, nil
	case rel == "resources.arsc":
		return "", false, ErrBinaryResources
	case top == "res" || top == "assets" || top == "lib":
		return rel, true, nil
	case !strings.Contains(rel, "/") && path.Ext(rel) == ".dex":
		return "dex/" + rel, true, nil
	case top == "META-INF" && isSignatureFile(rel):
		return "", false, nil
	default:
		return "root/" + rel, true, nil
	}
}

func isSignatureFile(rel string) bool {
	if rel == "META-INF/MANIFEST.MF" {
		return true
	}
	switch strings.ToUpper(path.Ext(rel)) {
	case ".SF", ".RSA", ".DSA", ".EC":
		return true
	}
	return false
}

func storedInModule(name string) bool {
	return strings.HasSuffix(name, ".so") || name == "resources.pb"
}
