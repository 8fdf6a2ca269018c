// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/invowk/nativepack/internal/artifact"
	"github.com/invowk/nativepack/internal/proc"
)

type (
	// Assembler runs `bundletool build-bundle`.
	Assembler struct {
		Runner     proc.Runner
		Bundletool proc.Tool
		// Config is an optional BundleConfig.json passed with --config.
		Config string
	}

	// Assembly tracks one bundle through its lifecycle.
	Assembly struct {
		state   State
		modules []Module
	}
)

// BuildBundleArgs returns the bundletool arguments that assemble modules into out.
func BuildBundleArgs(modules []Module, out, config string) []string {
	paths := make([]string, 0, len(modules))
	for _, m := range modules {
		paths = append(paths, m.Path)
	}
	args := []string{"build-bundle", "--modules=" + strings.Join(paths, ","), "--output=" + out}
	if config != "" {
		args = append(args, "--config="+config)
	}
	return args
}

// Assemble builds the bundle at out from modules. bundletool refuses to
// overwrite, so a previous file at out is removed first and a failure to
// remove it is reported.
func (a Assembler) Assemble(ctx context.Context, modules []Module, out string) (artifact.Artifact, error) {
	if len(modules) == 0 {
		return artifact.Artifact{}, errors.New("no modules to assemble")
	}
	if a.Bundletool.IsZero() {
		return artifact.Artifact{}, fmt.Errorf("bundletool not found: %w", proc.ErrToolNotFound)
	}
	if err := removeFile(out); err != nil {
		return artifact.Artifact{}, err
	}
	if _, err := a.Runner.Run(ctx, a.Bundletool.Command(BuildBundleArgs(modules, out, a.Config)...)); err != nil {
		return artifact.Artifact{}, err
	}
	return artifact.New(out, artifact.TagBundle), nil
}

// NewAssembly returns an Assembly in StateNew.
func NewAssembly() *Assembly {
	return &Assembly{state: StateNew}
}

// State returns the current state.
func (a *Assembly) State() State { return a.state }

// Modules returns the modules re-zipped so far.
func (a *Assembly) Modules() []Module {
	return append([]Module(nil), a.modules...)
}

// Extract unpacks the next module's signed archive. A failed step leaves the
// state unchanged.
func (a *Assembly) Extract(signedArchive, scratch string) (Tree, error) {
	if err := a.check(StateExtracted); err != nil {
		return Tree{}, err
	}
	tree, err := Extract(signedArchive, scratch)
	if err != nil {
		return Tree{}, err
	}
	a.state = StateExtracted
	return tree, nil
}

// Rezip packs the extracted tree into a module.
func (a *Assembly) Rezip(tree Tree, moduleName, out string) (Module, error) {
	if err := a.check(StateRezipped); err != nil {
		return Module{}, err
	}
	for _, m := range a.modules {
		if m.Name == moduleName {
			return Module{}, fmt.Errorf("%w: duplicate module %q", ErrInvalidModuleName, moduleName)
		}
	}
	m, err := Rezip(tree, moduleName, out)
	if err != nil {
		return Module{}, err
	}
	a.modules = append(a.modules, m)
	a.state = StateRezipped
	return m, nil
}

// Assemble runs the assembler over every module, then deletes the module
// archives bundletool consumed.
func (a *Assembly) Assemble(ctx context.Context, asm Assembler, out string) (artifact.Artifact, error) {
	if err := a.check(StateAssembled); err != nil {
		return artifact.Artifact{}, err
	}
	hasBase := false
	for _, m := range a.modules {
		hasBase = hasBase || m.Name == BaseModule
	}
	if !hasBase {
		return artifact.Artifact{}, fmt.Errorf("%w: bundle has no %q module", ErrInvalidModuleName, BaseModule)
	}

	art, err := asm.Assemble(ctx, a.modules, out)
	if err != nil {
		return artifact.Artifact{}, err
	}
	a.state = StateAssembled

	var cleanupErr error
	for _, m := range a.modules {
		cleanupErr = errors.Join(cleanupErr, removeFile(m.Path))
	}
	if cleanupErr != nil {
		return art, fmt.Errorf("discard bundle modules: %w", cleanupErr)
	}
	return art, nil
}

func (a *Assembly) check(to State) error {
	if !isAllowedTransition(a.state, to) {
		return &TransitionError{From: a.state, To: to}
	}
	return nil
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
