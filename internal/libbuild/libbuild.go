// SPDX-License-Identifier: MPL-2.0

// Package libbuild runs a project's native library build command once per
// target ABI with the embedded POSIX shell interpreter and collects the
// produced shared libraries into an embed.LibrarySet.
package libbuild

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/invowk/nativepack/internal/embed"
	"github.com/invowk/nativepack/pkg/fspath"
	"github.com/invowk/nativepack/pkg/types"
)

const (
	// EnvABI holds the ABI being built.
	EnvABI = "NATIVEPACK_ABI"
	// EnvTargetDir holds a per-ABI scratch directory the command may write to.
	EnvTargetDir = "NATIVEPACK_TARGET_DIR"

	abiPlaceholder = "{abi}"
)

var (
	// ErrHook is the sentinel error wrapped by HookError.
	ErrHook = errors.New("library build command failed")
	// ErrInvalidHook is returned for a hook that cannot run.
	ErrInvalidHook = errors.New("invalid library build command")
)

type (
	// Hook describes the library build command of a project.
	Hook struct {
		// Command is a POSIX shell snippet.
		Command string
		// Output is the produced library path; "{abi}" is replaced per ABI.
		// Relative paths are resolved against Dir.
		Output string
		// Dir is the working directory, normally the project directory.
		Dir string
		// Env is added to the inherited process environment.
		Env []string
	}

	// Builder runs hooks.
	Builder struct {
		logger *log.Logger
		// TargetRoot holds one NATIVEPACK_TARGET_DIR per ABI.
		TargetRoot string
	}

	// HookError reports a failed command for one ABI with its captured output.
	HookError struct {
		ABI      embed.ABI
		ExitCode types.ExitCode
		Output   []byte
		Err      error
	}
)

// Error implements the error interface.
func (e *HookError) Error() string {
	msg := fmt.Sprintf("library build for %s failed", e.ABI)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit %d)", e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if out := strings.TrimSpace(string(e.Output)); out != "" {
		msg += "\n" + out
	}
	return msg
}

// Unwrap returns ErrHook and the underlying error.
func (e *HookError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrHook}
	}
	return []error{ErrHook, e.Err}
}

// IsZero reports whether no command is configured.
func (h Hook) IsZero() bool {
	return strings.TrimSpace(h.Command) == ""
}

// Validate parses the command and checks the output template.
func (h Hook) Validate() error {
	if h.IsZero() {
		return nil
	}
	if _, err := syntax.NewParser().Parse(strings.NewReader(h.Command), "libraries.command"); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidHook, err)
	}
	if h.Output == "" {
		return fmt.Errorf("%w: libraries.output is required with libraries.command", ErrInvalidHook)
	}
	return nil
}

// OutputPath returns the library path produced for abi.
func (h Hook) OutputPath(abi embed.ABI) types.FilesystemPath {
	p := fspath.FromSlash(types.FilesystemPath(strings.ReplaceAll(h.Output, abiPlaceholder, string(abi))))
	if h.Dir == "" {
		return p
	}
	return fspath.Resolve(types.FilesystemPath(h.Dir), p)
}

// NewBuilder returns a Builder that logs to logger, or nowhere when nil.
func NewBuilder(targetRoot string, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Builder{logger: logger, TargetRoot: targetRoot}
}

// Build runs h for each target in order and returns the produced libraries.
// Whether each library exists is checked later by the embedding stage.
func (b *Builder) Build(ctx context.Context, h Hook, targets []embed.ABI) (embed.LibrarySet, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	set := make(embed.LibrarySet, len(targets))
	if h.IsZero() {
		return set, nil
	}
	prog, err := syntax.NewParser().Parse(strings.NewReader(h.Command), "libraries.command")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHook, err)
	}

	for _, abi := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		if err := b.run(ctx, prog, h, abi); err != nil {
			return nil, err
		}
		set[abi] = h.OutputPath(abi)
		b.logger.Debug("library built", "abi", abi, "output", set[abi], "duration", time.Since(start))
	}
	return set, nil
}

func (b *Builder) run(ctx context.Context, prog *syntax.File, h Hook, abi embed.ABI) error {
	targetDir := filepath.Join(b.TargetRoot, string(abi))
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return &HookError{ABI: abi, Err: err}
	}

	env := append(os.Environ(), h.Env...)
	env = append(env, EnvABI+"="+string(abi), EnvTargetDir+"="+targetDir)

	var out bytes.Buffer
	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(nil, &out, &out),
	}
	if h.Dir != "" {
		opts = append(opts, interp.Dir(h.Dir))
	}
	runner, err := interp.New(opts...)
	if err != nil {
		return &HookError{ABI: abi, Err: err}
	}

	if err := runner.Run(ctx, prog); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("library build for %s interrupted: %w", abi, ctxErr)
		}
		var status interp.ExitStatus
		if errors.As(err, &status) {
			return &HookError{ABI: abi, ExitCode: types.ExitCode(status), Output: out.Bytes()}
		}
		return &HookError{ABI: abi, Output: out.Bytes(), Err: err}
	}
	return nil
}
