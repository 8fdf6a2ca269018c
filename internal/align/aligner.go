// SPDX-License-Identifier: MPL-2.0

package align

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/invowk/nativepack/internal/artifact"
	"github.com/invowk/nativepack/internal/proc"
)

// DefaultAlignment is the boundary required for stored entries.
const DefaultAlignment = 4

const (
	// EngineAuto uses zipalign when it was found and the builtin rewrite otherwise.
	EngineAuto Engine = "auto"
	// EngineTool always uses zipalign.
	EngineTool Engine = "tool"
	// EngineBuiltin always uses the in-process rewrite.
	EngineBuiltin Engine = "builtin"
)

type (
	// Aligner rewrites in into out with every stored entry aligned.
	// in and out may name the same file.
	Aligner interface {
		Align(ctx context.Context, in, out string) (artifact.Artifact, error)
	}

	// Engine selects an Aligner implementation.
	Engine string
)

// Validate returns nil if the engine is known, or an error wrapping ErrInvalidEngine.
// The empty value is treated as EngineAuto.
func (e Engine) Validate() error {
	switch e {
	case "", EngineAuto, EngineTool, EngineBuiltin:
		return nil
	default:
		return &InvalidEngineError{Value: e}
	}
}

// Select returns the Aligner for engine.
func Select(engine Engine, runner proc.Runner, zipalign proc.Tool) (Aligner, error) {
	if err := engine.Validate(); err != nil {
		return nil, err
	}
	switch engine {
	case EngineBuiltin:
		return BuiltinAligner{}, nil
	case EngineTool:
		if zipalign.IsZero() {
			return nil, errors.New("alignment engine \"tool\" requires zipalign, which was not found")
		}
		return ToolAligner{Runner: runner, Zipalign: zipalign}, nil
	default:
		if zipalign.IsZero() {
			return BuiltinAligner{}, nil
		}
		return ToolAligner{Runner: runner, Zipalign: zipalign}, nil
	}
}

// replaceFile calls write with a fresh temporary path beside out and renames
// the result over out once write succeeds. The temporary file is removed on failure.
func replaceFile(out string, write func(tmp string) error) (err error) {
	tmpFile, err := os.CreateTemp(filepath.Dir(out), "."+filepath.Base(out)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := tmpFile.Name()
	if err := tmpFile.Close(); err != nil {
		return errors.Join(err, os.Remove(tmp))
	}
	defer func() {
		if err == nil {
			return
		}
		if rmErr := os.Remove(tmp); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			err = errors.Join(err, rmErr)
		}
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, out); err != nil {
		return fmt.Errorf("replace %s: %w", out, err)
	}
	return nil
}
