// SPDX-License-Identifier: MPL-2.0

package resource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/invowk/nativepack/internal/artifact"
	"github.com/invowk/nativepack/internal/proc"
)

// ErrResourceLayout is returned for files outside the res/<type>/<file> layout.
var ErrResourceLayout = errors.New("resource file must be inside a <type>/ directory")

// Compiler runs `aapt2 compile` over a resource directory.
type Compiler struct {
	Runner proc.Runner
	AAPT2  proc.Tool
	// Jobs bounds concurrent aapt2 processes. Zero means GOMAXPROCS.
	Jobs int
}

// Compile compiles every file under resDir into outDir and returns the
// resulting .flat files sorted by path. outDir is emptied first so stale
// outputs never reach the link step. A missing or empty resDir yields an
// empty result.
func (c Compiler) Compile(ctx context.Context, resDir, outDir string) ([]artifact.Artifact, error) {
	if err := os.RemoveAll(outDir); err != nil {
		return nil, fmt.Errorf("remove stale %s: %w", outDir, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", outDir, err)
	}

	files, err := resourceFiles(resDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	jobs := c.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for _, file := range files {
		g.Go(func() error {
			if _, err := c.Runner.Run(gctx, c.AAPT2.Command("compile", "-o", outDir, file)); err != nil {
				return fmt.Errorf("compile %s: %w", file, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	flats, err := filepath.Glob(filepath.Join(outDir, "*.flat"))
	if err != nil {
		return nil, err
	}
	slices.Sort(flats)
	out := make([]artifact.Artifact, 0, len(flats))
	for _, f := range flats {
		out = append(out, artifact.New(f, artifact.TagResourceCompiled))
	}
	return out, nil
}

// resourceFiles lists res/<type>/<file> paths under resDir, skipping hidden
// files and directories.
func resourceFiles(resDir string) ([]string, error) {
	if resDir == "" {
		return nil, nil
	}
	var files []string
	err := filepath.WalkDir(resDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == resDir && errors.Is(walkErr, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return walkErr
		}
		if path != resDir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(resDir, path)
		if err != nil {
			return err
		}
		if len(strings.Split(filepath.ToSlash(rel), "/")) != 2 {
			return fmt.Errorf("%w: %s", ErrResourceLayout, rel)
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
