// SPDX-License-Identifier: MPL-2.0

package embed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/invowk/nativepack/internal/artifact"
	"github.com/invowk/nativepack/internal/ziputil"
	"github.com/invowk/nativepack/pkg/types"
)

// LibDir is the archive directory holding per-ABI subdirectories.
const LibDir = "lib"

type (
	// Embedder mutates the lib/ directory of an extracted APK tree.
	Embedder struct {
		// Tree is rooted at the extracted APK tree.
		Tree billy.Filesystem
		// Sources resolves LibrarySet paths.
		Sources billy.Filesystem
	}

	// Request describes one embedding run.
	Request struct {
		// LinkedArchive is the archive produced by the resource link step.
		LinkedArchive string
		// TreeDir is the scratch directory the archive is extracted into. It is
		// removed first if it exists.
		TreeDir string
		// OutPath receives the repackaged, unaligned archive.
		OutPath string
		// Libraries maps ABIs to absolute library paths.
		Libraries LibrarySet
		// Targets are the ABIs the build requires.
		Targets []ABI
		// LibName is the file name each library gets inside lib/<abi>/.
		LibName string
	}
)

// Prune removes every entry of lib/ that is not a directory named after an
// ABI in set.
func (e *Embedder) Prune(set LibrarySet) error {
	entries, err := e.Tree.ReadDir(LibDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", LibDir, err)
	}
	for _, entry := range entries {
		if _, keep := set[ABI(entry.Name())]; keep && entry.IsDir() {
			continue
		}
		stale := path.Join(LibDir, entry.Name())
		if err := util.RemoveAll(e.Tree, stale); err != nil {
			return fmt.Errorf("remove stale %s: %w", stale, err)
		}
	}
	return nil
}

// Copy writes each library in set to lib/<abi>/<libName>, replacing any
// existing file.
func (e *Embedder) Copy(set LibrarySet, libName string) error {
	for _, abi := range set.ABIs() {
		if err := abi.Validate(); err != nil {
			return err
		}
		dir := path.Join(LibDir, string(abi))
		if err := e.Tree.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
		if err := e.copyFile(set[abi], path.Join(dir, libName), abi); err != nil {
			return err
		}
	}
	return nil
}

func (e *Embedder) copyFile(src types.FilesystemPath, dst string, abi ABI) (err error) {
	in, err := e.Sources.Open(string(src))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &MissingLibraryError{ABI: abi, Path: src}
		}
		return fmt.Errorf("open library for %s: %w", abi, err)
	}
	defer func() { _ = in.Close() }()

	out, err := e.Tree.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy library for %s: %w", abi, err)
	}
	return nil
}

// StoredEntry reports whether an APK entry must be stored uncompressed:
// shared libraries are mapped directly from the archive and resources.arsc
// is mapped by the resource manager.
func StoredEntry(name string) bool {
	return strings.HasSuffix(name, ".so") || name == "resources.arsc"
}

// Embed extracts the linked archive, embeds the libraries and repackages
// the tree into req.OutPath.
func Embed(ctx context.Context, req Request) (artifact.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return artifact.Artifact{}, err
	}
	if err := req.Libraries.Check(req.Targets); err != nil {
		return artifact.Artifact{}, err
	}
	libs, err := req.Libraries.Abs()
	if err != nil {
		return artifact.Artifact{}, err
	}

	if err := ziputil.ExtractFresh(req.LinkedArchive, req.TreeDir); err != nil {
		return artifact.Artifact{}, fmt.Errorf("extract linked archive: %w", err)
	}

	e := &Embedder{Tree: osfs.New(req.TreeDir), Sources: osfs.New(string(os.PathSeparator))}
	if err := e.Prune(libs); err != nil {
		return artifact.Artifact{}, err
	}
	if err := e.Copy(libs, req.LibName); err != nil {
		return artifact.Artifact{}, err
	}

	if err := ziputil.WriteTree(req.TreeDir, req.OutPath, ziputil.TreeOptions{Stored: StoredEntry}); err != nil {
		return artifact.Artifact{}, fmt.Errorf("repackage %s: %w", req.OutPath, err)
	}
	return artifact.New(req.OutPath, artifact.TagEmbedded), nil
}
