// SPDX-License-Identifier: MPL-2.0

// Package ziputil holds the zip plumbing shared by the embedding, alignment
// and bundle stages: extracting an archive into a directory tree and writing
// a directory tree back out with a per-entry choice of stored or deflated
// compression.
package ziputil

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// entryModTime is stamped on every written entry so rebuilding the same tree
// produces the same bytes.
var entryModTime = time.Date(2008, time.January, 1, 0, 0, 0, 0, time.UTC)

// ErrUnsafeEntry is returned when an archive entry would extract outside the destination.
var ErrUnsafeEntry = errors.New("unsafe archive entry path")

type (
	// Writer wraps zip.Writer and keeps the first error, so a sequence of
	// Add calls can be checked once at Close.
	Writer struct {
		err error
		w   *zip.Writer
	}

	// TreeOptions controls WriteTree.
	TreeOptions struct {
		// Rename maps a slash-separated path relative to the tree root to the
		// archive entry name. Returning false skips the file. Nil keeps every
		// file under its relative path.
		Rename func(rel string) (name string, keep bool)
		// Stored reports whether an entry is written uncompressed. Nil deflates everything.
		Stored func(name string) bool
	}
)

// NewWriter creates a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: zip.NewWriter(w)}
}

// Store adds file as an uncompressed entry.
func (z *Writer) Store(name, file string) {
	z.Add(name, file, zip.Store)
}

// Deflate adds file as a deflated entry.
func (z *Writer) Deflate(name, file string) {
	z.Add(name, file, zip.Deflate)
}

// Add copies file into the archive as name using method.
func (z *Writer) Add(name, file string, method uint16) {
	if z.err != nil {
		return
	}
	f, err := os.Open(file)
	if err != nil {
		z.err = err
		return
	}
	defer func() { _ = f.Close() }()

	fh := &zip.FileHeader{
		Name:     name,
		Method:   method,
		Modified: entryModTime,
	}
	fh.SetMode(0o644)
	w, err := z.w.CreateHeader(fh)
	if err != nil {
		z.err = err
		return
	}
	if _, err := io.Copy(w, f); err != nil {
		z.err = fmt.Errorf("write %s: %w", name, err)
	}
}

// Close finishes the archive and returns the first error seen.
func (z *Writer) Close() error {
	err := z.w.Close()
	if z.err == nil {
		z.err = err
	}
	return z.err
}

// WriteTree archives every regular file under root into outPath, in lexical
// path order. A failed write removes outPath.
func WriteTree(root, outPath string, opts TreeOptions) (err error) {
	files, err := listFiles(root)
	if err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			if rmErr := os.Remove(outPath); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				err = errors.Join(err, rmErr)
			}
		}
	}()

	zw := NewWriter(out)
	for _, rel := range files {
		name := rel
		if opts.Rename != nil {
			var keep bool
			if name, keep = opts.Rename(rel); !keep {
				continue
			}
		}
		method := uint16(zip.Deflate)
		if opts.Stored != nil && opts.Stored(name) {
			method = zip.Store
		}
		zw.Add(name, filepath.Join(root, filepath.FromSlash(rel)), method)
	}
	return zw.Close()
}

// listFiles returns slash-separated paths of regular files under root, sorted.
func listFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// Extract unpacks archivePath into destDir, creating it if needed.
func Extract(archivePath, destDir string) (err error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", archivePath, err)
	}
	defer func() {
		if closeErr := zr.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}

	for _, f := range zr.File {
		if !filepath.IsLocal(f.Name) {
			return fmt.Errorf("%w: %q", ErrUnsafeEntry, f.Name)
		}
		target := filepath.Join(destDir, filepath.FromSlash(f.Name))
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := extractFile(f, target); err != nil {
			return fmt.Errorf("extract %s: %w", f.Name, err)
		}
	}
	return nil
}

// ExtractFresh removes destDir and then extracts archivePath into it.
func ExtractFresh(archivePath, destDir string) error {
	if err := os.RemoveAll(destDir); err != nil {
		return fmt.Errorf("remove stale tree %s: %w", destDir, err)
	}
	return Extract(archivePath, destDir)
}

func extractFile(file *zip.File, destPath string) (err error) {
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	destFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := destFile.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	//nolint:gosec // G110: archives come from the SDK tools of this build
	_, err = io.Copy(destFile, rc)
	return err
}

// Names lists the entry names of archivePath in central directory order.
func Names(archivePath string) ([]string, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = zr.Close() }()

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names, nil
}
