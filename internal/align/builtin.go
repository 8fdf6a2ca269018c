// SPDX-License-Identifier: MPL-2.0

package align

import (
	"archive/zip"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/invowk/nativepack/internal/artifact"
)

const (
	extraIDAlignment uint16 = 0xD935
	extraIDZip64     uint16 = 0x0001

	localHeaderLen      = 30
	alignmentExtraMin   = 6
	dataDescriptorFlag  = 0x8
	extraFieldHeaderLen = 4
)

// BuiltinAligner aligns archives without external tools. Every entry,
// stored or deflated, gets its data offset padded to the boundary, which is
// a superset of what zipalign guarantees. The output depends only on the
// entry contents, so aligning an aligned archive reproduces it byte for byte.
type BuiltinAligner struct {
	// Alignment is the byte boundary. Zero means DefaultAlignment.
	Alignment int
}

// Align implements Aligner.
func (a BuiltinAligner) Align(ctx context.Context, in, out string) (artifact.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return artifact.Artifact{}, err
	}

	alignment := a.Alignment
	if alignment <= 0 {
		alignment = DefaultAlignment
	}

	err := replaceFile(out, func(tmp string) (err error) {
		f, err := os.Create(tmp)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()
		return rewrite(in, f, alignment)
	})
	if err != nil {
		return artifact.Artifact{}, &Failure{Input: in, Err: err}
	}
	return artifact.New(out, artifact.TagAligned), nil
}

// rewrite copies every entry of in to w without recompressing, inserting an
// alignment extra field so that each entry's data starts on the boundary.
func rewrite(in string, w io.Writer, alignment int) (err error) {
	zr, err := zip.OpenReader(in)
	if err != nil {
		return fmt.Errorf("read archive: %w", err)
	}
	defer func() {
		if closeErr := zr.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)

	for _, f := range zr.File {
		fh := f.FileHeader
		// Sizes and CRC go in the local header so the header length is fixed.
		fh.Flags &^= dataDescriptorFlag

		// The writer buffers; flush so the count is the local header offset.
		if err := zw.Flush(); err != nil {
			return err
		}
		extra := stripExtra(fh.Extra, extraIDAlignment, extraIDZip64)
		dataStart := cw.n + localHeaderLen + int64(len(fh.Name)) + int64(len(extra))
		fh.Extra = append(extra, alignmentExtra(dataStart, alignment)...)

		if err := copyRaw(zw, f, &fh); err != nil {
			return fmt.Errorf("copy %s: %w", f.Name, err)
		}
	}

	if err := zw.SetComment(zr.Comment); err != nil {
		return err
	}
	return zw.Close()
}

func copyRaw(zw *zip.Writer, f *zip.File, fh *zip.FileHeader) error {
	src, err := f.OpenRaw()
	if err != nil {
		return err
	}
	dst, err := zw.CreateRaw(fh)
	if err != nil {
		return err
	}
	n, err := io.Copy(dst, src)
	if err != nil {
		return err
	}
	if uint64(n) != f.CompressedSize64 {
		return errors.New("truncated entry data")
	}
	return nil
}

// stripExtra returns a new slice holding the extra fields of extra whose
// IDs are not in drop. Malformed trailing bytes are discarded.
func stripExtra(extra []byte, drop ...uint16) []byte {
	out := make([]byte, 0, len(extra))
	for len(extra) >= extraFieldHeaderLen {
		id := binary.LittleEndian.Uint16(extra[0:2])
		size := int(binary.LittleEndian.Uint16(extra[2:4]))
		if extraFieldHeaderLen+size > len(extra) {
			break
		}
		field := extra[:extraFieldHeaderLen+size]
		extra = extra[extraFieldHeaderLen+size:]

		keep := true
		for _, d := range drop {
			if id == d {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, field...)
		}
	}
	return out
}

// alignmentExtra builds the 0xD935 extra field that moves dataStart onto the
// next multiple of alignment. Its payload is the alignment value followed by
// zero padding.
func alignmentExtra(dataStart int64, alignment int) []byte {
	base := dataStart + alignmentExtraMin
	pad := (int64(alignment) - base%int64(alignment)) % int64(alignment)

	field := make([]byte, alignmentExtraMin+pad)
	binary.LittleEndian.PutUint16(field[0:2], extraIDAlignment)
	binary.LittleEndian.PutUint16(field[2:4], uint16(2+pad))
	binary.LittleEndian.PutUint16(field[4:6], uint16(alignment))
	return field
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
