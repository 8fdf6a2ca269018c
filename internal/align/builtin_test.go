// SPDX-License-Identifier: MPL-2.0

package align

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type testEntry struct {
	name   string
	body   string
	method uint16
}

// writeTestArchive writes entries with odd-length names and data descriptors
// so stored data lands on unaligned offsets.
func writeTestArchive(t *testing.T, path string, entries []testEntry) {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: e.method})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(w, e.body); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.SetComment("nativepack test"); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func sampleEntries() []testEntry {
	return []testEntry{
		{name: "AndroidManifest.xml", body: "<manifest package=\"com.test.app\"/>", method: zip.Deflate},
		{name: "resources.arsc", body: "arsc-table-bytes", method: zip.Store},
		{name: "lib/arm64-v8a/libmain.so", body: "\x7fELF-odd", method: zip.Store},
		{name: "res/a.png", body: "png", method: zip.Store},
		{name: "assets/data/", method: zip.Store},
		{name: "assets/data/x.bin", body: strings.Repeat("z", 37), method: zip.Store},
		{name: "classes.dex", body: strings.Repeat("dex", 100), method: zip.Deflate},
	}
}

func assertAllAligned(t *testing.T, path string, alignment int64) {
	t.Helper()

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		off, err := f.DataOffset()
		if err != nil {
			t.Fatal(err)
		}
		if off%alignment != 0 {
			t.Errorf("entry %q data offset %d not %d-aligned", f.Name, off, alignment)
		}
	}
}

func TestBuiltinAligner_AlignsEveryEntry(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "unaligned.intermediate")
	out := filepath.Join(dir, "aligned.intermediate")
	writeTestArchive(t, in, sampleEntries())

	art, err := BuiltinAligner{}.Align(context.Background(), in, out)
	if err != nil {
		t.Fatalf("Align() error = %v", err)
	}
	if art.Path != out || art.Tag != "aligned" {
		t.Errorf("Align() artifact = %+v", art)
	}

	assertAllAligned(t, out, 4)
	if err := Verify(out, 4); err != nil {
		t.Errorf("Verify() error = %v", err)
	}

	// Content and comment survive the rewrite.
	zr, err := zip.OpenReader(out)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	if zr.Comment != "nativepack test" {
		t.Errorf("Comment = %q", zr.Comment)
	}
	want := sampleEntries()
	if len(zr.File) != len(want) {
		t.Fatalf("entry count = %d, want %d", len(zr.File), len(want))
	}
	for i, f := range zr.File {
		if f.Name != want[i].name || f.Method != want[i].method {
			t.Errorf("entry %d = %s/%d, want %s/%d", i, f.Name, f.Method, want[i].name, want[i].method)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		body, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		if string(body) != want[i].body {
			t.Errorf("entry %s body = %q, want %q", f.Name, body, want[i].body)
		}
	}
}

func TestBuiltinAligner_Idempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "in.zip")
	once := filepath.Join(dir, "once.zip")
	twice := filepath.Join(dir, "twice.zip")
	writeTestArchive(t, in, sampleEntries())

	ctx := context.Background()
	if _, err := (BuiltinAligner{}).Align(ctx, in, once); err != nil {
		t.Fatal(err)
	}
	if _, err := (BuiltinAligner{}).Align(ctx, once, twice); err != nil {
		t.Fatal(err)
	}

	a, err := os.ReadFile(once)
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(twice)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("aligning an aligned archive changed its bytes")
	}
}

func TestBuiltinAligner_InPlace(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "app.apk")
	writeTestArchive(t, path, sampleEntries())

	if _, err := (BuiltinAligner{}).Align(context.Background(), path, path); err != nil {
		t.Fatalf("in-place Align() error = %v", err)
	}
	assertAllAligned(t, path, 4)

	leftovers, err := filepath.Glob(filepath.Join(dir, ".app.apk.*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(leftovers) != 0 {
		t.Errorf("temporary files left behind: %v", leftovers)
	}
}

func TestBuiltinAligner_LargerBoundary(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "in.zip")
	writeTestArchive(t, in, sampleEntries())

	out := filepath.Join(dir, "out.zip")
	if _, err := (BuiltinAligner{Alignment: 16}).Align(context.Background(), in, out); err != nil {
		t.Fatal(err)
	}
	assertAllAligned(t, out, 16)
}

func TestBuiltinAligner_CorruptInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "corrupt.zip")
	if err := os.WriteFile(in, []byte("PK\x03\x04 definitely not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out.zip")

	_, err := BuiltinAligner{}.Align(context.Background(), in, out)
	if !errors.Is(err, ErrAlignment) {
		t.Fatalf("expected ErrAlignment, got %v", err)
	}
	var failure *Failure
	if !errors.As(err, &failure) || failure.Input != in {
		t.Errorf("expected *Failure for %s, got %v", in, err)
	}
	if _, statErr := os.Stat(out); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("failed alignment must not leave an output file")
	}
}

func TestStripExtra(t *testing.T) {
	t.Parallel()

	extra := []byte{
		0x35, 0xD9, 0x04, 0x00, 0x04, 0x00, 0x00, 0x00, // alignment, dropped
		0x55, 0x54, 0x01, 0x00, 0x01, // timestamp, kept
		0xFF, // malformed tail, dropped
	}
	got := stripExtra(extra, extraIDAlignment)
	want := []byte{0x55, 0x54, 0x01, 0x00, 0x01}
	if !bytes.Equal(got, want) {
		t.Errorf("stripExtra() = %x, want %x", got, want)
	}
}

func TestAlignmentExtra(t *testing.T) {
	t.Parallel()

	for start := int64(0); start < 12; start++ {
		field := alignmentExtra(start, 4)
		if len(field) < alignmentExtraMin {
			t.Fatalf("field too short: %d", len(field))
		}
		if (start+int64(len(field)))%4 != 0 {
			t.Errorf("start %d: data would begin at %d", start, start+int64(len(field)))
		}
	}
}
