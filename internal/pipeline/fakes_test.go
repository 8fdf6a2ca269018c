// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/invowk/nativepack/internal/align"
	"github.com/invowk/nativepack/internal/proc"
	"github.com/invowk/nativepack/internal/proc/proctest"
	"github.com/invowk/nativepack/internal/sdk"
	"github.com/invowk/nativepack/internal/sign"
)

// fakeEnv is an SDK made of in-process handlers that reproduce each tool's
// observable effect on the filesystem.
type fakeEnv struct {
	dir string
	rec *proctest.Recorder
	tc  *sdk.Toolchain
}

func newFakeEnv(t *testing.T) *fakeEnv {
	t.Helper()

	dir := t.TempDir()
	env := &fakeEnv{
		dir: dir,
		rec: proctest.NewRecorder(),
		tc: &sdk.Toolchain{
			AndroidJar: filepath.Join(dir, "sdk", "platforms", "android-34", "android.jar"),
			AAPT2:      proc.Tool{Name: "aapt2", Path: "/sdk/build-tools/34.0.0/aapt2"},
			Zipalign:   proc.Tool{Name: "zipalign", Path: "/sdk/build-tools/34.0.0/zipalign"},
			APKSigner:  proc.Tool{Name: "apksigner", Path: "/sdk/build-tools/34.0.0/apksigner"},
			Keytool:    proc.Tool{Name: "keytool", Path: "/jdk/bin/keytool"},
			Bundletool: proc.Tool{Name: "bundletool", Path: "/jdk/bin/java", Prefix: []string{"-jar", "/opt/bundletool.jar"}},
		},
	}
	env.rec.Handle("aapt2", fakeAAPT2)
	env.rec.Handle("zipalign", fakeZipalign)
	env.rec.Handle("apksigner", fakeAPKSigner)
	env.rec.Handle("keytool", fakeKeytool)
	env.rec.Handle("bundletool", fakeBundletool)
	return env
}

func (e *fakeEnv) pipeline(opts ...Option) *Pipeline {
	opts = append([]Option{WithDebugKeyPath(filepath.Join(e.dir, "home", ".android", "debug.keystore"))}, opts...)
	return New(Deps{
		Runner:    e.rec,
		Toolchain: e.tc,
		KeyStore:  sign.NewKeyStore(e.rec, e.tc.Keytool),
	}, opts...)
}

// library writes a fake shared library and returns its path.
func (e *fakeEnv) library(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(e.dir, "native", name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("\x7fELF"+name), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// resources writes a res/ and assets/ tree and returns their directories.
func (e *fakeEnv) resources(t *testing.T, module string) (resDir, assetsDir string) {
	t.Helper()
	root := filepath.Join(e.dir, "project", module)
	for rel, body := range map[string]string{
		"res/values/strings.xml":   `<resources><string name="app_name">Test</string></resources>`,
		"res/drawable/icon.png":    "png",
		"assets/levels/level1.dat": "level",
	} {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return filepath.Join(root, "res"), filepath.Join(root, "assets")
}

func fakeAAPT2(_ context.Context, spec proc.CommandSpec) ([]byte, error) {
	out := proctest.ArgValue(spec.Args, "-o")
	switch spec.Args[0] {
	case "compile":
		src := spec.Args[len(spec.Args)-1]
		name := filepath.Base(filepath.Dir(src)) + "_" + filepath.Base(src) + ".flat"
		return nil, os.WriteFile(filepath.Join(out, name), []byte("flat:"+src), 0o644)
	case "link":
		return nil, fakeLink(spec.Args, out)
	}
	return nil, fmt.Errorf("unexpected aapt2 command %q", spec.Args[0])
}

// fakeLink writes an archive holding the manifest, a resource table in the
// requested format, one res/ entry per .flat input and the assets.
func fakeLink(args []string, out string) error {
	manifestXML, err := os.ReadFile(proctest.ArgValue(args, "--manifest"))
	if err != nil {
		return err
	}
	entries := map[string][]byte{"AndroidManifest.xml": manifestXML}
	if proctest.HasArg(args, "--proto-format") {
		entries["resources.pb"] = []byte("proto table")
	} else {
		entries["resources.arsc"] = []byte("binary table")
	}
	for _, a := range args {
		if strings.HasSuffix(a, ".flat") {
			typ, file, _ := strings.Cut(strings.TrimSuffix(filepath.Base(a), ".flat"), "_")
			entries["res/"+typ+"/"+file] = []byte("compiled")
		}
	}
	if assets := proctest.ArgValue(args, "-A"); assets != "" {
		err := filepath.WalkDir(assets, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			rel, err := filepath.Rel(assets, path)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			entries["assets/"+filepath.ToSlash(rel)] = data
			return err
		})
		if err != nil {
			return err
		}
	}
	return writeZip(out, entries, nil)
}

func fakeZipalign(ctx context.Context, spec proc.CommandSpec) ([]byte, error) {
	n := len(spec.Args)
	_, err := align.BuiltinAligner{}.Align(ctx, spec.Args[n-2], spec.Args[n-1])
	return nil, err
}

// fakeAPKSigner adds v1 signature files and realigns, as apksigner keeps
// zipalign's alignment.
func fakeAPKSigner(ctx context.Context, spec proc.CommandSpec) ([]byte, error) {
	ks := proctest.ArgValue(spec.Args, "--ks")
	if _, err := os.Stat(ks); err != nil {
		out := "Failed to load signer \"signer #1\"\njava.io.IOException: Keystore was tampered with, or password was incorrect"
		return []byte(out), &proc.ExternalToolFailure{Tool: "apksigner", Output: []byte(out), ExitCode: 1}
	}
	archive := spec.Args[len(spec.Args)-1]
	extra := map[string][]byte{
		"META-INF/MANIFEST.MF": []byte("Manifest-Version: 1.0\n"),
		"META-INF/CERT.SF":     []byte("Signature-Version: 1.0\n"),
		"META-INF/CERT.RSA":    []byte("pkcs7"),
	}
	if err := appendEntries(archive, extra); err != nil {
		return nil, err
	}
	_, err := align.BuiltinAligner{}.Align(ctx, archive, archive)
	return nil, err
}

func fakeKeytool(_ context.Context, spec proc.CommandSpec) ([]byte, error) {
	return nil, os.WriteFile(proctest.ArgValue(spec.Args, "-keystore"), []byte("keystore"), 0o600)
}

// fakeBundletool merges modules into one archive with entries prefixed by
// module name, refusing to overwrite like the real tool.
func fakeBundletool(_ context.Context, spec proc.CommandSpec) ([]byte, error) {
	out := proctest.ArgValue(spec.Args, "--output")
	if _, err := os.Stat(out); err == nil {
		msg := "File '" + out + "' already exists."
		return []byte(msg), &proc.ExternalToolFailure{Tool: "bundletool", Output: []byte(msg), ExitCode: 1}
	}
	entries := map[string][]byte{"BundleConfig.pb": []byte("config")}
	for _, mod := range strings.Split(proctest.ArgValue(spec.Args, "--modules"), ",") {
		name := strings.TrimSuffix(filepath.Base(mod), ".zip")
		r, err := zip.OpenReader(mod)
		if err != nil {
			return nil, err
		}
		for _, f := range r.File {
			data, err := readEntry(f)
			if err != nil {
				_ = r.Close()
				return nil, err
			}
			entries[name+"/"+f.Name] = data
		}
		if err := r.Close(); err != nil {
			return nil, err
		}
	}
	return nil, writeZip(out, entries, nil)
}

func writeZip(path string, entries map[string][]byte, keep []*zip.File) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	zw := zip.NewWriter(f)
	for _, kf := range keep {
		if err := zw.Copy(kf); err != nil {
			return err
		}
	}
	for name, data := range entries {
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return zw.Close()
}

func appendEntries(path string, extra map[string][]byte) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return err
	}
	tmp := path + ".signing"
	err = writeZip(tmp, extra, r.File)
	if closeErr := r.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.Join(err, os.Remove(tmp))
	}
	return os.Rename(tmp, path)
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// archiveEntries returns the entry names of the zip at path with their data offsets.
func archiveEntries(t *testing.T, path string) map[string]int64 {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer func() { _ = r.Close() }()
	out := make(map[string]int64, len(r.File))
	for _, f := range r.File {
		off, err := f.DataOffset()
		if err != nil {
			t.Fatalf("%s: data offset: %v", f.Name, err)
		}
		out[f.Name] = off
	}
	return out
}

// libDirs returns the distinct lib/<abi> directory names of an archive.
func libDirs(entries map[string]int64) []string {
	seen := map[string]bool{}
	var dirs []string
	for name := range entries {
		rest, ok := strings.CutPrefix(name, "lib/")
		if !ok {
			continue
		}
		abi, _, _ := strings.Cut(rest, "/")
		if !seen[abi] {
			seen[abi] = true
			dirs = append(dirs, abi)
		}
	}
	return dirs
}
