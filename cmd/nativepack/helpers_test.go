// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"os/exec"
	"slices"
	"testing"

	"github.com/invowk/nativepack/internal/proc"
	"github.com/invowk/nativepack/internal/proc/proctest"
)

// testApp is an App wired to buffers, a recording runner and a fixed
// environment.
type testApp struct {
	*App
	rec    *proctest.Recorder
	env    map[string]string
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	ta := &testApp{
		rec:    proctest.NewRecorder(),
		env:    map[string]string{},
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
	ta.App = NewApp(Dependencies{
		Runner:    ta.rec,
		Getenv:    func(key string) string { return ta.env[key] },
		LookPath:  func(string) (string, error) { return "", exec.ErrNotFound },
		ConfigDir: t.TempDir(),
		Stdout:    ta.stdout,
		Stderr:    ta.stderr,
	})
	return ta
}

// run executes the command tree with args, without fang's error rendering.
func (ta *testApp) run(args ...string) error {
	root := NewRootCommand(ta.App)
	root.SetArgs(args)
	root.SetOut(ta.stdout)
	root.SetErr(ta.stderr)
	return root.ExecuteContext(context.Background())
}

// fakeAAPT2Link writes a minimal linked archive for `aapt2 link`.
func fakeAAPT2Link(_ context.Context, spec proc.CommandSpec) ([]byte, error) {
	if spec.Args[0] != "link" {
		return nil, nil
	}
	manifestXML, err := os.ReadFile(proctest.ArgValue(spec.Args, "--manifest"))
	if err != nil {
		return nil, err
	}
	return nil, writeTestZip(proctest.ArgValue(spec.Args, "-o"), map[string][]byte{
		"AndroidManifest.xml": manifestXML,
		"resources.arsc":      []byte("table"),
	}, zip.Deflate)
}

func fakeKeytool(_ context.Context, spec proc.CommandSpec) ([]byte, error) {
	return nil, os.WriteFile(proctest.ArgValue(spec.Args, "-keystore"), []byte("keystore"), 0o600)
}

// writeTestZip writes entries in name order using method.
func writeTestZip(path string, entries map[string][]byte, method uint16) (err error) {
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
	for _, name := range sortedKeys(entries) {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
		if err != nil {
			return err
		}
		if _, err := w.Write(entries[name]); err != nil {
			return err
		}
	}
	return zw.Close()
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
