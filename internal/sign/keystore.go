// SPDX-License-Identifier: MPL-2.0

package sign

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/invowk/nativepack/internal/proc"
)

type (
	// KeyStore creates and hands out debug keys, keyed by keystore path.
	KeyStore struct {
		runner  proc.Runner
		keytool proc.Tool
		logger  *log.Logger

		mu    sync.Mutex
		locks map[string]*sync.Mutex
	}

	// KeyStoreOption configures a KeyStore.
	KeyStoreOption func(*KeyStore)
)

// NewKeyStore creates a KeyStore that generates keys with keytool.
func NewKeyStore(runner proc.Runner, keytool proc.Tool, opts ...KeyStoreOption) *KeyStore {
	ks := &KeyStore{
		runner:  runner,
		keytool: keytool,
		logger:  log.New(io.Discard),
		locks:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(ks)
	}
	return ks
}

// WithKeyStoreLogger sets the logger used to report key creation.
func WithKeyStoreLogger(logger *log.Logger) KeyStoreOption {
	return func(ks *KeyStore) {
		if logger != nil {
			ks.logger = logger
		}
	}
}

// EnsureDebugKey returns the debug key stored at path, generating it first
// if the file does not exist. An existing file is never touched.
func (ks *KeyStore) EnsureDebugKey(ctx context.Context, path string) (Key, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return Key{}, &Failure{Kind: KindKeyUnavailable, Key: path, Err: err}
	}

	unlock, err := ks.lock(path)
	if err != nil {
		return Key{}, &Failure{Kind: KindKeyUnavailable, Key: path, Err: err}
	}
	defer unlock()

	if err := ks.createIfAbsent(ctx, path); err != nil {
		return Key{}, err
	}
	return debugKeyAt(path), nil
}

// RegenerateDebugKey moves an unusable debug keystore at path aside to
// "<path>.invalid" and generates a fresh one.
func (ks *KeyStore) RegenerateDebugKey(ctx context.Context, path string) (Key, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return Key{}, &Failure{Kind: KindKeyUnavailable, Key: path, Err: err}
	}

	unlock, err := ks.lock(path)
	if err != nil {
		return Key{}, &Failure{Kind: KindKeyUnavailable, Key: path, Err: err}
	}
	defer unlock()

	if err := os.Rename(path, path+".invalid"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Key{}, &Failure{Kind: KindKeyUnavailable, Key: path, Err: fmt.Errorf("move invalid keystore aside: %w", err)}
	}
	ks.logger.Warn("regenerating debug keystore", "path", path)
	if err := ks.createIfAbsent(ctx, path); err != nil {
		return Key{}, err
	}
	return debugKeyAt(path), nil
}

// lock takes the in-process mutex for path and, where supported, the
// cross-process flock. The returned func releases both.
func (ks *KeyStore) lock(path string) (func(), error) {
	ks.mu.Lock()
	m, ok := ks.locks[path]
	if !ok {
		m = &sync.Mutex{}
		ks.locks[path] = m
	}
	ks.mu.Unlock()

	m.Lock()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		m.Unlock()
		return nil, fmt.Errorf("create keystore directory: %w", err)
	}
	fl, err := acquireFileLock(path + ".lock")
	if err != nil && !errors.Is(err, errFlockUnavailable) {
		m.Unlock()
		return nil, err
	}
	return func() {
		fl.Release()
		m.Unlock()
	}, nil
}

// createIfAbsent generates a keystore in a private temp directory beside
// path and publishes it with os.Link, which fails rather than overwrites if
// another writer got there first.
func (ks *KeyStore) createIfAbsent(ctx context.Context, path string) (err error) {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return &Failure{Kind: KindKeyUnavailable, Key: path, Err: err}
	}
	if ks.keytool.IsZero() {
		return &Failure{Kind: KindKeyUnavailable, Key: path, Err: errors.New("keytool not found; install a JDK or set JAVA_HOME")}
	}

	tmpDir, err := os.MkdirTemp(filepath.Dir(path), ".debug-keystore-*")
	if err != nil {
		return &Failure{Kind: KindKeyUnavailable, Key: path, Err: err}
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			ks.logger.Debug("remove keystore temp dir", "dir", tmpDir, "error", rmErr)
		}
	}()

	tmp := filepath.Join(tmpDir, filepath.Base(path))
	if _, err := ks.runner.Run(ctx, ks.keytool.Command(GenKeyArgs(tmp)...)); err != nil {
		return &Failure{Kind: KindKeyUnavailable, Key: path, Err: fmt.Errorf("generate debug key: %w", err)}
	}
	if err := os.Link(tmp, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		return &Failure{Kind: KindKeyUnavailable, Key: path, Err: fmt.Errorf("publish debug key: %w", err)}
	}
	ks.logger.Info("created debug keystore", "path", path)
	return nil
}

// GenKeyArgs returns the keytool arguments that create the debug keystore at path.
func GenKeyArgs(path string) []string {
	return []string{
		"-genkeypair",
		"-keystore", path,
		"-storepass", DebugKeyPassword,
		"-keypass", DebugKeyPassword,
		"-alias", DebugKeyAlias,
		"-dname", DebugKeyDName,
		"-keyalg", "RSA",
		"-keysize", "2048",
		"-validity", "10000",
		"-noprompt",
	}
}

func debugKeyAt(path string) Key {
	k := DebugKey()
	k.Path = path
	return k
}
