// SPDX-License-Identifier: MPL-2.0

package sign

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DebugKeyAlias is the alias of the generated debug key.
	DebugKeyAlias = "androiddebugkey"
	// DebugKeyPassword unlocks both the debug keystore and its key.
	DebugKeyPassword = "android"
	// DebugKeyDName is the fixed distinguished name of the debug certificate.
	DebugKeyDName = "CN=Android Debug,O=Android,C=US"
)

// Key references a keystore credential.
type Key struct {
	// Path is the keystore file. For a debug key it is filled in by KeyStore.
	Path string
	// Password unlocks the keystore.
	Password string
	// KeyPassword unlocks the key entry when it differs from Password.
	KeyPassword string
	// Alias selects the key entry.
	Alias string
	// Debug marks the auto-generated debug key.
	Debug bool
}

// DebugKey returns the sentinel asking the signing stage to use (and create
// if absent) the debug key.
func DebugKey() Key {
	return Key{Debug: true, Alias: DebugKeyAlias, Password: DebugKeyPassword}
}

// DefaultDebugKeyPath returns ~/.android/debug.keystore, the location the
// Android SDK tools share.
func DefaultDebugKeyPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".android", "debug.keystore"), nil
}

// Validate checks a user-supplied key. The keystore must exist and be
// readable; failures are reported as KindKeyUnavailable.
func (k Key) Validate() error {
	if k.Debug {
		return nil
	}
	var problem error
	switch {
	case k.Path == "":
		problem = errors.New("keystore path is empty")
	case k.Alias == "":
		problem = errors.New("key alias is empty")
	case k.Password == "":
		problem = errors.New("keystore password is empty")
	default:
		f, err := os.Open(k.Path)
		if err != nil {
			problem = err
			break
		}
		info, err := f.Stat()
		_ = f.Close()
		switch {
		case err != nil:
			problem = err
		case info.IsDir():
			problem = errors.New("keystore path is a directory")
		}
	}
	if problem != nil {
		return &Failure{Kind: KindKeyUnavailable, Key: k.Path, Err: problem}
	}
	return nil
}
