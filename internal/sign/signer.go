// SPDX-License-Identifier: MPL-2.0

package sign

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/invowk/nativepack/internal/artifact"
	"github.com/invowk/nativepack/internal/proc"
)

// keyFailureMarkers are apksigner/JCA messages that mean the keystore could
// not be loaded or unlocked, as opposed to the archive being rejected.
var keyFailureMarkers = []string{
	"Failed to load signer",
	"Keystore was tampered with",
	"password was incorrect",
	"KeyStoreException",
	"FileNotFoundException",
	"No key with alias",
}

// Signer signs archives in place with apksigner.
type Signer struct {
	Runner    proc.Runner
	APKSigner proc.Tool
	// KeyStore provides the debug key. Required when signing with DebugKey().
	KeyStore *KeyStore
	// DebugKeyPath is where the debug key lives.
	DebugKeyPath string
	// MinSDK is passed to apksigner to select signature schemes; zero omits it.
	MinSDK int
}

// SignArgs returns the apksigner arguments that sign archive with key.
func SignArgs(archive string, key Key, minSDK int) []string {
	args := []string{
		"sign",
		"--ks", key.Path,
		"--ks-pass", "pass:" + key.Password,
		"--ks-key-alias", key.Alias,
	}
	if key.KeyPassword != "" {
		args = append(args, "--key-pass", "pass:"+key.KeyPassword)
	}
	if minSDK > 0 {
		args = append(args, "--min-sdk-version", strconv.Itoa(minSDK))
	}
	return append(args, archive)
}

// Sign signs archive in place; the returned artifact has the same path.
// With the debug sentinel the key is created if absent, and a debug keystore
// that fails to load is regenerated once before giving up.
func (s Signer) Sign(ctx context.Context, archive string, key Key) (artifact.Artifact, error) {
	key, err := s.resolve(ctx, key)
	if err != nil {
		return artifact.Artifact{}, err
	}

	err = s.run(ctx, archive, key)
	var failure *Failure
	if key.Debug && errors.As(err, &failure) && failure.Recoverable() {
		if key, err = s.KeyStore.RegenerateDebugKey(ctx, key.Path); err != nil {
			return artifact.Artifact{}, err
		}
		err = s.run(ctx, archive, key)
	}
	if err != nil {
		return artifact.Artifact{}, err
	}
	return artifact.New(archive, artifact.TagSigned), nil
}

func (s Signer) resolve(ctx context.Context, key Key) (Key, error) {
	if !key.Debug {
		return key, key.Validate()
	}
	if s.KeyStore == nil {
		return Key{}, &Failure{Kind: KindKeyUnavailable, Key: s.DebugKeyPath, Err: errors.New("no key store configured for debug signing")}
	}
	path := s.DebugKeyPath
	if path == "" {
		var err error
		if path, err = DefaultDebugKeyPath(); err != nil {
			return Key{}, &Failure{Kind: KindKeyUnavailable, Err: err}
		}
	}
	return s.KeyStore.EnsureDebugKey(ctx, path)
}

func (s Signer) run(ctx context.Context, archive string, key Key) error {
	_, err := s.Runner.Run(ctx, s.APKSigner.Command(SignArgs(archive, key, s.MinSDK)...))
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	kind := KindRejected
	var toolErr *proc.ExternalToolFailure
	if errors.As(err, &toolErr) && isKeyFailure(string(toolErr.Output)) {
		kind = KindKeyUnavailable
	}
	return &Failure{Kind: kind, Archive: archive, Key: key.Path, Err: err}
}

func isKeyFailure(output string) bool {
	for _, marker := range keyFailureMarkers {
		if strings.Contains(output, marker) {
			return true
		}
	}
	return false
}
