// SPDX-License-Identifier: MPL-2.0

//go:build linux

package sign

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// errFlockUnavailable mirrors lock_other.go; on Linux acquireFileLock never
// returns it.
var errFlockUnavailable = errors.New("flock not available on this platform")

// fileLock holds a blocking exclusive flock on "<keystore>.lock". The kernel
// releases it when the descriptor closes, including on process crash.
type fileLock struct {
	file *os.File
}

// acquireFileLock opens (or creates) lockPath and blocks until an exclusive
// flock is held.
func acquireFileLock(lockPath string) (*fileLock, error) {
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", lockPath, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("flock %s: %w", lockPath, err)
	}
	return &fileLock{file: f}, nil
}

// Release unlocks and closes the lock file. Subsequent calls are no-ops.
func (l *fileLock) Release() {
	if l == nil || l.file == nil {
		return
	}
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		slog.Debug("flock unlock failed", "error", err)
	}
	if err := l.file.Close(); err != nil {
		slog.Debug("lock file close failed", "error", err)
	}
	l.file = nil
}
