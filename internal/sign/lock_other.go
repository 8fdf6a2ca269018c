// SPDX-License-Identifier: MPL-2.0

//go:build !linux

package sign

import "errors"

// errFlockUnavailable is returned where no flock is used; the per-path
// mutex and the atomic link publish still apply.
var errFlockUnavailable = errors.New("flock not available on this platform")

// acquireFileLock always fails on non-Linux platforms.
func acquireFileLock(string) (*fileLock, error) {
	return nil, errFlockUnavailable
}

// fileLock is the non-Linux stub. Release is a no-op.
type fileLock struct{}

// Release is a no-op on non-Linux platforms.
func (l *fileLock) Release() {}
