// SPDX-License-Identifier: MPL-2.0

// Package sign signs aligned archives with apksigner and manages the debug
// signing key.
//
// The debug key is the one resource shared by concurrent builds. KeyStore
// owns it explicitly: callers hold a KeyStore handle and ask it to ensure the
// key at a path exists. Creation is guarded by a per-path mutex within the
// process, an flock on "<path>.lock" across processes (Linux), and an atomic
// hard-link publish, so concurrent first-time builds produce exactly one key
// file.
package sign
