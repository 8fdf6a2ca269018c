// SPDX-License-Identifier: MPL-2.0

// Package benchmark provides benchmarks for PGO profile generation.
// They cover the in-process hot paths of a build:
//   - CUE and TOML project parsing against the project schema
//   - configuration loading
//   - manifest generation and encoding
//   - builtin archive alignment and alignment verification
//
// To generate a profile, run:
//
//	go test -run '^$' -bench . -cpuprofile default.pgo ./internal/benchmark
package benchmark
