// SPDX-License-Identifier: MPL-2.0

package pipeline

import "path/filepath"

// layout names the intermediates of one build under its build directory.
type layout string

func (l layout) manifestDir() string { return filepath.Join(string(l), "manifest") }
func (l layout) compiledDir() string { return filepath.Join(string(l), "res-compiled") }
func (l layout) linked() string      { return filepath.Join(string(l), "linked.intermediate") }
func (l layout) tree() string        { return filepath.Join(string(l), "apk-tree") }
func (l layout) unaligned() string   { return filepath.Join(string(l), "unaligned.intermediate") }
func (l layout) aligned() string     { return filepath.Join(string(l), "aligned.intermediate") }
func (l layout) bundleDir() string   { return filepath.Join(string(l), "bundle") }
func (l layout) nativeDir() string   { return filepath.Join(string(l), "native") }

// module returns the layout of a bundle module built inside l.
func (l layout) module(name string) layout {
	return layout(filepath.Join(string(l), "modules", name))
}
