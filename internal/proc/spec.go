// SPDX-License-Identifier: MPL-2.0

package proc

import (
	"strconv"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

const redactedSecret = "pass:****"

type (
	// CommandSpec is an immutable description of one external tool invocation.
	CommandSpec struct {
		// Tool is the short tool name used in diagnostics and by test fakes (e.g. "aapt2").
		Tool string
		// Path is the executable to run.
		Path string
		// Args are the arguments passed after Path.
		Args []string
		// Dir is the working directory. Empty means the current directory.
		Dir string
		// Env holds extra KEY=VALUE pairs appended to the inherited environment.
		Env []string
	}

	// Tool is a resolved SDK executable. Prefix holds leading arguments that
	// every invocation needs, e.g. "-jar bundletool.jar" when the tool is a jar
	// launched through java.
	Tool struct {
		Name   string
		Path   string
		Prefix []string
	}
)

// Command returns the CommandSpec that runs the tool with args.
func (t Tool) Command(args ...string) CommandSpec {
	full := make([]string, 0, len(t.Prefix)+len(args))
	full = append(full, t.Prefix...)
	full = append(full, args...)
	return CommandSpec{Tool: t.Name, Path: t.Path, Args: full}
}

// IsZero reports whether the tool was never resolved.
func (t Tool) IsZero() bool {
	return t.Path == ""
}

// WithDir returns a copy of the spec that runs in dir.
func (s CommandSpec) WithDir(dir string) CommandSpec {
	s.Dir = dir
	s.Args = append([]string(nil), s.Args...)
	return s
}

// WithEnv returns a copy of the spec with env appended.
func (s CommandSpec) WithEnv(env ...string) CommandSpec {
	s.Env = append(append([]string(nil), s.Env...), env...)
	s.Args = append([]string(nil), s.Args...)
	return s
}

// CommandLine renders the invocation as a shell-quoted line for diagnostics.
// Password arguments of the form "pass:SECRET" are masked.
func (s CommandSpec) CommandLine() string {
	parts := make([]string, 0, len(s.Args)+1)
	parts = append(parts, quote(s.Path))
	for _, arg := range s.Args {
		if strings.HasPrefix(arg, "pass:") {
			arg = redactedSecret
		}
		parts = append(parts, quote(arg))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	q, err := syntax.Quote(s, syntax.LangPOSIX)
	if err != nil {
		return strconv.Quote(s)
	}
	return q
}
