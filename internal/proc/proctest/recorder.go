// SPDX-License-Identifier: MPL-2.0

// Package proctest provides an in-process proc.Runner for tests. Handlers
// registered per tool name simulate the side effects of SDK tools so stage
// and pipeline tests can run without an Android SDK.
package proctest

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/invowk/nativepack/internal/proc"
	"github.com/invowk/nativepack/pkg/types"
)

type (
	// HandlerFunc simulates one tool invocation.
	HandlerFunc func(ctx context.Context, spec proc.CommandSpec) ([]byte, error)

	// Recorder is a proc.Runner that records every CommandSpec it receives.
	// It is safe for concurrent use.
	Recorder struct {
		mu       sync.Mutex
		specs    []proc.CommandSpec
		handlers map[string]HandlerFunc
	}
)

// NewRecorder creates a Recorder where every tool succeeds with no output
// until a handler is registered.
func NewRecorder() *Recorder {
	return &Recorder{handlers: make(map[string]HandlerFunc)}
}

// Handle registers fn for invocations whose Tool equals tool.
func (r *Recorder) Handle(tool string, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[tool] = fn
}

// FailWith registers a handler that makes tool exit with code and output.
func (r *Recorder) FailWith(tool string, code types.ExitCode, output string) {
	r.Handle(tool, func(_ context.Context, spec proc.CommandSpec) ([]byte, error) {
		return []byte(output), &proc.ExternalToolFailure{
			Tool:        spec.Tool,
			CommandLine: spec.CommandLine(),
			Args:        spec.Args,
			Output:      []byte(output),
			ExitCode:    code,
		}
	})
}

// Run implements proc.Runner.
func (r *Recorder) Run(ctx context.Context, spec proc.CommandSpec) (proc.Output, error) {
	r.mu.Lock()
	r.specs = append(r.specs, spec)
	handler := r.handlers[spec.Tool]
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return proc.Output{}, err
	}
	if handler == nil {
		return proc.Output{}, nil
	}
	out, err := handler(ctx, spec)
	return proc.Output{Combined: out}, err
}

// Specs returns a copy of every recorded invocation, in call order.
func (r *Recorder) Specs() []proc.CommandSpec {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.specs)
}

// SpecsFor returns the recorded invocations of tool.
func (r *Recorder) SpecsFor(tool string) []proc.CommandSpec {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []proc.CommandSpec
	for _, s := range r.specs {
		if s.Tool == tool {
			out = append(out, s)
		}
	}
	return out
}

// Last returns the most recent invocation of tool and whether one exists.
func (r *Recorder) Last(tool string) (proc.CommandSpec, bool) {
	specs := r.SpecsFor(tool)
	if len(specs) == 0 {
		return proc.CommandSpec{}, false
	}
	return specs[len(specs)-1], true
}

// Tools returns the tool names in invocation order.
func (r *Recorder) Tools() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.specs))
	for _, s := range r.specs {
		names = append(names, s.Tool)
	}
	return names
}

// HasArg reports whether args contains arg.
func HasArg(args []string, arg string) bool {
	return slices.Contains(args, arg)
}

// HasArgPair reports whether args contains flag immediately followed by value.
func HasArgPair(args []string, flag, value string) bool {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

// ArgValue returns the value of flag given either as "flag value" or
// "flag=value", or "" if flag is absent.
func ArgValue(args []string, flag string) string {
	for i, arg := range args {
		if v, ok := strings.CutPrefix(arg, flag+"="); ok {
			return v
		}
		if arg == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}
