// SPDX-License-Identifier: MPL-2.0

package proc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"time"

	"github.com/charmbracelet/log"

	"github.com/invowk/nativepack/pkg/types"
)

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// Output is the captured result of a successful invocation.
	Output struct {
		// Combined holds interleaved stdout and stderr.
		Combined []byte
		// Duration is the wall time the tool ran for.
		Duration time.Duration
	}

	// Runner executes a CommandSpec.
	Runner interface {
		Run(ctx context.Context, spec CommandSpec) (Output, error)
	}

	// Option configures an ExecRunner.
	Option func(*ExecRunner)

	// ExecRunner runs commands as child processes via os/exec.
	ExecRunner struct {
		execCommand ExecCommandFunc
		logger      *log.Logger
	}
)

// NewExecRunner creates an ExecRunner.
func NewExecRunner(opts ...Option) *ExecRunner {
	r := &ExecRunner{
		execCommand: exec.CommandContext,
		logger:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) Option {
	return func(r *ExecRunner) {
		r.execCommand = fn
	}
}

// WithLogger sets the logger used for per-invocation debug output.
func WithLogger(logger *log.Logger) Option {
	return func(r *ExecRunner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Run executes spec and waits for it to exit. Cancelling ctx kills the
// process; the returned error then wraps ctx.Err() rather than reporting a
// tool failure.
func (r *ExecRunner) Run(ctx context.Context, spec CommandSpec) (Output, error) {
	cmd := r.execCommand(ctx, spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}

	r.logger.Debug("running tool", "tool", spec.Tool, "cmd", spec.CommandLine())

	start := time.Now()
	out, err := cmd.CombinedOutput()
	elapsed := time.Since(start)
	if err == nil {
		r.logger.Debug("tool finished", "tool", spec.Tool, "duration", elapsed)
		return Output{Combined: out, Duration: elapsed}, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return Output{Combined: out, Duration: elapsed}, fmt.Errorf("%s interrupted: %w", spec.Tool, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Output{Combined: out, Duration: elapsed}, &ExternalToolFailure{
			Tool:        spec.Tool,
			CommandLine: spec.CommandLine(),
			Args:        append([]string(nil), spec.Args...),
			Output:      out,
			ExitCode:    exitCodeOf(exitErr),
		}
	}

	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return Output{}, &ToolNotFoundError{Tool: spec.Tool, Path: spec.Path, Err: err}
	}

	return Output{Combined: out, Duration: elapsed}, fmt.Errorf("start %s: %w", spec.Tool, err)
}

// exitCodeOf maps a process exit to an ExitCode; a process killed by a
// signal reports ExitCodeSignaled.
func exitCodeOf(exitErr *exec.ExitError) types.ExitCode {
	code := exitErr.ExitCode()
	if code < 0 {
		return types.ExitCodeSignaled
	}
	return types.ExitCode(code)
}
