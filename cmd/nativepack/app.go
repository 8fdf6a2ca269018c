// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/charmbracelet/log"

	"github.com/invowk/nativepack/internal/config"
	"github.com/invowk/nativepack/internal/issue"
	"github.com/invowk/nativepack/internal/proc"
	"github.com/invowk/nativepack/internal/sdk"
	"github.com/invowk/nativepack/pkg/types"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives the App and reaches the outside world only through it.
	App struct {
		Config   config.Provider
		Runner   proc.Runner
		Getenv   func(string) string
		LookPath func(string) (string, error)
		// ConfigDir replaces the platform config directory when set.
		ConfigDir string
		stdout    io.Writer
		stderr    io.Writer

		flags       globalFlags
		colorScheme config.ColorScheme
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp; a nil Runner
	// becomes a proc.ExecRunner logging through the CLI logger.
	Dependencies struct {
		Config    config.Provider
		Runner    proc.Runner
		Getenv    func(string) string
		LookPath  func(string) (string, error)
		ConfigDir string
		Stdout    io.Writer
		Stderr    io.Writer
	}

	// globalFlags holds the persistent flags of one command tree.
	globalFlags struct {
		verbose    bool
		configPath string
	}

	// session is the per-invocation state shared by command handlers.
	session struct {
		cfg     *config.Config
		cfgPath string
		logger  *log.Logger
		runner  proc.Runner
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Getenv == nil {
		deps.Getenv = os.Getenv
	}
	if deps.LookPath == nil {
		deps.LookPath = exec.LookPath
	}
	return &App{
		Config:    deps.Config,
		Runner:    deps.Runner,
		Getenv:    deps.Getenv,
		LookPath:  deps.LookPath,
		ConfigDir: deps.ConfigDir,
		stdout:    deps.Stdout,
		stderr:    deps.Stderr,
	}
}

// open loads configuration and builds the logger and runner for one command.
// The ui.verbose setting turns on verbose output when --verbose was not given.
func (a *App) open(ctx context.Context) (*session, error) {
	loaded, err := a.Config.LoadWithSource(ctx, a.loadOptions())
	if err != nil {
		return nil, newServiceError(err, issue.ConfigLoadFailedId)
	}
	if loaded.Config.UI.Verbose {
		a.flags.verbose = true
	}
	a.colorScheme = loaded.Config.UI.ColorScheme

	logger := newLogger(a.stderr, a.flags.verbose)
	runner := a.Runner
	if runner == nil {
		runner = proc.NewExecRunner(proc.WithLogger(logger))
	}
	return &session{cfg: loaded.Config, cfgPath: loaded.Path, logger: logger, runner: runner}, nil
}

func (a *App) loadOptions() config.LoadOptions {
	return config.LoadOptions{
		ConfigFilePath: types.FilesystemPath(a.flags.configPath),
		ConfigDirPath:  types.FilesystemPath(a.ConfigDir),
		Getenv:         a.Getenv,
	}
}

// sdkOptions merges the configured SDK locations with the App's environment.
func (a *App) sdkOptions(cfg *config.Config) sdk.Options {
	opts := cfg.SDKOptions()
	opts.Getenv = a.Getenv
	opts.LookPath = a.LookPath
	return opts
}

// newLogger returns the CLI logger: info level normally, debug with --verbose.
func newLogger(w io.Writer, verbose bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{Prefix: config.AppName})
	if verbose {
		logger.SetLevel(log.DebugLevel)
		logger.SetReportTimestamp(true)
	}
	return logger
}
