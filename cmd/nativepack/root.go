// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// NewRootCommand builds the nativepack command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nativepack",
		Short: "Package native libraries into Android APKs and App Bundles",
		Long: TitleStyle.Render("nativepack") + SubtitleStyle.Render(" - Package native libraries into Android APKs and App Bundles") + `

nativepack turns compiled shared libraries plus a small project file into a
signed, installable APK or an Android App Bundle by driving aapt2, zipalign,
apksigner and bundletool from the Android SDK.

Projects are described in 'nativepack.cue' (or 'nativepack.toml') next to
the sources.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Write nativepack.cue with package_id, version and targets
  2. List your prebuilt .so files under libraries.paths
  3. Run: nativepack build

` + SubtitleStyle.Render("Examples:") + `
  nativepack build                    Build the project in the current directory
  nativepack build --format bundle    Build an .aab instead of an .apk
  nativepack sdk                      Show the resolved Android toolchain
  nativepack verify-align app.apk     Check stored entries are 4-byte aligned
  nativepack config show              Show current configuration`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.flags.configPath, "config", "", "config file (default is $HOME/.config/nativepack/config.cue)")

	rootCmd.AddCommand(
		newBuildCommand(app),
		newAlignCommand(app),
		newVerifyAlignCommand(app),
		newDebugKeyCommand(app),
		newSDKCommand(app),
		newConfigCommand(app),
		newVersionCommand(app),
	)
	return rootCmd
}

// Execute runs the CLI. This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	rootCmd := NewRootCommand(app)

	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithCommit(Commit),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			app.reportError(w, err)
		}),
	)
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(int(exitFailure))
	}
}
