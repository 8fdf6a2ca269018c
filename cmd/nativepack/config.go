// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/invowk/nativepack/internal/config"
	"github.com/invowk/nativepack/internal/issue"
)

// newConfigCommand creates the `nativepack config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage nativepack configuration",
		Long: `Manage nativepack configuration.

Configuration is stored in:
  - Linux: ~/.config/nativepack/config.cue
  - macOS: ~/Library/Application Support/nativepack/config.cue
  - Windows: %APPDATA%\nativepack\config.cue

Every key can be overridden with an environment variable:
sdk.android_home is NATIVEPACK_SDK_ANDROID_HOME.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath(app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := app.Config.LoadWithSource(cmd.Context(), app.loadOptions())
			if err != nil {
				return newServiceError(err, issue.ConfigLoadFailedId)
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(loaded.Config))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	s, err := app.open(ctx)
	if err != nil {
		return err
	}
	cfg := s.cfg

	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	unset := SubtitleStyle.Render("(unset)")
	show := func(key, value string) {
		if value == "" {
			fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render(key), unset)
			return
		}
		fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render(key), valueStyle.Render(value))
	}

	fmt.Fprintln(app.stdout, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(app.stdout)
	if s.cfgPath != "" {
		fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("Config file"), s.cfgPath)
	} else {
		fmt.Fprintf(app.stdout, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(app.stdout)

	show("sdk.android_home", string(cfg.SDK.AndroidHome))
	show("sdk.build_tools", string(cfg.SDK.BuildTools))
	show("sdk.platform", string(cfg.SDK.Platform))
	show("sdk.bundletool", string(cfg.SDK.Bundletool))
	show("sdk.java_home", string(cfg.SDK.JavaHome))
	show("signing.debug_keystore", string(cfg.Signing.DebugKeystore))
	show("build.jobs", fmt.Sprintf("%d", cfg.Build.Jobs))
	show("build.align_engine", string(cfg.Build.AlignEngine))
	show("ui.color_scheme", string(cfg.UI.ColorScheme))
	show("ui.verbose", fmt.Sprintf("%v", cfg.UI.Verbose))
	return nil
}

func initConfig(app *App) error {
	path, created, err := config.CreateDefaultConfig(app.ConfigDir)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("create default configuration").
			WithSuggestion("Check that the configuration directory is writable").
			Wrap(err).
			BuildError()
	}
	if !created {
		fmt.Fprintf(app.stdout, "%s %s\n", WarningStyle.Render("Config file already exists:"), path)
		return nil
	}
	fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("Created config file:"), path)
	return nil
}

func showConfigPath(app *App) error {
	if app.flags.configPath != "" {
		fmt.Fprintln(app.stdout, app.flags.configPath)
		return nil
	}
	dir := app.ConfigDir
	if dir == "" {
		var err error
		if dir, err = config.ConfigDir(); err != nil {
			return err
		}
	}
	fmt.Fprintln(app.stdout, filepath.Join(dir, config.ConfigFileName+"."+config.ConfigFileExt))
	return nil
}
