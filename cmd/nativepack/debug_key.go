// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invowk/nativepack/internal/sdk"
	"github.com/invowk/nativepack/internal/sign"
)

func newDebugKeyCommand(app *App) *cobra.Command {
	var (
		path       string
		regenerate bool
	)

	debugKeyCmd := &cobra.Command{
		Use:   "debug-key",
		Short: "Create the shared debug signing key if it does not exist",
		Long: `Create the debug keystore used for unsigned-release builds.

The keystore lives at ~/.android/debug.keystore, shared with the Android SDK
tools, unless signing.debug_keystore or --path says otherwise. An existing
keystore is left untouched; --regenerate moves it aside to <path>.invalid and
creates a fresh one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDebugKey(cmd.Context(), app, path, regenerate)
		},
	}

	debugKeyCmd.Flags().StringVar(&path, "path", "", "keystore path (default from signing.debug_keystore)")
	debugKeyCmd.Flags().BoolVar(&regenerate, "regenerate", false, "replace an existing keystore")
	return debugKeyCmd
}

func runDebugKey(ctx context.Context, app *App, path string, regenerate bool) error {
	s, err := app.open(ctx)
	if err != nil {
		return err
	}
	if path == "" {
		path = string(s.cfg.Signing.DebugKeystore)
	}
	if path == "" {
		if path, err = sign.DefaultDebugKeyPath(); err != nil {
			return err
		}
	}

	keytool, err := sdk.LocateKeytool(app.sdkOptions(s.cfg))
	if err != nil {
		return err
	}
	ks := sign.NewKeyStore(s.runner, keytool, sign.WithKeyStoreLogger(s.logger))

	var key sign.Key
	if regenerate {
		key, err = ks.RegenerateDebugKey(ctx, path)
	} else {
		key, err = ks.EnsureDebugKey(ctx, path)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(app.stdout, "%s %s (alias %s)\n", SuccessStyle.Render("Debug key"), CmdStyle.Render(key.Path), key.Alias)
	return nil
}
