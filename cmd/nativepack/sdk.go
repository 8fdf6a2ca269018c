// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invowk/nativepack/internal/proc"
	"github.com/invowk/nativepack/internal/sdk"
)

func newSDKCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sdk",
		Short: "Show the resolved Android SDK toolchain",
		Long: `Resolve the Android SDK, build-tools, platform, JDK and bundletool the
way 'nativepack build' does and print what was found.

Locations come from the sdk.* config keys, then ANDROID_HOME,
ANDROID_SDK_ROOT, JAVA_HOME and BUNDLETOOL_PATH, then PATH.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSDK(cmd.Context(), app)
		},
	}
}

func runSDK(ctx context.Context, app *App) error {
	s, err := app.open(ctx)
	if err != nil {
		return err
	}
	tc, err := sdk.Locate(app.sdkOptions(s.cfg))
	if err != nil {
		return err
	}

	fmt.Fprintln(app.stdout, TitleStyle.Render("Android Toolchain"))
	fmt.Fprintln(app.stdout)
	row := func(key, value string) {
		fmt.Fprintf(app.stdout, "%s: %s\n", CmdStyle.Render(key), value)
	}
	row("sdk", tc.AndroidHome)
	row("build-tools", tc.BuildToolsVersion)
	row("platform", tc.Platform)
	row("android.jar", tc.AndroidJar)
	for _, t := range []proc.Tool{tc.AAPT2, tc.Zipalign, tc.APKSigner, tc.Keytool, tc.Bundletool} {
		if t.IsZero() {
			continue
		}
		row(t.Name, t.Command().CommandLine())
	}
	if tc.Bundletool.IsZero() {
		row("bundletool", WarningStyle.Render("(not found, bundle builds unavailable)"))
	}
	return nil
}
