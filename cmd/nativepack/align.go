// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invowk/nativepack/internal/align"
	"github.com/invowk/nativepack/internal/proc"
	"github.com/invowk/nativepack/internal/sdk"
)

func newAlignCommand(app *App) *cobra.Command {
	var engine string

	alignCmd := &cobra.Command{
		Use:   "align <archive> [output]",
		Short: "Align the stored entries of an existing archive",
		Long: `Rewrite an archive so every stored (uncompressed) entry starts on a
4-byte boundary. The archive is rewritten in place unless an output path
is given.

The builtin engine needs no Android SDK. With "auto" zipalign is used when
the SDK can be located.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := args[0]
			if len(args) == 2 {
				out = args[1]
			}
			return runAlign(cmd.Context(), app, align.Engine(engine), args[0], out)
		},
	}

	alignCmd.Flags().StringVar(&engine, "engine", "", "alignment engine: auto, tool or builtin (default from build.align_engine)")
	return alignCmd
}

func runAlign(ctx context.Context, app *App, engine align.Engine, in, out string) error {
	s, err := app.open(ctx)
	if err != nil {
		return err
	}
	if engine == "" {
		engine = s.cfg.Build.AlignEngine
	}
	if err := engine.Validate(); err != nil {
		return err
	}

	var zipalign proc.Tool
	if engine != align.EngineBuiltin {
		tc, locateErr := sdk.Locate(app.sdkOptions(s.cfg))
		switch {
		case locateErr == nil:
			zipalign = tc.Zipalign
		case engine == align.EngineTool:
			return locateErr
		default:
			s.logger.Debug("SDK not available, using builtin aligner", "error", locateErr)
		}
	}

	aligner, err := align.Select(engine, s.runner, zipalign)
	if err != nil {
		return err
	}
	result, err := aligner.Align(ctx, in, out)
	if err != nil {
		return err
	}
	if err := align.Verify(result.Path, align.DefaultAlignment); err != nil {
		return err
	}
	fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("Aligned"), CmdStyle.Render(result.Path))
	return nil
}

func newVerifyAlignCommand(app *App) *cobra.Command {
	var alignment int

	verifyCmd := &cobra.Command{
		Use:   "verify-align <archive>...",
		Short: "Check that stored archive entries are aligned",
		Long: `Check every stored entry of each archive, like 'zipalign -c'.

Exits with status 3 when an entry is misaligned.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerifyAlign(app, alignment, args)
		},
	}

	verifyCmd.Flags().IntVar(&alignment, "alignment", align.DefaultAlignment, "alignment boundary in bytes")
	return verifyCmd
}

func runVerifyAlign(app *App, alignment int, archives []string) error {
	var misaligned []error
	for _, path := range archives {
		err := align.Verify(path, alignment)
		switch {
		case err == nil:
			fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("OK"), path)
		case errors.Is(err, align.ErrMisaligned):
			fmt.Fprintf(app.stdout, "%s %s\n", ErrorStyle.Render("FAIL"), err)
			misaligned = append(misaligned, err)
		default:
			return err
		}
	}
	if len(misaligned) > 0 {
		return &ExitError{Code: exitMisaligned, Err: errors.Join(misaligned...)}
	}
	return nil
}
