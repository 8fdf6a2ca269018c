// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/invowk/nativepack/internal/align"
	"github.com/invowk/nativepack/internal/config"
	"github.com/invowk/nativepack/internal/issue"
	"github.com/invowk/nativepack/internal/pipeline"
	"github.com/invowk/nativepack/internal/sdk"
	"github.com/invowk/nativepack/internal/sign"
	"github.com/invowk/nativepack/pkg/project"
)

// buildFlags are the flags of `nativepack build`.
type buildFlags struct {
	project     string
	format      string
	buildDir    string
	debugSign   bool
	alignEngine string
	jobs        int
}

func newBuildCommand(app *App) *cobra.Command {
	var flags buildFlags

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Build a signed APK or App Bundle",
		Long: `Build the project into a signed, aligned APK or an Android App Bundle.

The project file is nativepack.cue (or nativepack.toml) in the current
directory unless --project names a file or directory. The artifact is written
to <build_dir>/<label>.apk or .aab, where the label defaults to the
package id.`,
		Example: `  nativepack build
  nativepack build --format bundle
  nativepack build --project ./android --debug-sign --jobs 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), app, flags)
		},
	}

	buildCmd.Flags().StringVarP(&flags.project, "project", "p", "", "project file or directory (default is the current directory)")
	buildCmd.Flags().StringVarP(&flags.format, "format", "f", "", "output format: archive or bundle (overrides the project file)")
	buildCmd.Flags().StringVar(&flags.buildDir, "build-dir", "", "build directory (overrides the project file)")
	buildCmd.Flags().BoolVar(&flags.debugSign, "debug-sign", false, "sign with the debug key even when a release key is configured")
	buildCmd.Flags().StringVar(&flags.alignEngine, "align-engine", "", "alignment engine: auto, tool or builtin (overrides build.align_engine)")
	buildCmd.Flags().IntVarP(&flags.jobs, "jobs", "j", 0, "parallel resource compile jobs (overrides build.jobs)")

	return buildCmd
}

func runBuild(ctx context.Context, app *App, flags buildFlags) error {
	s, err := app.open(ctx)
	if err != nil {
		return err
	}

	proj, err := loadProject(flags.project, app.Getenv)
	if err != nil {
		return err
	}

	overrides := project.Overrides{BuildDir: flags.buildDir, DebugKey: flags.debugSign}
	if flags.format != "" {
		if overrides.Format, err = pipeline.ParseOutputFormat(flags.format); err != nil {
			return err
		}
	}
	desc, err := proj.Descriptor(overrides)
	if err != nil {
		return err
	}
	modules, err := proj.Modules()
	if err != nil {
		return newServiceError(err, issue.ProjectParseErrorId)
	}

	opts := app.sdkOptions(s.cfg)
	opts.RequireBundletool = desc.Format == pipeline.FormatBundle
	tc, err := sdk.Locate(opts)
	if err != nil {
		return err
	}
	s.logger.Debug("toolchain", "sdk", tc.AndroidHome, "build-tools", tc.BuildToolsVersion, "platform", tc.Platform)

	engine := s.cfg.Build.AlignEngine
	if flags.alignEngine != "" {
		engine = align.Engine(flags.alignEngine)
	}
	aligner, err := align.Select(engine, s.runner, tc.Zipalign)
	if err != nil {
		return err
	}

	jobs := int(s.cfg.Build.Jobs)
	if flags.jobs > 0 {
		jobs = flags.jobs
	}
	if err := config.JobCount(jobs).Validate(); err != nil {
		return err
	}

	pipeOpts := []pipeline.Option{pipeline.WithJobs(jobs)}
	if keyPath := s.cfg.Signing.DebugKeystore; keyPath != "" {
		pipeOpts = append(pipeOpts, pipeline.WithDebugKeyPath(string(keyPath)))
	}
	if bundleConfig := proj.BundleConfig(); bundleConfig != "" {
		pipeOpts = append(pipeOpts, pipeline.WithBundleConfig(bundleConfig))
	}
	p := pipeline.New(pipeline.Deps{
		Runner:    s.runner,
		Toolchain: tc,
		KeyStore:  sign.NewKeyStore(s.runner, tc.Keytool, sign.WithKeyStoreLogger(s.logger)),
		Aligner:   aligner,
		Logger:    s.logger,
	}, pipeOpts...)

	var out pipeline.Artifact
	if len(modules) > 0 {
		out, err = p.BuildModules(ctx, desc, modules)
	} else {
		libs, libErr := proj.Libraries()
		if libErr != nil {
			return newServiceError(libErr, issue.ProjectParseErrorId)
		}
		out, err = p.Build(ctx, desc, libs)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("Built"), CmdStyle.Render(out.Path))
	return nil
}

// loadProject resolves --project (a file, a directory or "") and loads it.
func loadProject(flag string, getenv func(string) string) (*project.Project, error) {
	path := flag
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		path = wd
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		found, findErr := project.Find(path)
		if findErr != nil {
			return nil, newServiceError(findErr, issue.ProjectNotFoundId)
		}
		path = found
	}
	proj, err := project.Load(path, project.WithGetenv(getenv))
	if err != nil {
		return nil, newServiceError(err, issue.ProjectParseErrorId)
	}
	return proj, nil
}
