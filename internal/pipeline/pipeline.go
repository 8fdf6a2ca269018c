// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/invowk/nativepack/internal/align"
	"github.com/invowk/nativepack/internal/artifact"
	"github.com/invowk/nativepack/internal/bundle"
	"github.com/invowk/nativepack/internal/embed"
	"github.com/invowk/nativepack/internal/libbuild"
	"github.com/invowk/nativepack/internal/manifest"
	"github.com/invowk/nativepack/internal/proc"
	"github.com/invowk/nativepack/internal/resource"
	"github.com/invowk/nativepack/internal/sdk"
	"github.com/invowk/nativepack/internal/sign"
)

// ErrNoToolchain is returned by Build when the pipeline has no toolchain.
var ErrNoToolchain = errors.New("no SDK toolchain configured")

type (
	// Deps are the collaborators a Pipeline drives.
	Deps struct {
		Runner    proc.Runner
		Toolchain *sdk.Toolchain
		// KeyStore creates the debug key; required only for debug signing.
		KeyStore *sign.KeyStore
		// Aligner defaults to zipalign when the toolchain has it, else the
		// builtin aligner.
		Aligner align.Aligner
		Logger  *log.Logger
	}

	// Option configures a Pipeline.
	Option func(*Pipeline)

	// Pipeline runs builds. It holds no per-build state and may run several
	// builds at once as long as they use different build directories.
	Pipeline struct {
		deps         Deps
		jobs         int
		debugKeyPath string
		bundleConfig string
	}

	// buildRun is the state of one Build call.
	buildRun struct {
		p      *Pipeline
		id     string
		desc   BuildDescriptor
		stages []Stage
		dir    layout
		logger *log.Logger
	}

	// archiveResult is what stages 4.2 to 4.6 hand on.
	archiveResult struct {
		linked Artifact
		signed Artifact
	}
)

// WithJobs bounds concurrent aapt2 compile processes.
func WithJobs(n int) Option {
	return func(p *Pipeline) { p.jobs = n }
}

// WithDebugKeyPath overrides the debug keystore location.
func WithDebugKeyPath(path string) Option {
	return func(p *Pipeline) { p.debugKeyPath = path }
}

// WithBundleConfig passes a BundleConfig.json to bundletool.
func WithBundleConfig(path string) Option {
	return func(p *Pipeline) { p.bundleConfig = path }
}

// New creates a Pipeline.
func New(deps Deps, opts ...Option) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard)
	}
	if deps.Aligner == nil && deps.Toolchain != nil {
		aligner, err := align.Select(align.EngineAuto, deps.Runner, deps.Toolchain.Zipalign)
		if err != nil {
			aligner = align.BuiltinAligner{}
		}
		deps.Aligner = aligner
	}
	p := &Pipeline{deps: deps}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Build runs every stage Plan selects for desc.Format and returns the final
// artifact. libs maps each target ABI to its compiled library; entries the
// descriptor's library hook produces are added to it. A failed build leaves
// no file at desc.OutputPath().
func (p *Pipeline) Build(ctx context.Context, desc BuildDescriptor, libs embed.LibrarySet) (Artifact, error) {
	run, err := p.start(desc)
	if err != nil {
		return Artifact{}, err
	}

	begin := time.Now()
	res, err := run.archive(ctx, run.dir, desc, libs, nil)
	if err != nil {
		return Artifact{}, run.fail(err)
	}

	final := res.signed
	if protoFormat(run.stages) {
		if final, err = run.bundle(ctx, []moduleResult{{name: bundle.BaseModule, signed: res.signed}}); err != nil {
			return Artifact{}, run.fail(err)
		}
	}
	return run.publish(final, begin)
}

// start validates desc and removes any previous final artifact.
func (p *Pipeline) start(desc BuildDescriptor) (*buildRun, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if p.deps.Toolchain == nil || p.deps.Runner == nil {
		return nil, ErrNoToolchain
	}
	if desc.Format == FormatBundle && p.deps.Toolchain.Bundletool.IsZero() {
		return nil, &ConfigurationError{Problems: []error{
			fmt.Errorf("bundle output requires bundletool: %w", proc.ErrToolNotFound),
		}}
	}

	id := uuid.NewString()
	run := &buildRun{
		p:      p,
		id:     id,
		desc:   desc,
		stages: Plan(desc.Format),
		dir:    layout(desc.BuildDir),
		logger: p.deps.Logger.With("build", id[:8]),
	}
	if err := os.MkdirAll(desc.BuildDir, 0o755); err != nil {
		return nil, &IOError{Op: "create build directory", Path: desc.BuildDir, Err: err}
	}
	if err := removeFile(desc.OutputPath()); err != nil {
		return nil, err
	}
	run.logger.Info("build started", "package", desc.PackageID, "format", desc.Format, "targets", desc.Targets)
	return run, nil
}

// archive runs the manifest to sign stages for one module rooted at dir.
// includes are linked archives of modules this one depends on.
func (r *buildRun) archive(ctx context.Context, dir layout, desc BuildDescriptor, libs embed.LibrarySet, includes []string) (archiveResult, error) {
	waitLibs, stopLibs := r.startLibraries(ctx, dir, desc, libs)
	defer stopLibs()

	var manifestPath string
	err := r.stage(ctx, StageManifest, func() error {
		m, err := manifest.Generate(desc.manifestInput())
		if err != nil {
			return err
		}
		for _, note := range m.Notes {
			r.logger.Warn(note)
		}
		manifestPath, err = manifest.Write(m, dir.manifestDir())
		return err
	})
	if err != nil {
		return archiveResult{}, err
	}

	var linked Artifact
	err = r.stage(ctx, StageResources, func() error {
		compiler := resource.Compiler{Runner: r.p.deps.Runner, AAPT2: r.p.deps.Toolchain.AAPT2, Jobs: r.p.jobs}
		compiled, err := compiler.Compile(ctx, desc.ResDir, dir.compiledDir())
		if err != nil {
			return err
		}
		linker := resource.Linker{Runner: r.p.deps.Runner, AAPT2: r.p.deps.Toolchain.AAPT2}
		linked, err = linker.Link(ctx, resource.LinkRequest{
			Compiled:     compiled,
			ManifestPath: manifestPath,
			AndroidJar:   r.p.deps.Toolchain.AndroidJar,
			OutPath:      dir.linked(),
			AssetsDir:    desc.AssetsDir,
			Options:      resource.Options{ProtoFormat: protoFormat(r.stages), AutoAddOverlay: true},
			MinSDK:       desc.MinSDK,
			TargetSDK:    desc.TargetSDK,
			VersionCode:  desc.VersionCode,
			VersionName:  desc.VersionName,
			Includes:     includes,
			PackageID:    desc.packageID,
		})
		return err
	})
	if err != nil {
		return archiveResult{}, err
	}

	var embedded Artifact
	err = r.stage(ctx, StageEmbed, func() error {
		if err := requireArtifact(StageEmbed, linked); err != nil {
			return err
		}
		set, err := waitLibs()
		if err != nil {
			return err
		}
		embedded, err = embed.Embed(ctx, embed.Request{
			LinkedArchive: linked.Path,
			TreeDir:       dir.tree(),
			OutPath:       dir.unaligned(),
			Libraries:     set,
			Targets:       desc.Targets,
			LibName:       desc.EffectiveLibName(),
		})
		return err
	})
	if err != nil {
		return archiveResult{}, err
	}

	var aligned Artifact
	err = r.stage(ctx, StageAlign, func() error {
		if err := requireArtifact(StageAlign, embedded); err != nil {
			return err
		}
		var err error
		aligned, err = r.p.deps.Aligner.Align(ctx, embedded.Path, dir.aligned())
		return err
	})
	if err != nil {
		return archiveResult{}, err
	}

	var signed Artifact
	err = r.stage(ctx, StageSign, func() error {
		if err := requireArtifact(StageSign, aligned); err != nil {
			return err
		}
		signer := sign.Signer{
			Runner:       r.p.deps.Runner,
			APKSigner:    r.p.deps.Toolchain.APKSigner,
			KeyStore:     r.p.deps.KeyStore,
			DebugKeyPath: r.p.debugKeyPath,
			MinSDK:       desc.MinSDK,
		}
		var err error
		signed, err = signer.Sign(ctx, aligned.Path, desc.Key)
		return err
	})
	if err != nil {
		return archiveResult{}, err
	}
	return archiveResult{linked: linked, signed: signed}, nil
}

// moduleResult is a signed module archive waiting for bundle assembly.
type moduleResult struct {
	name   string
	signed Artifact
}

// bundle turns every module's signed archive into a bundle module and
// assembles them into one bundle under the build's bundle directory.
func (r *buildRun) bundle(ctx context.Context, modules []moduleResult) (Artifact, error) {
	var out Artifact
	err := r.stage(ctx, StageBundle, func() error {
		scratch := r.dir.bundleDir()
		if err := os.RemoveAll(scratch); err != nil {
			return &IOError{Op: "remove stale", Path: scratch, Err: err}
		}
		if err := os.MkdirAll(scratch, 0o755); err != nil {
			return &IOError{Op: "create directory", Path: scratch, Err: err}
		}

		asm := bundle.NewAssembly()
		for _, m := range modules {
			if err := requireArtifact(StageBundle, m.signed); err != nil {
				return err
			}
			tree, err := asm.Extract(m.signed.Path, filepath.Join(scratch, m.name+"-tree"))
			if err != nil {
				return err
			}
			if _, err := asm.Rezip(tree, m.name, filepath.Join(scratch, m.name+".zip")); err != nil {
				return err
			}
		}
		assembler := bundle.Assembler{
			Runner:     r.p.deps.Runner,
			Bundletool: r.p.deps.Toolchain.Bundletool,
			Config:     r.p.bundleConfig,
		}
		var err error
		out, err = asm.Assemble(ctx, assembler, filepath.Join(scratch, "bundle.intermediate"))
		return err
	})
	return out, err
}

// stage runs fn as stage s, checking for cancellation first.
func (r *buildRun) stage(ctx context.Context, s Stage, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return &StageError{Stage: s, Err: err}
	}
	start := time.Now()
	r.logger.Debug("stage started", "stage", s)
	if err := fn(); err != nil {
		return &StageError{Stage: s, Err: err}
	}
	r.logger.Info("stage finished", "stage", s, "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// publish moves the last stage's artifact to the final output path.
func (r *buildRun) publish(last Artifact, begin time.Time) (Artifact, error) {
	final := r.desc.OutputPath()
	if err := os.Rename(last.Path, final); err != nil {
		return Artifact{}, r.fail(&IOError{Op: "publish", Path: final, Err: err})
	}
	r.logger.Info("build finished", "output", final, "duration", time.Since(begin).Round(time.Millisecond))
	return artifact.New(final, last.Tag), nil
}

func (r *buildRun) fail(err error) error {
	stage, _ := FailedStage(err)
	r.logger.Error("build failed", "stage", stage, "err", err)
	return err
}

// startLibraries runs the descriptor's library hook concurrently with the
// manifest and resource stages. wait joins it and merges the produced
// libraries under the explicitly given ones; stop cancels an unjoined hook.
func (r *buildRun) startLibraries(ctx context.Context, dir layout, desc BuildDescriptor, libs embed.LibrarySet) (wait func() (embed.LibrarySet, error), stop func()) {
	if desc.Libraries.IsZero() {
		return func() (embed.LibrarySet, error) { return libs, nil }, func() {}
	}

	hookCtx, cancel := context.WithCancel(ctx)
	var g errgroup.Group
	var built embed.LibrarySet
	g.Go(func() error {
		var err error
		built, err = libbuild.NewBuilder(dir.nativeDir(), r.logger).Build(hookCtx, desc.Libraries, desc.Targets)
		return err
	})

	wait = func() (embed.LibrarySet, error) {
		if err := g.Wait(); err != nil {
			return nil, err
		}
		merged := make(embed.LibrarySet, len(libs)+len(built))
		maps.Copy(merged, built)
		maps.Copy(merged, libs)
		return merged, nil
	}
	stop = func() {
		cancel()
		_ = g.Wait()
	}
	return wait, stop
}

func requireArtifact(s Stage, a Artifact) error {
	if _, err := os.Stat(a.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &MissingArtifactError{Stage: s, Artifact: a}
		}
		return &IOError{Op: "stat", Path: a.Path, Err: err}
	}
	return nil
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &IOError{Op: "remove stale", Path: path, Err: err}
	}
	return nil
}
