// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/invowk/nativepack/internal/bundle"
	"github.com/invowk/nativepack/internal/dag"
	"github.com/invowk/nativepack/internal/embed"
	"github.com/invowk/nativepack/internal/libbuild"
	"github.com/invowk/nativepack/internal/resource"
)

// maxFeatureModules is the number of resource package ids available below
// the base module's 0x7f.
const maxFeatureModules = int(resource.AppPackageID - resource.MinFeaturePackageID)

type (
	// ModuleSpec describes one module of a multi-module bundle. Fields left
	// empty fall back to nothing, not to the base descriptor.
	ModuleSpec struct {
		Name string
		// DependsOn lists modules whose linked resources this module
		// references. Every feature module implicitly depends on base.
		DependsOn        []string
		ResDir           string
		AssetsDir        string
		ManifestOverride string
		Libraries        embed.LibrarySet
		Hook             libbuild.Hook
	}

	// Job is one independent build for BuildMany.
	Job struct {
		Descriptor BuildDescriptor
		Libraries  embed.LibrarySet
	}
)

// BuildModules builds a bundle from several modules. Modules are built in
// dependency order, each under {BuildDir}/modules/{name} with the linked
// archives of its dependencies passed to aapt2 as includes; one bundletool
// run then assembles them all. Base keeps resource package id 0x7f and each
// feature module takes the next lower id in build order, so resource ids
// never collide across modules.
func (p *Pipeline) BuildModules(ctx context.Context, desc BuildDescriptor, modules []ModuleSpec) (Artifact, error) {
	if desc.Format != FormatBundle {
		return Artifact{}, &ConfigurationError{Problems: []error{
			fmt.Errorf("multi-module builds require the bundle format, got %q", desc.Format),
		}}
	}
	order, err := moduleOrder(modules)
	if err != nil {
		return Artifact{}, err
	}
	run, err := p.start(desc)
	if err != nil {
		return Artifact{}, err
	}

	begin := time.Now()
	byName := make(map[string]ModuleSpec, len(modules))
	for _, m := range modules {
		byName[m.Name] = m
	}
	linked := make(map[string]string, len(modules))
	results := make([]moduleResult, 0, len(modules))
	nextID := resource.AppPackageID
	for _, name := range order {
		m := byName[name]
		var includes []string
		for _, dep := range moduleDeps(m) {
			includes = append(includes, linked[dep])
		}

		modDesc := desc.forModule(m)
		if name != bundle.BaseModule {
			nextID--
			modDesc.packageID = nextID
		}
		run.logger.Info("building module", "module", name, "depends_on", moduleDeps(m))
		res, err := run.archive(ctx, run.dir.module(name), modDesc, m.Libraries, includes)
		if err != nil {
			return Artifact{}, run.fail(fmt.Errorf("module %s: %w", name, err))
		}
		linked[name] = res.linked.Path
		results = append(results, moduleResult{name: name, signed: res.signed})
	}

	final, err := run.bundle(ctx, results)
	if err != nil {
		return Artifact{}, run.fail(err)
	}
	return run.publish(final, begin)
}

// forModule derives the descriptor of module m. Feature modules without
// native libraries build for no ABI.
func (d BuildDescriptor) forModule(m ModuleSpec) BuildDescriptor {
	out := d
	out.ResDir = m.ResDir
	out.AssetsDir = m.AssetsDir
	out.ManifestOverride = m.ManifestOverride
	out.Libraries = m.Hook
	if m.Name != bundle.BaseModule {
		out.split = m.Name
		if len(m.Libraries) == 0 && m.Hook.IsZero() {
			out.Targets = nil
		}
	}
	return out
}

func moduleDeps(m ModuleSpec) []string {
	deps := slices.Clone(m.DependsOn)
	if m.Name != bundle.BaseModule && !slices.Contains(deps, bundle.BaseModule) {
		deps = append([]string{bundle.BaseModule}, deps...)
	}
	return deps
}

// moduleOrder validates module names and returns them in dependency order.
func moduleOrder(modules []ModuleSpec) ([]string, error) {
	var problems []error
	names := make([]string, 0, len(modules))
	seen := make(map[string]bool, len(modules))
	for _, m := range modules {
		if err := bundle.ValidateModuleName(m.Name); err != nil {
			problems = append(problems, err)
			continue
		}
		if seen[m.Name] {
			problems = append(problems, fmt.Errorf("module %q declared twice", m.Name))
			continue
		}
		seen[m.Name] = true
		names = append(names, m.Name)
	}
	if !seen[bundle.BaseModule] {
		problems = append(problems, fmt.Errorf("a %q module is required", bundle.BaseModule))
	} else if features := len(names) - 1; features > maxFeatureModules {
		problems = append(problems, fmt.Errorf("%d feature modules exceed the %d available resource package ids", features, maxFeatureModules))
	}
	if len(problems) > 0 {
		return nil, &ConfigurationError{Problems: problems}
	}

	byName := make(map[string]ModuleSpec, len(modules))
	for _, m := range modules {
		byName[m.Name] = m
	}
	order, err := dag.Order(names, func(n string) []string { return moduleDeps(byName[n]) })
	if err != nil {
		return nil, &ConfigurationError{Problems: []error{err}}
	}
	return order, nil
}

// BuildMany runs independent builds concurrently, at most jobs at once
// (GOMAXPROCS when jobs <= 0). Build directories are compared as absolute
// paths and must neither coincide nor nest. The first failure cancels the
// remaining builds; artifacts are returned in job order.
func (p *Pipeline) BuildMany(ctx context.Context, jobs []Job, limit int) ([]Artifact, error) {
	if problems := overlappingBuildDirs(jobs); len(problems) > 0 {
		return nil, &ConfigurationError{Problems: problems}
	}

	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	out := make([]Artifact, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, j := range jobs {
		g.Go(func() error {
			art, err := p.Build(gctx, j.Descriptor, j.Libraries)
			if err != nil {
				return fmt.Errorf("build %s: %w", j.Descriptor.Name(), err)
			}
			out[i] = art
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func overlappingBuildDirs(jobs []Job) []error {
	type claim struct{ dir, name string }
	var (
		claims   []claim
		problems []error
	)
	for _, j := range jobs {
		name := j.Descriptor.Name()
		dir, err := filepath.Abs(j.Descriptor.BuildDir)
		if err != nil {
			problems = append(problems, fmt.Errorf("resolve build directory of %s: %w", name, err))
			continue
		}
		for _, c := range claims {
			switch {
			case c.dir == dir:
				problems = append(problems, fmt.Errorf("builds %s and %s share build directory %s", c.name, name, dir))
			case within(c.dir, dir):
				problems = append(problems, fmt.Errorf("build directory %s of %s is inside %s of %s", dir, name, c.dir, c.name))
			case within(dir, c.dir):
				problems = append(problems, fmt.Errorf("build directory %s of %s is inside %s of %s", c.dir, c.name, dir, name))
			}
		}
		claims = append(claims, claim{dir: dir, name: name})
	}
	return problems
}

// within reports whether child lies strictly below parent. Both are absolute.
func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil || rel == "." || rel == ".." {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
