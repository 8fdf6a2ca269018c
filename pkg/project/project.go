// SPDX-License-Identifier: MPL-2.0

package project

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/invowk/nativepack/internal/embed"
	"github.com/invowk/nativepack/internal/issue"
	"github.com/invowk/nativepack/internal/libbuild"
	"github.com/invowk/nativepack/internal/pipeline"
	"github.com/invowk/nativepack/internal/sign"
	"github.com/invowk/nativepack/pkg/cueutil"
	"github.com/invowk/nativepack/pkg/fspath"
	"github.com/invowk/nativepack/pkg/types"
)

const (
	// CUEFileName is the preferred project file name.
	CUEFileName = "nativepack.cue"
	// TOMLFileName is the alternative project file name.
	TOMLFileName = "nativepack.toml"

	schemaPath = "#Project"
	envPrefix  = "env:"
)

//go:embed project_schema.cue
var projectSchema []byte

var (
	// ErrNotFound is returned by Find when a directory has no project file.
	ErrNotFound = errors.New("no project file found")
	// ErrUnsupportedFormat is returned for project files that are neither CUE nor TOML.
	ErrUnsupportedFormat = errors.New("unsupported project file format")
	// ErrInvalidProject is wrapped by every Load failure after the file was found.
	ErrInvalidProject = errors.New("invalid project file")
	// ErrSecretUnset is the sentinel error wrapped by SecretError.
	ErrSecretUnset = errors.New("secret environment variable not set")
)

type (
	// File is the decoded project file.
	File struct {
		PackageID    string     `json:"package_id"`
		Label        string     `json:"label,omitempty"`
		VersionName  string     `json:"version_name"`
		VersionCode  uint32     `json:"version_code"`
		MinSDK       int        `json:"min_sdk,omitempty"`
		TargetSDK    int        `json:"target_sdk,omitempty"`
		Format       string     `json:"format"`
		Targets      []string   `json:"targets"`
		LibName      string     `json:"lib_name,omitempty"`
		ResDir       string     `json:"res_dir,omitempty"`
		AssetsDir    string     `json:"assets_dir,omitempty"`
		BuildDir     string     `json:"build_dir"`
		Manifest     string     `json:"manifest,omitempty"`
		Permissions  []string   `json:"permissions,omitempty"`
		Features     []string   `json:"features,omitempty"`
		Debuggable   bool       `json:"debuggable,omitempty"`
		BundleConfig string     `json:"bundle_config,omitempty"`
		Signing      *Signing   `json:"signing,omitempty"`
		Libraries    *Libraries `json:"libraries,omitempty"`
		Modules      []Module   `json:"modules,omitempty"`
	}

	// Signing names a release keystore. Passwords may be "env:NAME".
	Signing struct {
		Keystore    string `json:"keystore"`
		Alias       string `json:"alias"`
		Password    string `json:"password,omitempty"`
		KeyPassword string `json:"key_password,omitempty"`
	}

	// Libraries lists prebuilt libraries per ABI and an optional build command.
	Libraries struct {
		Paths   map[string]string `json:"paths,omitempty"`
		Command string            `json:"command,omitempty"`
		Output  string            `json:"output,omitempty"`
		Env     map[string]string `json:"env,omitempty"`
	}

	// Module is a feature module of a multi-module bundle.
	Module struct {
		Name      string     `json:"name"`
		DependsOn []string   `json:"depends_on,omitempty"`
		ResDir    string     `json:"res_dir,omitempty"`
		AssetsDir string     `json:"assets_dir,omitempty"`
		Manifest  string     `json:"manifest,omitempty"`
		Libraries *Libraries `json:"libraries,omitempty"`
	}

	// Project is a loaded project file. Relative paths resolve against Dir.
	Project struct {
		Path string
		Dir  string
		File File

		getenv func(string) string
	}

	// Option configures Load.
	Option func(*Project)

	// Overrides replace project values from the command line.
	Overrides struct {
		Format   pipeline.OutputFormat
		BuildDir string
		// DebugKey signs with the debug key even when signing is configured.
		DebugKey bool
	}

	// SecretError reports an "env:NAME" secret whose variable is unset.
	SecretError struct {
		Field string
		Var   string
	}
)

// WithGetenv replaces os.Getenv for "env:" secrets.
func WithGetenv(getenv func(string) string) Option {
	return func(p *Project) { p.getenv = getenv }
}

// Find returns the project file in dir, preferring nativepack.cue.
func Find(dir string) (string, error) {
	for _, name := range []string{CUEFileName, TOMLFileName} {
		path := filepath.Join(dir, name)
		ok, err := types.FilesystemPath(path).IsRegularFile()
		if err != nil {
			return "", fmt.Errorf("find project file: %w", err)
		}
		if ok {
			return path, nil
		}
	}
	return "", issue.NewErrorContext().
		WithOperation("find project file").
		WithResource(dir).
		WithSuggestion("Create " + CUEFileName + " in the project directory").
		WithSuggestion("Pass the file explicitly with --project").
		Wrap(ErrNotFound).
		BuildError()
}

// Load reads and validates a project file. Both formats are checked against
// the same CUE schema.
func Load(path string, opts ...Option) (*Project, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	p := &Project{Path: abs, Dir: filepath.Dir(abs), getenv: os.Getenv}
	for _, opt := range opts {
		opt(p)
	}

	file, err := decode(abs)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load project").
			WithResource(abs).
			WithSuggestion("Check the file against the documented project fields").
			WithSuggestion("Run 'nativepack build --verbose' for detailed guidance").
			Wrap(fmt.Errorf("%w: %w", ErrInvalidProject, err)).
			BuildError()
	}
	p.File = *file
	return p, nil
}

func decode(path string) (*File, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		res, err := cueutil.ParseFile[File](projectSchema, path, schemaPath)
		if err != nil {
			return nil, err
		}
		return res.Value, nil
	case ".toml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
			return nil, err
		}
		var doc map[string]any
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		// JSON is valid CUE, so the TOML document goes through the same schema.
		asJSON, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		res, err := cueutil.ParseAndDecode[File](projectSchema, asJSON, schemaPath, cueutil.WithFilename(path))
		if err != nil {
			return nil, err
		}
		return res.Value, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}
}

// Descriptor builds the pipeline descriptor. The result is validated by the
// pipeline; only failures specific to the project file surface here.
func (p *Project) Descriptor(o Overrides) (pipeline.BuildDescriptor, error) {
	f := p.File

	format, err := pipeline.ParseOutputFormat(f.Format)
	if err != nil {
		return pipeline.BuildDescriptor{}, err
	}
	if o.Format != "" {
		format = o.Format
	}

	targets, err := parseTargets(f.Targets)
	if err != nil {
		return pipeline.BuildDescriptor{}, err
	}

	key, err := p.key(o.DebugKey)
	if err != nil {
		return pipeline.BuildDescriptor{}, err
	}

	buildDir := p.resolve(f.BuildDir)
	if o.BuildDir != "" {
		buildDir = o.BuildDir
	}

	return pipeline.BuildDescriptor{
		PackageID:        f.PackageID,
		Label:            f.Label,
		VersionName:      f.VersionName,
		VersionCode:      f.VersionCode,
		MinSDK:           f.MinSDK,
		TargetSDK:        f.TargetSDK,
		Targets:          targets,
		Format:           format,
		Key:              key,
		ResDir:           p.conventionalDir(f.ResDir, "res"),
		AssetsDir:        p.conventionalDir(f.AssetsDir, "assets"),
		BuildDir:         buildDir,
		ManifestOverride: p.resolve(f.Manifest),
		Permissions:      slices.Clone(f.Permissions),
		Features:         slices.Clone(f.Features),
		LibName:          f.LibName,
		Debuggable:       f.Debuggable,
		Libraries:        p.hook(f.Libraries),
	}, nil
}

// Libraries returns the prebuilt library set with canonical ABIs and absolute paths.
func (p *Project) Libraries() (embed.LibrarySet, error) {
	return p.librarySet(p.File.Libraries)
}

// BundleConfig returns the absolute BundleConfig.json path, or "".
func (p *Project) BundleConfig() string {
	return p.resolve(p.File.BundleConfig)
}

// Modules returns the feature modules in file order, or nil for a
// single-module project.
func (p *Project) Modules() ([]pipeline.ModuleSpec, error) {
	if len(p.File.Modules) == 0 {
		return nil, nil
	}
	specs := make([]pipeline.ModuleSpec, 0, len(p.File.Modules))
	for _, m := range p.File.Modules {
		libs, err := p.librarySet(m.Libraries)
		if err != nil {
			return nil, fmt.Errorf("module %s: %w", m.Name, err)
		}
		specs = append(specs, pipeline.ModuleSpec{
			Name:             m.Name,
			DependsOn:        slices.Clone(m.DependsOn),
			ResDir:           p.resolve(m.ResDir),
			AssetsDir:        p.resolve(m.AssetsDir),
			ManifestOverride: p.resolve(m.Manifest),
			Libraries:        libs,
			Hook:             p.hook(m.Libraries),
		})
	}
	return specs, nil
}

func (p *Project) key(forceDebug bool) (sign.Key, error) {
	s := p.File.Signing
	if s == nil || forceDebug {
		return sign.DebugKey(), nil
	}
	password, err := p.secret("signing.password", s.Password)
	if err != nil {
		return sign.Key{}, err
	}
	keyPassword, err := p.secret("signing.key_password", s.KeyPassword)
	if err != nil {
		return sign.Key{}, err
	}
	return sign.Key{
		Path:        p.resolve(s.Keystore),
		Alias:       s.Alias,
		Password:    password,
		KeyPassword: keyPassword,
	}, nil
}

func (p *Project) secret(field, value string) (string, error) {
	name, ok := strings.CutPrefix(value, envPrefix)
	if !ok {
		return value, nil
	}
	v := p.getenv(name)
	if v == "" {
		return "", &SecretError{Field: field, Var: name}
	}
	return v, nil
}

func (p *Project) hook(l *Libraries) libbuild.Hook {
	if l == nil || l.Command == "" {
		return libbuild.Hook{}
	}
	env := make([]string, 0, len(l.Env))
	for k, v := range l.Env {
		env = append(env, k+"="+v)
	}
	slices.Sort(env)
	return libbuild.Hook{
		Command: l.Command,
		Output:  l.Output,
		Dir:     p.Dir,
		Env:     env,
	}
}

func (p *Project) librarySet(l *Libraries) (embed.LibrarySet, error) {
	if l == nil || len(l.Paths) == 0 {
		return nil, nil
	}
	set := make(embed.LibrarySet, len(l.Paths))
	for key, path := range l.Paths {
		abi, err := embed.ParseABI(key)
		if err != nil {
			return nil, err
		}
		if _, dup := set[abi]; dup {
			return nil, fmt.Errorf("libraries.paths lists %s twice", abi)
		}
		set[abi] = types.FilesystemPath(p.resolve(path))
	}
	return set, nil
}

func parseTargets(raw []string) ([]embed.ABI, error) {
	targets := make([]embed.ABI, 0, len(raw))
	var errs []error
	for _, s := range raw {
		abi, err := embed.ParseABI(s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		targets = append(targets, abi)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return targets, nil
}

// resolve makes a project-relative path absolute. Empty stays empty.
func (p *Project) resolve(path string) string {
	return string(fspath.Resolve(types.FilesystemPath(p.Dir), fspath.FromSlash(types.FilesystemPath(path))))
}

// conventionalDir resolves path, or falls back to <Dir>/<name> when that directory exists.
func (p *Project) conventionalDir(path, name string) string {
	if path != "" {
		return p.resolve(path)
	}
	dir := filepath.Join(p.Dir, name)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return ""
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("%s: environment variable %s is not set", e.Field, e.Var)
}

// Unwrap returns ErrSecretUnset for errors.Is() compatibility.
func (e *SecretError) Unwrap() error { return ErrSecretUnset }
