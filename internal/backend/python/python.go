// Package python implements the build backend for Python projects. The
// generated recipe installs the project into the prefix with pip or uv
// and produces a noarch python package.
package python

import (
	"context"
	"log/slog"

	"pixibuild/internal/backend"
	"pixibuild/internal/build"
	"pixibuild/internal/conda"
	"pixibuild/internal/dependencies"
	"pixibuild/internal/engine"
	"pixibuild/internal/errors"
	"pixibuild/internal/manifest"
	"pixibuild/internal/paths"
	"pixibuild/internal/protocol"
	"pixibuild/internal/recipe"
	"pixibuild/internal/slogutil"
)

// Factory creates Python backends from initialize requests.
type Factory struct {
	engine engine.Engine
	logger *slog.Logger
}

// NewFactory wires a factory to an engine.
func NewFactory(eng engine.Engine, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Factory{engine: eng, logger: logger}
}

// Initialize loads the manifest and constructs a backend bound to it.
func (f *Factory) Initialize(ctx context.Context, params *protocol.InitializeParams) (protocol.Backend, *protocol.InitializeResult, error) {
	m, err := manifest.Load(params.ManifestPath)
	if err != nil {
		return nil, nil, err
	}

	b := &Backend{base: backend.Base{
		Manifest: m,
		Engine:   f.engine,
		CacheDir: params.CacheDirectory,
		Logger:   f.logger,
	}}
	return b, &protocol.InitializeResult{Capabilities: backend.Capabilities()}, nil
}

// Backend is a Python build backend bound to one project manifest.
// Every request recomputes the recipe from the immutable manifest, so
// concurrent requests are safe.
type Backend struct {
	base backend.Base
}

// Recipe constructs the build recipe for the project. Dependencies come
// from the default feature without target overlays (the output is noarch
// python); the installer and python itself are guaranteed in the host
// set.
func (b *Backend) Recipe() (*recipe.Recipe, error) {
	m := b.base.Manifest
	if m.Project.Name == "" {
		return nil, errors.New(errors.ConfigInvalid,
			"a 'name' field is required in the project manifest")
	}
	if _, err := conda.ParsePackageName(m.Project.Name); err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid,
			"the project name is not a valid package name", err)
	}

	sets := dependencies.Classify(m, "")
	installer := sets.Installer()
	sets.EnsureHostTools(installer, "python")

	extractor := &dependencies.MatchSpecExtractor{
		ProjectRoot: m.Root(),
		IgnoreSelf:  true,
	}
	var reqs recipe.Requirements
	var err error
	if reqs.Build, err = extractor.Extract(sets.Build); err != nil {
		return nil, err
	}
	if reqs.Host, err = extractor.Extract(sets.Host); err != nil {
		return nil, err
	}
	if reqs.Run, err = extractor.Extract(sets.Run); err != nil {
		return nil, err
	}

	return &recipe.Recipe{
		SchemaVersion: recipe.SchemaVersion,
		Package: recipe.Package{
			Name:    m.Project.Name,
			Version: m.VersionOrDefault(),
		},
		Sources: []recipe.Source{recipe.PathSource{Path: paths.NormalizePath(m.Root())}},
		Build: recipe.Build{
			Number: 0,
			Script: buildScript(installer, conda.CurrentPlatform().IsWindows()),
			NoArch: conda.NoArchPython,
		},
		Requirements: reqs,
		About: recipe.About{
			License:       m.Project.License,
			LicenseFamily: m.Project.LicenseFamily,
		},
	}, nil
}

// GetCondaMetadata computes the package metadata the project would
// produce. Nothing is persisted; the rendered recipe artifact lives only
// for the resolve call.
func (b *Backend) GetCondaMetadata(ctx context.Context, params *protocol.CondaMetadataParams) (*protocol.CondaMetadataResult, error) {
	workDir, err := backend.WorkDir(params.WorkDirectory)
	if err != nil {
		return nil, err
	}
	channels := b.base.Channels(params.ChannelBaseUrls, params.ChannelConfiguration)

	buildPlatform, err := backend.Platform(params.BuildPlatform)
	if err != nil {
		return nil, err
	}
	hostPlatform, err := backend.Platform(params.HostPlatform)
	if err != nil {
		return nil, err
	}

	rec, err := b.Recipe()
	if err != nil {
		return nil, err
	}
	output, err := backend.NewOutput(rec, channels, buildPlatform, hostPlatform, workDir)
	if err != nil {
		return nil, err
	}

	resolved, err := b.base.Resolve(ctx, output)
	if err != nil {
		return nil, err
	}
	return backend.MetadataResult(output, resolved, InputGlobs()), nil
}

// BuildConda builds the package archive.
func (b *Backend) BuildConda(ctx context.Context, params *protocol.CondaBuildParams) (*protocol.CondaBuildResult, error) {
	workDir, err := backend.WorkDir(params.WorkDirectory)
	if err != nil {
		return nil, err
	}
	channels := b.base.Channels(params.ChannelBaseUrls, params.ChannelConfiguration)

	hostPlatform, err := backend.Platform(params.HostPlatform)
	if err != nil {
		return nil, err
	}
	buildPlatform := build.PlatformWithVirtualPackages{
		Platform:        conda.CurrentPlatform(),
		VirtualPackages: backend.VirtualPackages(params.BuildPlatformVirtualPackages),
	}

	rec, err := b.Recipe()
	if err != nil {
		return nil, err
	}
	output, err := backend.NewOutput(rec, channels, buildPlatform, hostPlatform, workDir)
	if err != nil {
		return nil, err
	}

	archive, err := b.base.Build(ctx, output)
	if err != nil {
		return nil, err
	}
	return backend.BuildResult(output, archive, InputGlobs()), nil
}

// InputGlobs lists the source patterns whose changes invalidate a built
// package. Everything build-relevant in a Python project is matched;
// narrowing this per build system (setuptools, hatch) is future work.
func InputGlobs() []string {
	return []string{
		// Source files
		"**/*.py",
		"**/*.pyx",
		"**/*.c",
		"**/*.cpp",
		"**/*.sh",
		// Common data files
		"**/*.json",
		"**/*.yaml",
		"**/*.yml",
		"**/*.txt",
		// Project configuration
		"setup.py",
		"setup.cfg",
		"pyproject.toml",
		"requirements*.txt",
		"Pipfile",
		"Pipfile.lock",
		"poetry.lock",
		"tox.ini",
		// Build configuration
		"Makefile",
		"MANIFEST.in",
		"tests/**/*.py",
		"docs/**/*.rst",
		"docs/**/*.md",
		// Versioning
		"VERSION",
		"version.py",
	}
}
