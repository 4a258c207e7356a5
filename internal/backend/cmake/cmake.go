// Package cmake implements the build backend for CMake projects. The
// generated recipe configures with Ninja and installs into the prefix;
// compiler packages for the target platform are added to the build
// requirements.
package cmake

import (
	"context"
	"fmt"
	"log/slog"

	"pixibuild/internal/backend"
	"pixibuild/internal/build"
	"pixibuild/internal/conda"
	"pixibuild/internal/dependencies"
	"pixibuild/internal/engine"
	"pixibuild/internal/errors"
	"pixibuild/internal/manifest"
	"pixibuild/internal/protocol"
	"pixibuild/internal/recipe"
	"pixibuild/internal/slogutil"
)

// Factory creates CMake backends from initialize requests.
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

// Backend is a CMake build backend bound to one project manifest.
type Backend struct {
	base backend.Base
}

// Languages lists the languages the project is built with; they select
// compiler packages. Detecting this from the CMake sources is future
// work, so C++ is assumed.
func (b *Backend) Languages() []string {
	return []string{"cxx"}
}

// compilerSpecs returns one match spec per required compiler package,
// named <compiler>_<target-platform>.
func (b *Backend) compilerSpecs(target conda.Platform) []conda.MatchSpec {
	var specs []conda.MatchSpec
	for _, lang := range b.Languages() {
		compiler := DefaultCompiler(target, lang)
		if compiler == "" {
			continue
		}
		name := conda.MustPackageName(fmt.Sprintf("%s_%s", compiler, target))
		specs = append(specs, conda.NewMatchSpec(name, conda.AnyVersion()))
	}
	return specs
}

// checkTargetPlatform enforces the manifest's platform restriction.
func (b *Backend) checkTargetPlatform(p conda.Platform) error {
	if b.base.Manifest.SupportsTargetPlatform(p) {
		return nil
	}
	return errors.Newf(errors.PlatformUnsupported,
		"the project does not support the target platform (%s)", p)
}

// Recipe constructs the build recipe for the project on a host
// platform. Dependencies are classified with the platform's target
// overlays applied; cmake and ninja are guaranteed in the host set.
func (b *Backend) Recipe(hostPlatform conda.Platform) (*recipe.Recipe, error) {
	m := b.base.Manifest
	if m.Project.Name == "" {
		return nil, errors.New(errors.ConfigInvalid,
			"a 'name' field is required in the project manifest")
	}
	if _, err := conda.ParsePackageName(m.Project.Name); err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid,
			"the project name is not a valid package name", err)
	}

	sets := dependencies.Classify(m, hostPlatform)
	sets.EnsureHostTools("cmake", "ninja")

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
	reqs.Build = append(reqs.Build, b.compilerSpecs(hostPlatform)...)

	return &recipe.Recipe{
		SchemaVersion: recipe.SchemaVersion,
		Package: recipe.Package{
			Name:    m.Project.Name,
			Version: m.VersionOrDefault(),
		},
		// The build script points at the sources directly; no source
		// entry is rendered.
		Build: recipe.Build{
			Number: 0,
			Script: buildScript(m.Root(), conda.CurrentPlatform().IsWindows()),
		},
		Requirements: reqs,
		About: recipe.About{
			License:       m.Project.License,
			LicenseFamily: m.Project.LicenseFamily,
		},
	}, nil
}

// GetCondaMetadata computes the package metadata the project would
// produce for the requested host platform.
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
	if err := b.checkTargetPlatform(hostPlatform.Platform); err != nil {
		return nil, err
	}

	rec, err := b.Recipe(hostPlatform.Platform)
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

// BuildConda builds the package archive for the requested host platform.
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
	if err := b.checkTargetPlatform(hostPlatform.Platform); err != nil {
		return nil, err
	}
	buildPlatform := build.PlatformWithVirtualPackages{
		Platform:        conda.CurrentPlatform(),
		VirtualPackages: backend.VirtualPackages(params.BuildPlatformVirtualPackages),
	}

	rec, err := b.Recipe(hostPlatform.Platform)
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
// package.
func InputGlobs() []string {
	return []string{
		// Source files
		"**/*.{c,cc,cxx,cpp,h,hpp,hxx}",
		// CMake files
		"**/*.{cmake,cmake.in}",
		"**/CMakeFiles.txt",
	}
}
