// Package backend carries the plumbing shared by the ecosystem backends:
// resolving request parameters, pairing recipes with build
// configurations, and running the engine inside the lifetime of the
// rendered recipe artifact. The ecosystem packages supply the recipe.
package backend

import (
	"context"
	"log/slog"

	"pixibuild/internal/build"
	"pixibuild/internal/conda"
	"pixibuild/internal/engine"
	"pixibuild/internal/errors"
	"pixibuild/internal/manifest"
	"pixibuild/internal/protocol"
	"pixibuild/internal/recipe"
)

// Base is the state shared by every backend instance: the manifest it
// was initialized for and the engine it delegates resolution and
// building to.
type Base struct {
	Manifest *manifest.Manifest
	Engine   engine.Engine
	CacheDir string
	Logger   *slog.Logger
}

// Capabilities reports the full procedure set; both ecosystem backends
// implement metadata and build.
func Capabilities() protocol.BackendCapabilities {
	return protocol.BackendCapabilities{
		ProvidesCondaMetadata: true,
		ProvidesCondaBuild:    true,
	}
}

// Channels picks the channel list for a request: explicit base URLs win,
// otherwise the manifest channels resolved against the alias.
func (b *Base) Channels(baseURLs []string, cfg protocol.ChannelConfiguration) []string {
	if len(baseURLs) > 0 {
		return baseURLs
	}
	alias := cfg.BaseURL
	if alias == "" {
		alias = manifest.DefaultChannelAlias
	}
	return b.Manifest.Channels(alias)
}

// WorkDir validates the request's scratch directory.
func WorkDir(path string) (string, error) {
	if path == "" {
		return "", errors.New(errors.InvalidRequest, "workDirectory is required")
	}
	return path, nil
}

// Platform resolves an optional wire platform, defaulting to the
// current one.
func Platform(p *protocol.PlatformAndVirtualPackages) (build.PlatformWithVirtualPackages, error) {
	if p == nil {
		return build.PlatformWithVirtualPackages{Platform: conda.CurrentPlatform()}, nil
	}
	platform, err := conda.ParsePlatform(p.Platform)
	if err != nil {
		return build.PlatformWithVirtualPackages{},
			errors.Wrap(errors.InvalidRequest, "invalid platform in request", err)
	}
	return build.PlatformWithVirtualPackages{
		Platform:        platform,
		VirtualPackages: VirtualPackages(p.VirtualPackages),
	}, nil
}

// VirtualPackages converts wire virtual packages.
func VirtualPackages(wire []protocol.VirtualPackage) []build.VirtualPackage {
	if len(wire) == 0 {
		return nil
	}
	converted := make([]build.VirtualPackage, 0, len(wire))
	for _, vp := range wire {
		converted = append(converted, build.VirtualPackage{
			Name:        vp.Name,
			Version:     vp.Version,
			BuildString: vp.BuildString,
		})
	}
	return converted
}

// NewOutput pairs a fresh recipe with its build configuration and stamps
// the rendered build string.
func NewOutput(rec *recipe.Recipe, channels []string, buildPlatform, hostPlatform build.PlatformWithVirtualPackages, workDir string) (*build.Output, error) {
	cfg, err := build.NewConfiguration(rec, channels, buildPlatform, hostPlatform, workDir, nil)
	if err != nil {
		return nil, err
	}
	rec.Build.String = cfg.BuildString(rec.Build.Number)
	return &build.Output{Recipe: rec, Configuration: cfg}, nil
}

// Resolve runs the engine's resolver within the lifetime of the rendered
// recipe artifact. On failure the artifact stays on disk for diagnosis.
func (b *Base) Resolve(ctx context.Context, output *build.Output) (*build.ResolvedDependencies, error) {
	temp, err := build.NewTemporaryRenderedRecipe(output)
	if err != nil {
		return nil, err
	}

	var resolved *build.ResolvedDependencies
	if err := temp.WithRecipe(ctx, func(ctx context.Context) error {
		r, err := b.Engine.Resolve(ctx, output)
		if err != nil {
			return err
		}
		resolved = r
		return nil
	}); err != nil {
		b.Logger.Warn("Dependency resolution failed",
			"recipe", temp.Path(),
			"error", err)
		return nil, err
	}
	return resolved, nil
}

// Build runs the engine's builder within the lifetime of the rendered
// recipe artifact and returns the built archive path. On failure the
// artifact stays on disk for diagnosis.
func (b *Base) Build(ctx context.Context, output *build.Output) (string, error) {
	temp, err := build.NewTemporaryRenderedRecipe(output)
	if err != nil {
		return "", err
	}

	var archive string
	if err := temp.WithRecipe(ctx, func(ctx context.Context) error {
		path, err := b.Engine.Build(ctx, output)
		if err != nil {
			return err
		}
		archive = path
		return nil
	}); err != nil {
		b.Logger.Warn("Package build failed",
			"recipe", temp.Path(),
			"error", err)
		return "", err
	}
	return archive, nil
}

// MetadataResult assembles the wire record for a resolved output.
func MetadataResult(output *build.Output, resolved *build.ResolvedDependencies, globs []string) *protocol.CondaMetadataResult {
	rec := output.Recipe
	return &protocol.CondaMetadataResult{
		Packages: []protocol.CondaPackageMetadata{{
			Name:          rec.Package.Name,
			Version:       rec.Package.Version,
			Build:         rec.Build.String,
			BuildNumber:   rec.Build.Number,
			Subdir:        output.Configuration.TargetPlatform.String(),
			Depends:       resolved.Depends,
			Constraints:   resolved.Constraints,
			License:       rec.About.License,
			LicenseFamily: rec.About.LicenseFamily,
			NoArch:        rec.Build.NoArch.String(),
		}},
		InputGlobs: globs,
	}
}

// BuildResult assembles the wire record for one built archive.
func BuildResult(output *build.Output, archive string, globs []string) *protocol.CondaBuildResult {
	rec := output.Recipe
	return &protocol.CondaBuildResult{
		Packages: []protocol.CondaBuiltPackage{{
			OutputFile: archive,
			InputGlobs: globs,
			Name:       rec.Package.Name,
			Version:    rec.Package.Version,
			Build:      rec.Build.String,
			Subdir:     output.Configuration.TargetPlatform.String(),
		}},
	}
}
