package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"

	"pixibuild/internal/build"
	"pixibuild/internal/conda"
	"pixibuild/internal/errors"
	"pixibuild/internal/recipe"
	"pixibuild/internal/slogutil"
)

// defaultCompressionLevel matches the zstd default used for .conda
// payloads.
const defaultCompressionLevel = 3

// Options configure the local engine.
type Options struct {
	// CacheDir holds the channel index database; empty uses the user
	// cache directory
	CacheDir string

	// ChannelsFile is the channels.toml registry path; empty skips the
	// registry and only file:// channels resolve
	ChannelsFile string

	// KeepBuild leaves the intermediate build directory in place after
	// a successful build
	KeepBuild bool

	// CompressionLevel is the zstd level for package archives
	CompressionLevel int

	Logger *slog.Logger
}

// Local resolves and builds against locally mirrored channels. Remote
// channels are rejected; mirrors are declared in channels.toml or passed
// as file:// URLs.
type Local struct {
	registry  *Registry
	cacheDir  string
	keepBuild bool
	level     int
	logger    *slog.Logger
}

// NewLocal creates a local engine.
func NewLocal(opts Options) (*Local, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}

	registry := &Registry{}
	if opts.ChannelsFile != "" {
		reg, err := LoadRegistry(opts.ChannelsFile)
		if err != nil {
			return nil, err
		}
		registry = reg
	}

	cacheDir := opts.CacheDir
	if cacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to determine cache directory: %w", err)
		}
		cacheDir = filepath.Join(base, "pixi-build")
	}

	level := opts.CompressionLevel
	if level <= 0 {
		level = defaultCompressionLevel
	}

	return &Local{
		registry:  registry,
		cacheDir:  cacheDir,
		keepBuild: opts.KeepBuild,
		level:     level,
		logger:    logger,
	}, nil
}

// Resolve finalizes the run requirements of the output. When channels
// are configured, every host and run requirement is verified against
// the local channel index first; a spec with no satisfying candidate
// fails resolution.
func (l *Local) Resolve(ctx context.Context, output *build.Output) (*build.ResolvedDependencies, error) {
	if err := l.verify(ctx, output); err != nil {
		return nil, err
	}
	return &build.ResolvedDependencies{
		Depends:     renderSpecs(output.Recipe.Requirements.Run),
		Constraints: nil,
	}, nil
}

// Build runs the recipe's build script against the prepared prefixes and
// archives the host prefix into a package archive, returning its path.
func (l *Local) Build(ctx context.Context, output *build.Output) (string, error) {
	if err := l.verify(ctx, output); err != nil {
		return "", err
	}
	if err := l.runScript(ctx, output); err != nil {
		return "", err
	}

	dirs := output.Configuration.Directories
	archiveName := fmt.Sprintf("%s-%s-%s.tar.zst",
		output.Recipe.Package.Name,
		output.Recipe.Package.Version,
		output.Recipe.Build.String)
	archivePath := filepath.Join(dirs.OutputDir, archiveName)

	digest, err := writeArchive(archivePath, dirs.HostPrefix, l.level)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(archivePath+".sha256", []byte(digest+"  "+archiveName+"\n"), 0644); err != nil {
		return "", errors.Wrap(errors.ArtifactIO, "failed to record archive digest", err)
	}

	if !l.keepBuild {
		if err := os.RemoveAll(dirs.BuildDir); err != nil {
			l.logger.Warn("Failed to clean build directory",
				"dir", dirs.BuildDir,
				"error", err)
		}
	}

	l.logger.Info("Built package",
		"archive", archivePath,
		"sha256", digest)
	return archivePath, nil
}

// verify checks every host and run requirement against the channels of
// the output. No channels means nothing to verify.
func (l *Local) verify(ctx context.Context, output *build.Output) error {
	channels := output.Configuration.Channels
	if len(channels) == 0 {
		return nil
	}

	dirs := make(map[string]string, len(channels))
	for _, channel := range channels {
		dir, ok := l.registry.LocalDir(channel)
		if !ok {
			return errors.Newf(errors.EngineFailure,
				"channel %q is not available locally; add a mirror to channels.toml or use a file:// URL", channel)
		}
		dirs[channel] = dir
	}

	ix, err := OpenIndex(l.cacheDir, l.logger)
	if err != nil {
		return errors.Wrap(errors.EngineFailure, "failed to open channel index", err)
	}
	defer ix.Close()

	subdirs := resolutionSubdirs(output.Configuration)
	for _, channel := range channels {
		if err := ix.Refresh(ctx, channel, dirs[channel], subdirs); err != nil {
			return errors.Wrap(errors.EngineFailure, "failed to refresh channel index", err)
		}
	}

	specs := make([]conda.MatchSpec, 0,
		len(output.Recipe.Requirements.Host)+len(output.Recipe.Requirements.Run))
	specs = append(specs, output.Recipe.Requirements.Host...)
	specs = append(specs, output.Recipe.Requirements.Run...)
	for _, spec := range specs {
		if _, err := l.findBest(ctx, ix, channels, spec, subdirs); err != nil {
			return err
		}
	}
	return nil
}

// resolutionSubdirs lists the subdirs a dependency may come from: the
// host platform plus noarch.
func resolutionSubdirs(cfg build.Configuration) []string {
	subdirs := []string{"noarch"}
	if p := cfg.HostPlatform.Platform; p != "" && !p.IsNoArch() {
		subdirs = append([]string{p.String()}, subdirs...)
	}
	return subdirs
}

// findBest returns the highest-version record satisfying the spec.
// Channels are searched in priority order; the first channel with any
// match wins.
func (l *Local) findBest(ctx context.Context, ix *Index, channels []string, spec conda.MatchSpec, subdirs []string) (*PackageRecord, error) {
	for _, channel := range channels {
		candidates, err := ix.Candidates(ctx, channel, spec.Name.String(), subdirs)
		if err != nil {
			return nil, errors.Wrap(errors.EngineFailure, "failed to query channel index", err)
		}

		var best *PackageRecord
		var bestVersion conda.Version
		for i := range candidates {
			rec := &candidates[i]
			version, err := conda.ParseVersion(rec.Version)
			if err != nil {
				l.logger.Debug("Skipping candidate with unparseable version",
					"package", rec.Name,
					"version", rec.Version)
				continue
			}
			if !spec.Version.Matches(version) {
				continue
			}
			if best == nil || bestVersion.LessThan(version) {
				best = rec
				bestVersion = version
			}
		}
		if best != nil {
			return best, nil
		}
	}
	return nil, errors.Newf(errors.EngineFailure,
		"no package matches %q in the configured channels", spec.String())
}

// runScript executes the recipe's build commands with the conda build
// environment set.
func (l *Local) runScript(ctx context.Context, output *build.Output) error {
	dirs := output.Configuration.Directories
	srcDir := sourceDir(output)
	env := append(os.Environ(),
		"PREFIX="+dirs.HostPrefix,
		"BUILD_PREFIX="+dirs.BuildPrefix,
		"SRC_DIR="+srcDir,
		"PKG_NAME="+output.Recipe.Package.Name,
		"PKG_VERSION="+output.Recipe.Package.Version,
		"PKG_BUILDNUM="+strconv.Itoa(output.Recipe.Build.Number),
	)

	for _, command := range output.Recipe.Build.Script {
		var cmd *exec.Cmd
		if runtime.GOOS == "windows" {
			cmd = exec.CommandContext(ctx, "cmd", "/C", command)
		} else {
			cmd = exec.CommandContext(ctx, "sh", "-c", command)
		}
		cmd.Dir = srcDir
		cmd.Env = env

		combined, err := cmd.CombinedOutput()
		if err != nil {
			return errors.Wrap(errors.EngineFailure,
				fmt.Sprintf("build script failed: %s", command), err).
				WithDetails(map[string]string{"output": tail(string(combined), 4096)})
		}
		l.logger.Debug("Ran build command", "command", command)
	}
	return nil
}

// sourceDir picks the script working directory: the first path source,
// else the work directory.
func sourceDir(output *build.Output) string {
	for _, src := range output.Recipe.Sources {
		if p, ok := src.(recipe.PathSource); ok {
			return p.Path
		}
	}
	return output.Configuration.Directories.WorkDir
}

// renderSpecs finalizes match specs into their wire string form.
func renderSpecs(specs []conda.MatchSpec) []string {
	if len(specs) == 0 {
		return nil
	}
	rendered := make([]string, 0, len(specs))
	for _, spec := range specs {
		rendered = append(rendered, spec.String())
	}
	return rendered
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
