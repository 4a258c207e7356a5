// Package build assembles the per-request build configuration handed to
// the engine: platform triple, directories, variant hash, and the
// temporary rendered recipe artifact an operation runs against.
package build

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pixibuild/internal/conda"
	"pixibuild/internal/errors"
	"pixibuild/internal/recipe"
)

// VirtualPackage is a system capability (such as __glibc) reported by the
// caller for a platform.
type VirtualPackage struct {
	Name        string
	Version     string
	BuildString string
}

// PlatformWithVirtualPackages pairs a platform with the virtual packages
// present on it.
type PlatformWithVirtualPackages struct {
	Platform        conda.Platform
	VirtualPackages []VirtualPackage
}

// Directories are the filesystem locations of one build, all rooted in
// the request's work directory.
type Directories struct {
	// WorkDir is the request-scoped working directory
	WorkDir string

	// BuildDir holds intermediate build state
	BuildDir string

	// HostPrefix is the installation prefix for host dependencies
	HostPrefix string

	// BuildPrefix is the installation prefix for build dependencies
	BuildPrefix string

	// OutputDir receives finished package archives
	OutputDir string
}

// SetupDirectories creates the directory layout under a work directory.
func SetupDirectories(workDir string) (Directories, error) {
	dirs := Directories{
		WorkDir:     workDir,
		BuildDir:    filepath.Join(workDir, "bld"),
		HostPrefix:  filepath.Join(workDir, "host_env"),
		BuildPrefix: filepath.Join(workDir, "build_env"),
		OutputDir:   filepath.Join(workDir, "output"),
	}
	for _, dir := range []string{dirs.WorkDir, dirs.BuildDir, dirs.HostPrefix, dirs.BuildPrefix, dirs.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return Directories{}, errors.Wrap(errors.ArtifactIO,
				fmt.Sprintf("failed to create build directory %s", dir), err)
		}
	}
	return dirs, nil
}

// Configuration captures everything the engine needs for one output
// besides the recipe itself.
type Configuration struct {
	// TargetPlatform is the subdir the package is built for; "noarch"
	// for architecture-independent recipes
	TargetPlatform conda.Platform

	// HostPlatform is where the package will run
	HostPlatform PlatformWithVirtualPackages

	// BuildPlatform is where the build executes
	BuildPlatform PlatformWithVirtualPackages

	// Variant keys feed the build string hash
	Variant map[string]string

	// Directories of this build
	Directories Directories

	// Channels are the resolved channel base URLs, highest priority first
	Channels []string

	// Timestamp marks when the configuration was assembled
	Timestamp time.Time

	// Hash identifies the variant in the build string
	Hash HashInfo
}

// NewConfiguration assembles the configuration for one request: the
// directory layout is created, the target platform collapses to "noarch"
// for noarch recipes, and the variant hash is computed.
func NewConfiguration(rec *recipe.Recipe, channels []string, buildPlatform, hostPlatform PlatformWithVirtualPackages, workDir string, variant map[string]string) (Configuration, error) {
	dirs, err := SetupDirectories(workDir)
	if err != nil {
		return Configuration{}, err
	}

	target := hostPlatform.Platform
	if !rec.Build.NoArch.IsNone() {
		target = conda.NoArchPlatform
	}

	return Configuration{
		TargetPlatform: target,
		HostPlatform:   hostPlatform,
		BuildPlatform:  buildPlatform,
		Variant:        variant,
		Directories:    dirs,
		Channels:       channels,
		Timestamp:      time.Now().UTC(),
		Hash:           NewHashInfo(variant, rec.Build.NoArch),
	}, nil
}

// BuildString renders the build string for the recipe's build number,
// e.g. "h1a2b3c4_0" or "pyh1a2b3c4_0" for noarch python.
func (c Configuration) BuildString(number int) string {
	return fmt.Sprintf("%s_%d", c.Hash, number)
}

// Output pairs a recipe with its configuration; it is the unit of work
// handed to the engine.
type Output struct {
	Recipe        *recipe.Recipe
	Configuration Configuration
}

// ResolvedDependencies is the engine's resolution result for an output.
type ResolvedDependencies struct {
	// Depends are the finalized run requirements
	Depends []string

	// Constraints are the finalized run constraints
	Constraints []string
}
