// Package dependencies classifies manifest dependencies into build, host,
// and run phases and converts them into match specs. The per-ecosystem
// backends supply policy (required host tools, installer choice); the
// mechanics live here once.
package dependencies

import (
	"pixibuild/internal/conda"
	"pixibuild/internal/errors"
	"pixibuild/internal/manifest"
	"pixibuild/internal/paths"
)

// Sets groups the classified dependencies of one build.
type Sets struct {
	Build manifest.DependencyMap
	Host  manifest.DependencyMap
	Run   manifest.DependencyMap
}

// Classify extracts the three phase sets from the manifest's default
// feature for a target platform. An empty platform ignores all target
// overlays.
func Classify(m *manifest.Manifest, platform conda.Platform) Sets {
	return Sets{
		Build: m.Default.Dependencies(manifest.Build, platform),
		Host:  m.Default.Dependencies(manifest.Host, platform),
		Run:   m.Default.Dependencies(manifest.Run, platform),
	}
}

// Contains reports whether any phase declares the named dependency.
func (s Sets) Contains(name string) bool {
	if _, ok := s.Build[name]; ok {
		return true
	}
	if _, ok := s.Host[name]; ok {
		return true
	}
	_, ok := s.Run[name]
	return ok
}

// EnsureHostTools guarantees each required tool appears in the host set:
// a tool already in host is left alone, a tool declared in run is copied
// into host with its run constraint, and an undeclared tool is inserted
// unconstrained.
func (s Sets) EnsureHostTools(tools ...string) {
	for _, tool := range tools {
		if _, ok := s.Host[tool]; ok {
			continue
		}
		if spec, ok := s.Run[tool]; ok {
			s.Host[tool] = spec
			continue
		}
		s.Host[tool] = manifest.Spec{Version: "*"}
	}
}

// Installer picks the Python package installer: uv when the manifest
// mentions it in any phase, pip otherwise.
func (s Sets) Installer() string {
	if s.Contains("uv") {
		return "uv"
	}
	return "pip"
}

// MatchSpecExtractor converts dependency maps into match specs.
type MatchSpecExtractor struct {
	// ProjectRoot is the directory of the manifest being built
	ProjectRoot string

	// IgnoreSelf drops a path dependency that resolves back to the
	// project root instead of failing on it
	IgnoreSelf bool
}

// Extract converts a dependency map into match specs in name-sorted
// order. Source dependencies are rejected, except the project's own path
// when IgnoreSelf is set.
func (e *MatchSpecExtractor) Extract(deps manifest.DependencyMap) ([]conda.MatchSpec, error) {
	specs := make([]conda.MatchSpec, 0, len(deps))
	for _, name := range deps.SortedNames() {
		spec := deps[name]

		if spec.IsSource() {
			if spec.Path != "" && e.IgnoreSelf {
				resolved := paths.Resolve(e.ProjectRoot, spec.Path)
				same, err := paths.Same(resolved, e.ProjectRoot)
				if err == nil && same {
					continue
				}
			}
			return nil, errors.New(errors.SourceDepUnsupported,
				"recursive source dependencies are not yet supported").
				WithDetails(map[string]string{"dependency": name, "kind": spec.SourceKind()})
		}

		pkgName, err := conda.ParsePackageName(name)
		if err != nil {
			return nil, errors.Wrap(errors.SpecInvalid,
				"dependency has an invalid package name", err).
				WithDetails(map[string]string{"dependency": name})
		}
		version, err := spec.VersionSpec()
		if err != nil {
			return nil, errors.Wrap(errors.SpecInvalid,
				"dependency has an invalid version constraint", err).
				WithDetails(map[string]string{"dependency": name, "constraint": spec.Version})
		}
		specs = append(specs, conda.NewMatchSpec(pkgName, version))
	}
	return specs, nil
}
