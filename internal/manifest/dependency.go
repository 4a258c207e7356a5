package manifest

import (
	"fmt"
	"sort"

	"pixibuild/internal/conda"
)

// Kind selects one of the three dependency phases.
type Kind int

const (
	// Run dependencies come from [dependencies]
	Run Kind = iota
	// Host dependencies come from [host-dependencies]
	Host
	// Build dependencies come from [build-dependencies]
	Build
)

// String returns the manifest table name for the kind.
func (k Kind) String() string {
	switch k {
	case Run:
		return "dependencies"
	case Host:
		return "host-dependencies"
	case Build:
		return "build-dependencies"
	}
	return "unknown"
}

// Spec is a single dependency requirement. Exactly one of the version
// form or a source form (path, git, url) is populated.
type Spec struct {
	// Version constraint expression; empty means unconstrained
	Version string

	// Build string matcher, carried alongside a version constraint
	Build string

	// Path of a source dependency relative to the manifest root
	Path string

	// Git repository URL with optional Rev, Branch, or Tag
	Git    string
	Rev    string
	Branch string
	Tag    string

	// URL of a source archive
	URL string
}

// IsSource reports whether the spec points at source rather than a
// binary requirement.
func (s Spec) IsSource() bool {
	return s.Path != "" || s.Git != "" || s.URL != ""
}

// SourceKind names the source variant for error messages.
func (s Spec) SourceKind() string {
	switch {
	case s.Path != "":
		return "path"
	case s.Git != "":
		return "git"
	case s.URL != "":
		return "url"
	}
	return ""
}

// VersionSpec parses the version constraint. Empty constraints are
// unconstrained.
func (s Spec) VersionSpec() (conda.VersionSpec, error) {
	return conda.ParseVersionSpec(s.Version)
}

// DependencyMap maps package names to their specs. Iteration must go
// through SortedNames for deterministic output.
type DependencyMap map[string]Spec

// SortedNames returns the dependency names in sorted order.
func (d DependencyMap) SortedNames() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TargetOverlay is a [target.<selector>.*] block.
type TargetOverlay struct {
	Run   DependencyMap
	Host  DependencyMap
	Build DependencyMap
}

// Feature is one dependency grouping: three phase tables plus per-target
// overlays keyed by selector.
type Feature struct {
	Run     DependencyMap
	Host    DependencyMap
	Build   DependencyMap
	Targets map[string]TargetOverlay
}

// Dependencies returns the dependency map for a phase, merged with every
// target overlay whose selector matches the platform. Overlay entries
// replace base entries of the same name. An empty platform skips all
// overlays.
func (f *Feature) Dependencies(kind Kind, platform conda.Platform) DependencyMap {
	merged := DependencyMap{}
	for name, spec := range f.phase(kind) {
		merged[name] = spec
	}
	if platform == "" {
		return merged
	}

	// Merge matching overlays in deterministic selector order.
	selectors := make([]string, 0, len(f.Targets))
	for sel := range f.Targets {
		selectors = append(selectors, sel)
	}
	sort.Strings(selectors)
	for _, sel := range selectors {
		if !selectorMatches(sel, platform) {
			continue
		}
		overlay := f.Targets[sel]
		var table DependencyMap
		switch kind {
		case Run:
			table = overlay.Run
		case Host:
			table = overlay.Host
		case Build:
			table = overlay.Build
		}
		for name, spec := range table {
			merged[name] = spec
		}
	}
	return merged
}

func (f *Feature) phase(kind Kind) DependencyMap {
	switch kind {
	case Run:
		return f.Run
	case Host:
		return f.Host
	case Build:
		return f.Build
	}
	return nil
}

// selectorMatches resolves a target selector against a platform: the
// exact subdir name or one of the family selectors (linux, osx, win,
// unix).
func selectorMatches(selector string, p conda.Platform) bool {
	switch selector {
	case string(p):
		return true
	case "linux":
		return p.IsLinux()
	case "osx":
		return p.IsOSX()
	case "win":
		return p.IsWindows()
	case "unix":
		return !p.IsWindows()
	}
	return false
}

func buildFeature(run, host, build map[string]any, targets map[string]rawTarget) (Feature, error) {
	f := Feature{Targets: map[string]TargetOverlay{}}

	var err error
	if f.Run, err = buildDependencyMap(run); err != nil {
		return Feature{}, err
	}
	if f.Host, err = buildDependencyMap(host); err != nil {
		return Feature{}, err
	}
	if f.Build, err = buildDependencyMap(build); err != nil {
		return Feature{}, err
	}

	for selector, rt := range targets {
		overlay := TargetOverlay{}
		if overlay.Run, err = buildDependencyMap(rt.Dependencies); err != nil {
			return Feature{}, fmt.Errorf("target %q: %w", selector, err)
		}
		if overlay.Host, err = buildDependencyMap(rt.HostDependencies); err != nil {
			return Feature{}, fmt.Errorf("target %q: %w", selector, err)
		}
		if overlay.Build, err = buildDependencyMap(rt.BuildDependencies); err != nil {
			return Feature{}, fmt.Errorf("target %q: %w", selector, err)
		}
		f.Targets[selector] = overlay
	}
	return f, nil
}

func buildDependencyMap(raw map[string]any) (DependencyMap, error) {
	deps := DependencyMap{}
	for name, value := range raw {
		spec, err := parseSpec(name, value)
		if err != nil {
			return nil, err
		}
		deps[name] = spec
	}
	return deps, nil
}

func parseSpec(name string, value any) (Spec, error) {
	switch v := value.(type) {
	case string:
		return Spec{Version: v}, nil
	case map[string]any:
		var s Spec
		for key, val := range v {
			str, ok := val.(string)
			if !ok {
				return Spec{}, fmt.Errorf("dependency %q: field %q must be a string", name, key)
			}
			switch key {
			case "version":
				s.Version = str
			case "build":
				s.Build = str
			case "path":
				s.Path = str
			case "git":
				s.Git = str
			case "rev":
				s.Rev = str
			case "branch":
				s.Branch = str
			case "tag":
				s.Tag = str
			case "url":
				s.URL = str
			default:
				return Spec{}, fmt.Errorf("dependency %q: unknown field %q", name, key)
			}
		}

		sources := 0
		for _, set := range []string{s.Path, s.Git, s.URL} {
			if set != "" {
				sources++
			}
		}
		if sources > 1 {
			return Spec{}, fmt.Errorf("dependency %q: at most one of path, git, and url may be set", name)
		}
		if sources > 0 && s.Version != "" {
			return Spec{}, fmt.Errorf("dependency %q: a source dependency cannot carry a version constraint", name)
		}
		return s, nil
	default:
		return Spec{}, fmt.Errorf("dependency %q: value must be a string or a table", name)
	}
}
