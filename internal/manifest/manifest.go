// Package manifest loads and models the project manifest (pixi.toml):
// the [project] table, the run/host/build dependency tables, per-target
// overlays, and named feature blocks. Loading validates structure; recipe
// construction decides what is required beyond that.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"pixibuild/internal/conda"
	"pixibuild/internal/errors"
)

// DefaultVersion is the sentinel used when the manifest declares no
// version. It orders before every real release.
const DefaultVersion = "0dev0"

// DefaultChannelAlias prefixes bare channel names when no channel
// configuration overrides it.
const DefaultChannelAlias = "https://conda.anaconda.org"

// Manifest is a loaded project manifest.
type Manifest struct {
	// Path is the absolute path of the manifest file
	Path string

	// Project carries the [project] table
	Project Project

	// Default is the dependency set of the unnamed default feature
	Default Feature

	// Features holds named [feature.<name>] blocks
	Features map[string]Feature
}

// Project is the [project] table of the manifest.
type Project struct {
	// Name of the project; required before a recipe can be built
	Name string

	// Version of the project; defaults to DefaultVersion when empty
	Version string

	// Description is a free-form summary
	Description string

	// Channels the project resolves against, as names or full URLs
	Channels []string

	// Platforms the project supports; empty means unrestricted
	Platforms []string

	// License is an SPDX expression
	License string

	// LicenseFamily is the coarse license grouping
	LicenseFamily string
}

type rawManifest struct {
	Project           rawProject            `toml:"project"`
	Dependencies      map[string]any        `toml:"dependencies"`
	HostDependencies  map[string]any        `toml:"host-dependencies"`
	BuildDependencies map[string]any        `toml:"build-dependencies"`
	Target            map[string]rawTarget  `toml:"target"`
	Feature           map[string]rawFeature `toml:"feature"`
}

type rawProject struct {
	Name          string   `toml:"name"`
	Version       string   `toml:"version"`
	Description   string   `toml:"description"`
	Channels      []string `toml:"channels"`
	Platforms     []string `toml:"platforms"`
	License       string   `toml:"license"`
	LicenseFamily string   `toml:"license-family"`
}

type rawTarget struct {
	Dependencies      map[string]any `toml:"dependencies"`
	HostDependencies  map[string]any `toml:"host-dependencies"`
	BuildDependencies map[string]any `toml:"build-dependencies"`
}

type rawFeature struct {
	Dependencies      map[string]any       `toml:"dependencies"`
	HostDependencies  map[string]any       `toml:"host-dependencies"`
	BuildDependencies map[string]any       `toml:"build-dependencies"`
	Target            map[string]rawTarget `toml:"target"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid, fmt.Sprintf("failed to locate manifest %s", path), err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid, fmt.Sprintf("failed to read manifest %s", path), err)
	}

	return Parse(data, abs)
}

// Parse decodes manifest bytes. The path is recorded for root resolution
// and diagnostics.
func Parse(data []byte, path string) (*Manifest, error) {
	var raw rawManifest
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid, fmt.Sprintf("failed to parse manifest %s", path), err)
	}

	for _, p := range raw.Project.Platforms {
		if _, err := conda.ParsePlatform(p); err != nil {
			return nil, errors.Wrap(errors.ConfigInvalid, fmt.Sprintf("manifest %s declares an invalid platform", path), err)
		}
	}

	def, err := buildFeature(raw.Dependencies, raw.HostDependencies, raw.BuildDependencies, raw.Target)
	if err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid, fmt.Sprintf("invalid dependency in manifest %s", path), err)
	}

	features := make(map[string]Feature, len(raw.Feature))
	for name, rf := range raw.Feature {
		f, err := buildFeature(rf.Dependencies, rf.HostDependencies, rf.BuildDependencies, rf.Target)
		if err != nil {
			return nil, errors.Wrap(errors.ConfigInvalid, fmt.Sprintf("invalid dependency in feature %q of manifest %s", name, path), err)
		}
		features[name] = f
	}

	return &Manifest{
		Path: path,
		Project: Project{
			Name:          raw.Project.Name,
			Version:       raw.Project.Version,
			Description:   raw.Project.Description,
			Channels:      raw.Project.Channels,
			Platforms:     raw.Project.Platforms,
			License:       raw.Project.License,
			LicenseFamily: raw.Project.LicenseFamily,
		},
		Default:  def,
		Features: features,
	}, nil
}

// Root returns the directory containing the manifest file.
func (m *Manifest) Root() string {
	return filepath.Dir(m.Path)
}

// VersionOrDefault returns the project version, or the DefaultVersion
// sentinel when none is declared.
func (m *Manifest) VersionOrDefault() string {
	if m.Project.Version == "" {
		return DefaultVersion
	}
	return m.Project.Version
}

// SupportsTargetPlatform reports whether the project declares support for
// the platform. A manifest without a platforms list supports everything.
func (m *Manifest) SupportsTargetPlatform(p conda.Platform) bool {
	if len(m.Project.Platforms) == 0 {
		return true
	}
	for _, declared := range m.Project.Platforms {
		if conda.Platform(declared) == p {
			return true
		}
	}
	return false
}

// Channels resolves the manifest's channel list against an alias base URL:
// entries that are already URLs pass through, bare names are appended to
// the alias. An empty alias falls back to DefaultChannelAlias.
func (m *Manifest) Channels(alias string) []string {
	if alias == "" {
		alias = DefaultChannelAlias
	}
	alias = strings.TrimRight(alias, "/")

	resolved := make([]string, 0, len(m.Project.Channels))
	for _, ch := range m.Project.Channels {
		if strings.Contains(ch, "://") {
			resolved = append(resolved, strings.TrimRight(ch, "/"))
			continue
		}
		resolved = append(resolved, alias+"/"+ch)
	}
	return resolved
}
