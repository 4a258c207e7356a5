// Package recipe models the build recipe the backends generate from a
// project manifest, and renders it to YAML. A recipe is immutable once
// constructed: every protocol request builds a fresh one.
package recipe

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"pixibuild/internal/conda"
)

// SchemaVersion is the recipe schema generation emitted in every render.
const SchemaVersion = 1

// Recipe is a fully resolved build recipe.
type Recipe struct {
	SchemaVersion int          `yaml:"schema_version"`
	Package       Package      `yaml:"package"`
	Sources       []Source     `yaml:"source,omitempty"`
	Build         Build        `yaml:"build"`
	Requirements  Requirements `yaml:"requirements"`
	About         About        `yaml:"about,omitempty"`
}

// Package identifies the output package.
type Package struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// Source is one entry of the recipe's source list. The variant set is
// closed: path, git, or url.
type Source interface {
	isSource()
}

// PathSource points at sources on the local filesystem.
type PathSource struct {
	Path string `yaml:"path"`
}

func (PathSource) isSource() {}

// GitSource points at a git repository, optionally pinned to a revision,
// branch, or tag.
type GitSource struct {
	Git    string `yaml:"git"`
	Rev    string `yaml:"rev,omitempty"`
	Branch string `yaml:"branch,omitempty"`
	Tag    string `yaml:"tag,omitempty"`
}

func (GitSource) isSource() {}

// URLSource points at a downloadable source archive.
type URLSource struct {
	URL    string `yaml:"url"`
	Sha256 string `yaml:"sha256,omitempty"`
}

func (URLSource) isSource() {}

// Build describes how the package is produced.
type Build struct {
	Number int          `yaml:"number"`
	String string       `yaml:"string,omitempty"`
	Script []string     `yaml:"script,omitempty"`
	NoArch conda.NoArch `yaml:"noarch,omitempty"`
}

// Requirements lists the match specs per dependency phase.
type Requirements struct {
	Build []conda.MatchSpec `yaml:"build,omitempty"`
	Host  []conda.MatchSpec `yaml:"host,omitempty"`
	Run   []conda.MatchSpec `yaml:"run,omitempty"`
}

// About carries licensing metadata copied from the manifest.
type About struct {
	License       string `yaml:"license,omitempty"`
	LicenseFamily string `yaml:"license_family,omitempty"`
}

// Render serializes the recipe to YAML.
func (r *Recipe) Render() ([]byte, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to render recipe: %w", err)
	}
	return data, nil
}
