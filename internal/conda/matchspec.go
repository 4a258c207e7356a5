package conda

import (
	"fmt"
	"strings"
)

// MatchSpec is a package requirement: a name and a version constraint.
// It is the unit the recipe requirements and resolved metadata are
// expressed in.
type MatchSpec struct {
	Name    PackageName
	Version VersionSpec
}

// NewMatchSpec builds a MatchSpec from parsed parts.
func NewMatchSpec(name PackageName, version VersionSpec) MatchSpec {
	return MatchSpec{Name: name, Version: version}
}

// ParseMatchSpec parses "name" or "name constraint" forms,
// e.g. "numpy >=1.0" or "python".
func ParseMatchSpec(s string) (MatchSpec, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return MatchSpec{}, fmt.Errorf("empty match spec")
	}

	namePart := trimmed
	specPart := ""
	if i := strings.IndexAny(trimmed, " \t<>=!~"); i >= 0 {
		namePart = trimmed[:i]
		specPart = strings.TrimSpace(trimmed[i:])
	}

	name, err := ParsePackageName(namePart)
	if err != nil {
		return MatchSpec{}, fmt.Errorf("invalid match spec %q: %w", s, err)
	}
	version, err := ParseVersionSpec(specPart)
	if err != nil {
		return MatchSpec{}, fmt.Errorf("invalid match spec %q: %w", s, err)
	}
	return MatchSpec{Name: name, Version: version}, nil
}

// MustMatchSpec is ParseMatchSpec for known-good literals.
func MustMatchSpec(s string) MatchSpec {
	m, err := ParseMatchSpec(s)
	if err != nil {
		panic(err)
	}
	return m
}

// String renders "name constraint", or just the name when the constraint
// matches anything.
func (m MatchSpec) String() string {
	if m.Version.IsAny() {
		return m.Name.String()
	}
	return m.Name.String() + " " + m.Version.String()
}

// MarshalYAML renders the spec in its string form inside recipes.
func (m MatchSpec) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}
