// Package conda provides the value types shared across the build backends:
// package names, versions, version constraints, match specs, and platforms.
// Semantics follow the conda ecosystem rules so that recipes and resolved
// metadata agree with what conda tooling produces.
package conda

import (
	"fmt"
	"strings"
)

// PackageName is a normalized conda package name. Names are matched
// case-insensitively, so the normalized (lowercase) form is the identity.
type PackageName struct {
	normalized string
}

// ParsePackageName validates and normalizes a package name.
// Valid names consist of letters, digits, dots, hyphens, and underscores.
func ParsePackageName(s string) (PackageName, error) {
	if s == "" {
		return PackageName{}, fmt.Errorf("package name cannot be empty")
	}
	lower := strings.ToLower(s)
	for _, r := range lower {
		if !isNameRune(r) {
			return PackageName{}, fmt.Errorf("invalid character %q in package name %q", r, s)
		}
	}
	return PackageName{normalized: lower}, nil
}

// MustPackageName is ParsePackageName for known-good literals.
func MustPackageName(s string) PackageName {
	n, err := ParsePackageName(s)
	if err != nil {
		panic(err)
	}
	return n
}

func isNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '.' || r == '-' || r == '_':
		return true
	}
	return false
}

// String returns the normalized name.
func (n PackageName) String() string {
	return n.normalized
}

// IsZero reports whether the name is the zero value.
func (n PackageName) IsZero() bool {
	return n.normalized == ""
}
