package conda

import (
	"fmt"
	"strings"
)

// VersionSpec is a version constraint over conda versions: a
// comma-separated conjunction of relational constraints, exact pins,
// and "1.2.*" prefix patterns. "*" (or an empty spec) matches anything.
type VersionSpec struct {
	raw         string
	constraints []versionConstraint
}

type constraintOp int

const (
	opAny constraintOp = iota
	opEqual
	opNotEqual
	opLess
	opLessEqual
	opGreater
	opGreaterEqual
	opStartsWith
	opNotStartsWith
)

type versionConstraint struct {
	op      constraintOp
	version Version
}

// AnyVersion returns the unconstrained spec "*".
func AnyVersion() VersionSpec {
	return VersionSpec{raw: "*", constraints: []versionConstraint{{op: opAny}}}
}

// ParseVersionSpec parses a version constraint expression.
func ParseVersionSpec(s string) (VersionSpec, error) {
	compact := strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if compact == "" || compact == "*" {
		return AnyVersion(), nil
	}

	parts := strings.Split(compact, ",")
	constraints := make([]versionConstraint, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return VersionSpec{}, fmt.Errorf("empty constraint in version spec %q", s)
		}
		c, err := parseConstraint(part)
		if err != nil {
			return VersionSpec{}, fmt.Errorf("invalid version spec %q: %w", s, err)
		}
		constraints = append(constraints, c)
	}
	return VersionSpec{raw: compact, constraints: constraints}, nil
}

// MustVersionSpec is ParseVersionSpec for known-good literals.
func MustVersionSpec(s string) VersionSpec {
	vs, err := ParseVersionSpec(s)
	if err != nil {
		panic(err)
	}
	return vs
}

func parseConstraint(s string) (versionConstraint, error) {
	if s == "*" {
		return versionConstraint{op: opAny}, nil
	}

	op := opEqual
	rest := s
	switch {
	case strings.HasPrefix(s, "=="):
		rest = s[2:]
	case strings.HasPrefix(s, "!="):
		op = opNotEqual
		rest = s[2:]
	case strings.HasPrefix(s, ">="):
		op = opGreaterEqual
		rest = s[2:]
	case strings.HasPrefix(s, "<="):
		op = opLessEqual
		rest = s[2:]
	case strings.HasPrefix(s, ">"):
		op = opGreater
		rest = s[1:]
	case strings.HasPrefix(s, "<"):
		op = opLess
		rest = s[1:]
	case strings.HasPrefix(s, "="):
		// Single "=" is the fuzzy form: "=1.2" matches 1.2.*
		op = opStartsWith
		rest = s[1:]
	}

	if rest == "" {
		return versionConstraint{}, fmt.Errorf("missing version after operator in %q", s)
	}

	if trimmed, ok := trimWildcard(rest); ok {
		switch op {
		case opEqual, opStartsWith:
			op = opStartsWith
		case opNotEqual:
			op = opNotStartsWith
		default:
			// Relational constraints drop the wildcard: ">=1.8.*" means >=1.8.
		}
		rest = trimmed
	}

	v, err := ParseVersion(rest)
	if err != nil {
		return versionConstraint{}, err
	}
	return versionConstraint{op: op, version: v}, nil
}

func trimWildcard(s string) (string, bool) {
	switch {
	case strings.HasSuffix(s, ".*"):
		return s[:len(s)-2], true
	case strings.HasSuffix(s, "*"):
		return s[:len(s)-1], true
	}
	return s, false
}

// String returns the normalized constraint expression.
func (vs VersionSpec) String() string {
	if vs.raw == "" {
		return "*"
	}
	return vs.raw
}

// IsAny reports whether the spec matches every version.
func (vs VersionSpec) IsAny() bool {
	for _, c := range vs.constraints {
		if c.op != opAny {
			return false
		}
	}
	return true
}

// Matches reports whether v satisfies every constraint in the spec.
func (vs VersionSpec) Matches(v Version) bool {
	for _, c := range vs.constraints {
		if !c.matches(v) {
			return false
		}
	}
	return true
}

func (c versionConstraint) matches(v Version) bool {
	switch c.op {
	case opAny:
		return true
	case opEqual:
		return v.Equal(c.version)
	case opNotEqual:
		return !v.Equal(c.version)
	case opLess:
		return v.Compare(c.version) < 0
	case opLessEqual:
		return v.Compare(c.version) <= 0
	case opGreater:
		return v.Compare(c.version) > 0
	case opGreaterEqual:
		return v.Compare(c.version) >= 0
	case opStartsWith:
		return v.StartsWith(c.version)
	case opNotStartsWith:
		return !v.StartsWith(c.version)
	}
	return false
}
