package conda

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a parsed conda version. Ordering follows the conda version
// ordering rules: an optional numeric epoch ("1!2.0"), dot-separated
// segments of numeral and literal runs, and an optional local part after
// "+". Literal runs sort below numerals, "dev" sorts below every other
// literal, and "post" sorts above every numeral.
type Version struct {
	norm  string
	epoch int64
	parts [][]component
	local [][]component
}

type componentKind int

const (
	kindLiteral componentKind = iota
	kindNumeral
	kindInf // "post"
)

type component struct {
	kind componentKind
	num  int64
	str  string
}

var zeroComponent = component{kind: kindNumeral}

// ParseVersion parses a conda version string.
func ParseVersion(s string) (Version, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	if norm == "" {
		return Version{}, fmt.Errorf("empty version string")
	}

	if !validVersionChars(norm) {
		// Dashes are tolerated as segment separators as long as the
		// string carries no underscores.
		if strings.ContainsRune(norm, '-') && !strings.ContainsRune(norm, '_') {
			norm = strings.ReplaceAll(norm, "-", "_")
		}
		if !validVersionChars(norm) {
			return Version{}, fmt.Errorf("invalid character in version %q", s)
		}
	}

	v := Version{norm: norm}

	rest := norm
	if i := strings.IndexByte(rest, '!'); i >= 0 {
		if strings.IndexByte(rest[i+1:], '!') >= 0 {
			return Version{}, fmt.Errorf("duplicated epoch separator in version %q", s)
		}
		epoch, err := strconv.ParseInt(rest[:i], 10, 64)
		if err != nil {
			return Version{}, fmt.Errorf("epoch must be an integer in version %q", s)
		}
		v.epoch = epoch
		rest = rest[i+1:]
	}

	mainPart := rest
	if i := strings.IndexByte(rest, '+'); i >= 0 {
		if strings.IndexByte(rest[i+1:], '+') >= 0 {
			return Version{}, fmt.Errorf("duplicated local separator in version %q", s)
		}
		mainPart = rest[:i]
		localPart := rest[i+1:]
		local, err := parseSegments(localPart)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
		v.local = local
	}

	parts, err := parseSegments(mainPart)
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	v.parts = parts
	return v, nil
}

// MustVersion is ParseVersion for known-good literals.
func MustVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

func validVersionChars(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '+' || r == '!' || r == '_':
		default:
			return false
		}
	}
	return true
}

func parseSegments(s string) ([][]component, error) {
	s = strings.ReplaceAll(s, "_", ".")
	raw := strings.Split(s, ".")
	segments := make([][]component, 0, len(raw))
	for _, seg := range raw {
		if seg == "" {
			return nil, fmt.Errorf("empty version component")
		}
		parsed, err := parseSegment(seg)
		if err != nil {
			return nil, err
		}
		segments = append(segments, parsed)
	}
	return segments, nil
}

func parseSegment(seg string) ([]component, error) {
	var comps []component
	// Segments must start with a numeral to keep numerals and literals in
	// phase across versions, so a leading literal gets an implicit zero.
	if !isDigit(seg[0]) {
		comps = append(comps, zeroComponent)
	}
	for i := 0; i < len(seg); {
		j := i
		if isDigit(seg[i]) {
			for j < len(seg) && isDigit(seg[j]) {
				j++
			}
			num, err := strconv.ParseInt(seg[i:j], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("version component %q out of range", seg[i:j])
			}
			comps = append(comps, component{kind: kindNumeral, num: num})
		} else {
			for j < len(seg) && !isDigit(seg[j]) {
				j++
			}
			comps = append(comps, literalComponent(seg[i:j]))
		}
		i = j
	}
	return comps, nil
}

func literalComponent(s string) component {
	switch s {
	case "post":
		return component{kind: kindInf}
	case "dev":
		// Upper-case marker so "dev" sorts below every lowercase literal.
		return component{kind: kindLiteral, str: "DEV"}
	default:
		return component{kind: kindLiteral, str: s}
	}
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// String returns the normalized version string.
func (v Version) String() string {
	return v.norm
}

// IsZero reports whether the version is the zero value (never a parsed one).
func (v Version) IsZero() bool {
	return v.norm == ""
}

// Compare returns -1, 0, or 1 ordering v against other.
func (v Version) Compare(other Version) int {
	if v.epoch != other.epoch {
		if v.epoch < other.epoch {
			return -1
		}
		return 1
	}
	if c := compareSegmentLists(v.parts, other.parts); c != 0 {
		return c
	}
	return compareSegmentLists(v.local, other.local)
}

// Equal reports whether two versions order the same ("1.1" equals "1.1.0").
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

// LessThan reports whether v orders before other.
func (v Version) LessThan(other Version) bool {
	return v.Compare(other) < 0
}

// StartsWith reports whether v matches prefix in the "1.2.*" sense:
// all prefix segments but the last must order equal, and the last must
// either order equal (numeral) or be a literal prefix.
func (v Version) StartsWith(prefix Version) bool {
	if v.epoch != prefix.epoch {
		return false
	}
	t1, t2 := v.parts, prefix.parts
	if len(prefix.local) > 0 {
		if compareSegmentLists(v.parts, prefix.parts) != 0 {
			return false
		}
		t1, t2 = v.local, prefix.local
	}

	n := len(t2) - 1
	if n < 0 {
		return true
	}
	head1 := t1
	if len(head1) > n {
		head1 = head1[:n]
	}
	if compareSegmentLists(head1, t2[:n]) != 0 {
		return false
	}

	var last1 []component
	if len(t1) > n {
		last1 = t1[n]
	}
	lastPrefix := t2[n]
	m := len(lastPrefix) - 1
	lead1 := last1
	if len(lead1) > m {
		lead1 = lead1[:m]
	}
	if compareSegments(lead1, lastPrefix[:m]) != 0 {
		return false
	}

	c1 := zeroComponent
	if len(last1) > m {
		c1 = last1[m]
	}
	co := lastPrefix[m]
	if co.kind == kindLiteral {
		return c1.kind == kindLiteral && strings.HasPrefix(c1.str, co.str)
	}
	return compareComponents(c1, co) == 0
}

func compareSegmentLists(a, b [][]component) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var sa, sb []component
		if i < len(a) {
			sa = a[i]
		}
		if i < len(b) {
			sb = b[i]
		}
		if c := compareSegments(sa, sb); c != 0 {
			return c
		}
	}
	return 0
}

func compareSegments(a, b []component) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ca, cb := zeroComponent, zeroComponent
		if i < len(a) {
			ca = a[i]
		}
		if i < len(b) {
			cb = b[i]
		}
		if c := compareComponents(ca, cb); c != 0 {
			return c
		}
	}
	return 0
}

func compareComponents(a, b component) int {
	if a.kind == b.kind {
		switch a.kind {
		case kindInf:
			return 0
		case kindNumeral:
			switch {
			case a.num < b.num:
				return -1
			case a.num > b.num:
				return 1
			}
			return 0
		default:
			return strings.Compare(a.str, b.str)
		}
	}
	// Literals order below numerals, "post" above them.
	if a.kind == kindLiteral {
		return -1
	}
	if b.kind == kindLiteral {
		return 1
	}
	if a.kind == kindInf {
		return 1
	}
	return -1
}
