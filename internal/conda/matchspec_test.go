package conda

import (
	"testing"
)

func TestParsePackageName(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"numpy", "numpy", false},
		{"NumPy", "numpy", false},
		{"ruff-lsp", "ruff-lsp", false},
		{"my_pkg.ext", "my_pkg.ext", false},
		{"", "", true},
		{"has space", "", true},
		{"bad!char", "", true},
	}

	for _, tt := range tests {
		got, err := ParsePackageName(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParsePackageName(%q) should fail", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePackageName(%q) failed: %v", tt.input, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("ParsePackageName(%q) = %q, want %q", tt.input, got.String(), tt.want)
		}
	}
}

func TestVersionSpecMatches(t *testing.T) {
	tests := []struct {
		spec    string
		version string
		want    bool
	}{
		{"*", "1.0", true},
		{"", "0dev0", true},
		{">=1.0", "1.0", true},
		{">=1.0", "1.1", true},
		{">=1.0", "0.9", false},
		{">1.0", "1.0", false},
		{">1.0", "1.0.1", true},
		{"<2", "1.9", true},
		{"<2", "2.0", false},
		{"<=2.0", "2.0", true},
		{"==1.2.3", "1.2.3", true},
		{"==1.2.3", "1.2.3.1", false},
		{"==1.2", "1.2.0", true},
		{"!=1.5", "1.5", false},
		{"!=1.5", "1.6", true},
		{"1.2.*", "1.2.3", true},
		{"1.2.*", "1.2", true},
		{"1.2.*", "1.3", false},
		{"1.2.*", "1.20", false},
		{"!=1.2.*", "1.2.3", false},
		{"!=1.2.*", "1.3", true},
		{"=1.2", "1.2.9", true},
		{"=1.2", "1.3", false},
		{">=1.0,<2", "1.5", true},
		{">=1.0,<2", "2.0", false},
		{">=1.0,<2", "0.5", false},
		{">=1.8.*", "1.8", true},
		{"3.10", "3.10", true},
		{"3.10", "3.10.2", false},
	}

	for _, tt := range tests {
		vs, err := ParseVersionSpec(tt.spec)
		if err != nil {
			t.Errorf("ParseVersionSpec(%q) failed: %v", tt.spec, err)
			continue
		}
		v := MustVersion(tt.version)
		if got := vs.Matches(v); got != tt.want {
			t.Errorf("spec %q Matches(%q) = %v, want %v", tt.spec, tt.version, got, tt.want)
		}
	}
}

func TestVersionSpecErrors(t *testing.T) {
	invalid := []string{
		">=",
		">=1.0,",
		",<2",
		">=1.0@beta",
		"==1..2",
	}
	for _, s := range invalid {
		if _, err := ParseVersionSpec(s); err == nil {
			t.Errorf("ParseVersionSpec(%q) should fail", s)
		}
	}
}

func TestVersionSpecIsAny(t *testing.T) {
	if !AnyVersion().IsAny() {
		t.Error("AnyVersion should report IsAny")
	}
	if !MustVersionSpec("*").IsAny() {
		t.Error("* should report IsAny")
	}
	if MustVersionSpec(">=1.0").IsAny() {
		t.Error(">=1.0 should not report IsAny")
	}
}

func TestVersionSpecString(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"*", "*"},
		{">=1.0", ">=1.0"},
		{">= 1.0, < 2", ">=1.0,<2"},
	}
	for _, tt := range tests {
		vs := MustVersionSpec(tt.input)
		if got := vs.String(); got != tt.want {
			t.Errorf("String(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseMatchSpec(t *testing.T) {
	tests := []struct {
		input string
		name  string
		spec  string
	}{
		{"numpy >=1.0", "numpy", ">=1.0"},
		{"python", "python", "*"},
		{"python *", "python", "*"},
		{"gcc_linux-64", "gcc_linux-64", "*"},
		{"foo>=1.2,<2", "foo", ">=1.2,<2"},
	}

	for _, tt := range tests {
		m, err := ParseMatchSpec(tt.input)
		if err != nil {
			t.Errorf("ParseMatchSpec(%q) failed: %v", tt.input, err)
			continue
		}
		if m.Name.String() != tt.name {
			t.Errorf("ParseMatchSpec(%q).Name = %q, want %q", tt.input, m.Name.String(), tt.name)
		}
		if m.Version.String() != tt.spec {
			t.Errorf("ParseMatchSpec(%q).Version = %q, want %q", tt.input, m.Version.String(), tt.spec)
		}
	}

	if _, err := ParseMatchSpec(""); err == nil {
		t.Error("ParseMatchSpec(\"\") should fail")
	}
	if _, err := ParseMatchSpec(">=1.0"); err == nil {
		t.Error("ParseMatchSpec without a name should fail")
	}
}

func TestMatchSpecString(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want string
	}{
		{"numpy", ">=1.0", "numpy >=1.0"},
		{"python", "*", "python"},
		{"cmake", ">=3.15,<4", "cmake >=3.15,<4"},
	}

	for _, tt := range tests {
		m := NewMatchSpec(MustPackageName(tt.name), MustVersionSpec(tt.spec))
		if got := m.String(); got != tt.want {
			t.Errorf("MatchSpec{%s, %s}.String() = %q, want %q", tt.name, tt.spec, got, tt.want)
		}
	}
}
