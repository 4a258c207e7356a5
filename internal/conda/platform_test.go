package conda

import (
	"testing"
)

func TestParsePlatform(t *testing.T) {
	tests := []struct {
		input   string
		want    Platform
		wantErr bool
	}{
		{"linux-64", Linux64, false},
		{"Linux-64", Linux64, false},
		{" osx-arm64 ", OsxArm64, false},
		{"win-64", Win64, false},
		{"emscripten-wasm32", EmscriptenWasm32, false},
		{"noarch", NoArchPlatform, false},
		{"amiga-68k", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParsePlatform(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParsePlatform(%q) should fail", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePlatform(%q) failed: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePlatform(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestPlatformPredicates(t *testing.T) {
	if !Win64.IsWindows() || Win64.IsOSX() || Win64.IsLinux() {
		t.Error("win-64 predicates wrong")
	}
	if !Osx64.IsOSX() || Osx64.IsWindows() {
		t.Error("osx-64 predicates wrong")
	}
	if !OsxArm64.IsOSX() {
		t.Error("osx-arm64 should be OSX")
	}
	if !Linux64.IsLinux() || Linux64.IsWindows() {
		t.Error("linux-64 predicates wrong")
	}
	if !NoArchPlatform.IsNoArch() || Linux64.IsNoArch() {
		t.Error("noarch predicate wrong")
	}
}

func TestCurrentPlatform(t *testing.T) {
	p := CurrentPlatform()
	if p == "" {
		t.Fatal("CurrentPlatform should not be empty")
	}
	// The platform of the test host must be parseable.
	if _, err := ParsePlatform(p.String()); err != nil {
		t.Errorf("CurrentPlatform() = %q is not a known platform", p)
	}
}

func TestNoArch(t *testing.T) {
	if !NoArchNone.IsNone() {
		t.Error("NoArchNone should report IsNone")
	}
	if NoArchPython.IsNone() {
		t.Error("NoArchPython should not report IsNone")
	}
	if NoArchPython.String() != "python" {
		t.Errorf("NoArchPython.String() = %q, want %q", NoArchPython.String(), "python")
	}
}
