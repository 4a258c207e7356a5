package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pixibuild/internal/conda"
	"pixibuild/internal/errors"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pixi.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeManifest(t, `
[project]
name = "demo"
version = "1.2.3"
description = "A demo project"
channels = ["conda-forge"]
platforms = ["linux-64", "win-64"]
license = "MIT"
license-family = "MIT"

[dependencies]
numpy = ">=1.0"
pinned = { version = ">=2.0", build = "py*" }

[host-dependencies]
python = "3.10.*"

[build-dependencies]
make = "*"
`)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "demo" {
		t.Errorf("Name = %q, want %q", m.Project.Name, "demo")
	}
	if m.Project.Version != "1.2.3" {
		t.Errorf("Version = %q, want %q", m.Project.Version, "1.2.3")
	}
	if m.Project.License != "MIT" {
		t.Errorf("License = %q, want %q", m.Project.License, "MIT")
	}
	if len(m.Project.Channels) != 1 || m.Project.Channels[0] != "conda-forge" {
		t.Errorf("Channels = %v", m.Project.Channels)
	}

	if spec, ok := m.Default.Run["numpy"]; !ok || spec.Version != ">=1.0" {
		t.Errorf("run dep numpy = %+v", spec)
	}
	if spec, ok := m.Default.Run["pinned"]; !ok || spec.Version != ">=2.0" || spec.Build != "py*" {
		t.Errorf("run dep pinned = %+v", spec)
	}
	if spec, ok := m.Default.Host["python"]; !ok || spec.Version != "3.10.*" {
		t.Errorf("host dep python = %+v", spec)
	}
	if spec, ok := m.Default.Build["make"]; !ok || spec.Version != "*" {
		t.Errorf("build dep make = %+v", spec)
	}

	if m.Root() != filepath.Dir(path) {
		t.Errorf("Root() = %q, want %q", m.Root(), filepath.Dir(path))
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "pixi.toml"))
	if err == nil {
		t.Fatal("Load should fail for a missing file")
	}
	if errors.CodeOf(err) != errors.ConfigInvalid {
		t.Errorf("error code = %v, want %v", errors.CodeOf(err), errors.ConfigInvalid)
	}
}

func TestLoadParseError(t *testing.T) {
	path := writeManifest(t, `[project
name = broken`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load should fail for invalid TOML")
	}
	if errors.CodeOf(err) != errors.ConfigInvalid {
		t.Errorf("error code = %v, want %v", errors.CodeOf(err), errors.ConfigInvalid)
	}
}

func TestLoadInvalidPlatform(t *testing.T) {
	path := writeManifest(t, `
[project]
name = "demo"
platforms = ["commodore-64"]
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load should reject unknown platforms")
	}
	if !strings.Contains(err.Error(), "commodore-64") {
		t.Errorf("error should name the platform, got: %v", err)
	}
}

func TestLoadSpecErrors(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		wantPart string
	}{
		{
			name: "unknown field",
			manifest: `
[dependencies]
foo = { verison = ">=1.0" }
`,
			wantPart: "unknown field",
		},
		{
			name: "conflicting sources",
			manifest: `
[dependencies]
foo = { path = "../foo", git = "https://example.com/foo.git" }
`,
			wantPart: "at most one of",
		},
		{
			name: "version on source",
			manifest: `
[dependencies]
foo = { path = "../foo", version = ">=1.0" }
`,
			wantPart: "cannot carry a version constraint",
		},
		{
			name: "non-string field",
			manifest: `
[dependencies]
foo = { version = 1 }
`,
			wantPart: "must be a string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, tt.manifest)
			_, err := Load(path)
			if err == nil {
				t.Fatal("Load should fail")
			}
			if !strings.Contains(err.Error(), tt.wantPart) {
				t.Errorf("error = %v, want to contain %q", err, tt.wantPart)
			}
		})
	}
}

func TestFeatureDependenciesTargetOverlay(t *testing.T) {
	path := writeManifest(t, `
[project]
name = "demo"

[dependencies]
numpy = ">=1.0"
shared = "1.0"

[target.win-64.dependencies]
shared = "2.0"
winonly = "*"

[target.unix.dependencies]
unixonly = "*"
`)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	win := m.Default.Dependencies(Run, conda.Win64)
	if win["shared"].Version != "2.0" {
		t.Errorf("overlay should replace base: shared = %+v", win["shared"])
	}
	if _, ok := win["winonly"]; !ok {
		t.Error("win-64 overlay dep missing")
	}
	if _, ok := win["unixonly"]; ok {
		t.Error("unix overlay should not apply to win-64")
	}

	linux := m.Default.Dependencies(Run, conda.Linux64)
	if linux["shared"].Version != "1.0" {
		t.Errorf("base dep should survive on linux: shared = %+v", linux["shared"])
	}
	if _, ok := linux["unixonly"]; !ok {
		t.Error("unix overlay dep missing on linux-64")
	}

	// Empty platform skips all overlays.
	base := m.Default.Dependencies(Run, "")
	if len(base) != 2 {
		t.Errorf("base set should have 2 entries, got %d", len(base))
	}
}

func TestFeatureBlocks(t *testing.T) {
	path := writeManifest(t, `
[project]
name = "demo"

[feature.test.dependencies]
pytest = ">=7"
`)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	f, ok := m.Features["test"]
	if !ok {
		t.Fatal("feature 'test' missing")
	}
	if f.Run["pytest"].Version != ">=7" {
		t.Errorf("feature dep pytest = %+v", f.Run["pytest"])
	}
}

func TestVersionOrDefault(t *testing.T) {
	withVersion, err := Parse([]byte(`
[project]
name = "demo"
version = "2.0"
`), "pixi.toml")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := withVersion.VersionOrDefault(); got != "2.0" {
		t.Errorf("VersionOrDefault = %q, want %q", got, "2.0")
	}

	without, err := Parse([]byte(`
[project]
name = "demo"
`), "pixi.toml")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := without.VersionOrDefault(); got != DefaultVersion {
		t.Errorf("VersionOrDefault = %q, want %q", got, DefaultVersion)
	}
	// Stable across calls.
	if got := without.VersionOrDefault(); got != DefaultVersion {
		t.Errorf("VersionOrDefault should be stable, got %q", got)
	}
}

func TestSupportsTargetPlatform(t *testing.T) {
	restricted, err := Parse([]byte(`
[project]
name = "demo"
platforms = ["linux-64", "osx-arm64"]
`), "pixi.toml")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !restricted.SupportsTargetPlatform(conda.Linux64) {
		t.Error("linux-64 should be supported")
	}
	if restricted.SupportsTargetPlatform(conda.Win64) {
		t.Error("win-64 should not be supported")
	}

	open, err := Parse([]byte(`
[project]
name = "demo"
`), "pixi.toml")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !open.SupportsTargetPlatform(conda.Win64) {
		t.Error("a manifest without platforms supports everything")
	}
}

func TestChannels(t *testing.T) {
	m, err := Parse([]byte(`
[project]
name = "demo"
channels = ["conda-forge", "https://my.mirror/custom", "file:///srv/channel"]
`), "pixi.toml")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	got := m.Channels("")
	want := []string{
		"https://conda.anaconda.org/conda-forge",
		"https://my.mirror/custom",
		"file:///srv/channel",
	}
	if len(got) != len(want) {
		t.Fatalf("Channels() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Channels()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	aliased := m.Channels("https://prefix.dev/")
	if aliased[0] != "https://prefix.dev/conda-forge" {
		t.Errorf("aliased channel = %q", aliased[0])
	}
}

func TestKindString(t *testing.T) {
	if Run.String() != "dependencies" {
		t.Errorf("Run.String() = %q", Run.String())
	}
	if Host.String() != "host-dependencies" {
		t.Errorf("Host.String() = %q", Host.String())
	}
	if Build.String() != "build-dependencies" {
		t.Errorf("Build.String() = %q", Build.String())
	}
}
