package backend

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"pixibuild/internal/build"
	"pixibuild/internal/conda"
	"pixibuild/internal/errors"
	"pixibuild/internal/manifest"
	"pixibuild/internal/protocol"
	"pixibuild/internal/recipe"
	"pixibuild/internal/slogutil"
)

func loadManifest(t *testing.T, content string) *manifest.Manifest {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pixi.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	m, err := manifest.Load(path)
	if err != nil {
		t.Fatalf("failed to load manifest: %v", err)
	}
	return m
}

func TestWorkDirRequired(t *testing.T) {
	if _, err := WorkDir(""); errors.CodeOf(err) != errors.InvalidRequest {
		t.Errorf("empty work directory: err = %v, want %s", err, errors.InvalidRequest)
	}

	dir, err := WorkDir("/tmp/work")
	if err != nil {
		t.Fatalf("WorkDir: %v", err)
	}
	if dir != "/tmp/work" {
		t.Errorf("WorkDir = %q", dir)
	}
}

func TestPlatformDefaultsToCurrent(t *testing.T) {
	p, err := Platform(nil)
	if err != nil {
		t.Fatalf("Platform(nil): %v", err)
	}
	if p.Platform != conda.CurrentPlatform() {
		t.Errorf("Platform = %s, want %s", p.Platform, conda.CurrentPlatform())
	}
	if p.VirtualPackages != nil {
		t.Errorf("VirtualPackages = %v, want nil", p.VirtualPackages)
	}
}

func TestPlatformConvertsVirtualPackages(t *testing.T) {
	p, err := Platform(&protocol.PlatformAndVirtualPackages{
		Platform: "linux-64",
		VirtualPackages: []protocol.VirtualPackage{
			{Name: "__glibc", Version: "2.17", BuildString: "0"},
		},
	})
	if err != nil {
		t.Fatalf("Platform: %v", err)
	}
	if p.Platform != conda.Linux64 {
		t.Errorf("Platform = %s", p.Platform)
	}
	want := []build.VirtualPackage{{Name: "__glibc", Version: "2.17", BuildString: "0"}}
	if !reflect.DeepEqual(p.VirtualPackages, want) {
		t.Errorf("VirtualPackages = %v, want %v", p.VirtualPackages, want)
	}
}

func TestPlatformRejectsUnknown(t *testing.T) {
	_, err := Platform(&protocol.PlatformAndVirtualPackages{Platform: "amiga-68k"})
	if errors.CodeOf(err) != errors.InvalidRequest {
		t.Errorf("err = %v, want %s", err, errors.InvalidRequest)
	}
}

func TestChannelsPreferExplicitBaseURLs(t *testing.T) {
	m := loadManifest(t, `
[project]
name = "demo"
channels = ["conda-forge"]
`)
	b := &Base{Manifest: m}

	explicit := []string{"https://mirror.example.com/custom"}
	if got := b.Channels(explicit, protocol.ChannelConfiguration{}); !reflect.DeepEqual(got, explicit) {
		t.Errorf("Channels = %v, want %v", got, explicit)
	}
}

func TestChannelsResolveAgainstAlias(t *testing.T) {
	m := loadManifest(t, `
[project]
name = "demo"
channels = ["conda-forge", "https://fast.example.com/internal"]
`)
	b := &Base{Manifest: m}

	got := b.Channels(nil, protocol.ChannelConfiguration{BaseURL: "https://mirror.example.com"})
	want := []string{
		"https://mirror.example.com/conda-forge",
		"https://fast.example.com/internal",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Channels = %v, want %v", got, want)
	}

	got = b.Channels(nil, protocol.ChannelConfiguration{})
	if got[0] != manifest.DefaultChannelAlias+"/conda-forge" {
		t.Errorf("Channels without alias = %v", got)
	}
}

func testRecipe(noarch conda.NoArch) *recipe.Recipe {
	return &recipe.Recipe{
		SchemaVersion: recipe.SchemaVersion,
		Package:       recipe.Package{Name: "demo", Version: "1.0.0"},
		Build:         recipe.Build{Number: 2, NoArch: noarch},
	}
}

func TestNewOutputStampsBuildString(t *testing.T) {
	platform := build.PlatformWithVirtualPackages{Platform: conda.Linux64}

	rec := testRecipe(conda.NoArchPython)
	output, err := NewOutput(rec, nil, platform, platform, t.TempDir())
	if err != nil {
		t.Fatalf("NewOutput: %v", err)
	}
	if output.Configuration.TargetPlatform != conda.NoArchPlatform {
		t.Errorf("TargetPlatform = %s, want noarch", output.Configuration.TargetPlatform)
	}
	if got := output.Recipe.Build.String; len(got) < 4 || got[:3] != "pyh" || got[len(got)-2:] != "_2" {
		t.Errorf("Build.String = %q, want pyh<hash>_2", got)
	}

	rec = testRecipe(conda.NoArchNone)
	output, err = NewOutput(rec, nil, platform, platform, t.TempDir())
	if err != nil {
		t.Fatalf("NewOutput: %v", err)
	}
	if output.Configuration.TargetPlatform != conda.Linux64 {
		t.Errorf("TargetPlatform = %s, want linux-64", output.Configuration.TargetPlatform)
	}
	if got := output.Recipe.Build.String; got[:1] != "h" {
		t.Errorf("Build.String = %q, want h<hash>_2", got)
	}
}

type stubEngine struct {
	resolved *build.ResolvedDependencies
	archive  string
	err      error
}

func (s *stubEngine) Resolve(ctx context.Context, output *build.Output) (*build.ResolvedDependencies, error) {
	return s.resolved, s.err
}

func (s *stubEngine) Build(ctx context.Context, output *build.Output) (string, error) {
	return s.archive, s.err
}

func renderedRecipes(t *testing.T, workDir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(workDir, "recipe-*.yaml"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	return matches
}

func TestResolveCleansUpRecipeOnSuccess(t *testing.T) {
	workDir := t.TempDir()
	platform := build.PlatformWithVirtualPackages{Platform: conda.Linux64}
	output, err := NewOutput(testRecipe(conda.NoArchNone), nil, platform, platform, workDir)
	if err != nil {
		t.Fatalf("NewOutput: %v", err)
	}

	base := &Base{
		Engine: &stubEngine{resolved: &build.ResolvedDependencies{Depends: []string{"numpy >=1.0"}}},
		Logger: slogutil.NewDiscardLogger(),
	}
	resolved, err := base.Resolve(context.Background(), output)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(resolved.Depends) != 1 {
		t.Errorf("Depends = %v", resolved.Depends)
	}
	if left := renderedRecipes(t, workDir); len(left) != 0 {
		t.Errorf("rendered recipe left behind after success: %v", left)
	}
}

func TestResolveKeepsRecipeOnFailure(t *testing.T) {
	workDir := t.TempDir()
	platform := build.PlatformWithVirtualPackages{Platform: conda.Linux64}
	output, err := NewOutput(testRecipe(conda.NoArchNone), nil, platform, platform, workDir)
	if err != nil {
		t.Fatalf("NewOutput: %v", err)
	}

	base := &Base{
		Engine: &stubEngine{err: errors.New(errors.EngineFailure, "resolution failed")},
		Logger: slogutil.NewDiscardLogger(),
	}
	if _, err := base.Resolve(context.Background(), output); errors.CodeOf(err) != errors.EngineFailure {
		t.Fatalf("Resolve: err = %v, want %s", err, errors.EngineFailure)
	}
	if left := renderedRecipes(t, workDir); len(left) != 1 {
		t.Errorf("rendered recipe not preserved after failure: %v", left)
	}
}

func TestBuildCleansUpRecipeOnSuccess(t *testing.T) {
	workDir := t.TempDir()
	platform := build.PlatformWithVirtualPackages{Platform: conda.Linux64}
	output, err := NewOutput(testRecipe(conda.NoArchNone), nil, platform, platform, workDir)
	if err != nil {
		t.Fatalf("NewOutput: %v", err)
	}

	base := &Base{
		Engine: &stubEngine{archive: filepath.Join(workDir, "output", "demo-1.0.0.tar.zst")},
		Logger: slogutil.NewDiscardLogger(),
	}
	archive, err := base.Build(context.Background(), output)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if archive == "" {
		t.Error("Build returned an empty archive path")
	}
	if left := renderedRecipes(t, workDir); len(left) != 0 {
		t.Errorf("rendered recipe left behind after success: %v", left)
	}
}
