package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pixibuild/internal/protocol"
)

func (a *App) buildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build [manifest]",
		Short: "Build the conda package for the project",
		Long: `Build the project into a conda package archive. The manifest defaults
to $PIXI_PROJECT_MANIFEST, then pixi.toml in the current directory.
Archives land under .pixi-build/work/output next to the manifest.`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.runBuild,
	}
}

func (a *App) runBuild(cmd *cobra.Command, args []string) error {
	manifest, err := resolveManifest(args)
	if err != nil {
		return err
	}
	root := filepath.Dir(manifest)

	cfg, logger, eng, err := a.setup(root)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	backend, _, err := a.newFactory(eng, logger).Initialize(ctx, &protocol.InitializeParams{
		ManifestPath: manifest,
		Capabilities: protocol.FrontendCapabilities{},
	})
	if err != nil {
		return err
	}

	// The work directory persists so the archive outlives the command.
	workDir := filepath.Join(root, ".pixi-build", "work")
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("failed to create work directory %s: %w", workDir, err)
	}

	result, err := backend.BuildConda(ctx, &protocol.CondaBuildParams{
		ChannelConfiguration: protocol.ChannelConfiguration{BaseURL: cfg.Channels.Alias},
		WorkDirectory:        workDir,
	})
	if err != nil {
		return err
	}

	// Stdout stays clean for tooling; human output goes to stderr.
	out := cmd.ErrOrStderr()
	for _, pkg := range result.Packages {
		fmt.Fprintf(out, "Successfully built '%s'\n", pkg.OutputFile)
		for _, glob := range pkg.InputGlobs {
			fmt.Fprintf(out, "  input: %s\n", glob)
		}
	}
	return nil
}
