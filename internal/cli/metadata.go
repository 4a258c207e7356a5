package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pixibuild/internal/protocol"
)

func (a *App) getMetadataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get-metadata [manifest]",
		Short: "Print the package metadata the project would produce",
		Long: `Resolve the project manifest and print the conda package metadata as
YAML. The manifest defaults to $PIXI_PROJECT_MANIFEST, then pixi.toml
in the current directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.runGetMetadata,
	}
}

func (a *App) runGetMetadata(cmd *cobra.Command, args []string) error {
	manifest, err := resolveManifest(args)
	if err != nil {
		return err
	}

	cfg, logger, eng, err := a.setup(filepath.Dir(manifest))
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

	// Metadata needs only scratch space; nothing persists.
	workDir, err := os.MkdirTemp("", "pixi-build-")
	if err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	result, err := backend.GetCondaMetadata(ctx, &protocol.CondaMetadataParams{
		ChannelConfiguration: protocol.ChannelConfiguration{BaseURL: cfg.Channels.Alias},
		WorkDirectory:        workDir,
	})
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to render metadata: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}
