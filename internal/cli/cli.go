// Package cli assembles the command tree shared by the backend binaries.
// Each binary contributes only its name and factory; flags, config
// loading, logging, and the engine wiring live here once.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pixibuild/internal/config"
	"pixibuild/internal/engine"
	"pixibuild/internal/protocol"
	"pixibuild/internal/slogutil"
	"pixibuild/internal/version"
)

// logFileMaxSize caps one log file before rotation kicks in.
const logFileMaxSize = "10MB"

// logFileMaxBackups is how many rotated log files are kept.
const logFileMaxBackups = 3

// FactoryFunc builds the protocol factory of one ecosystem backend.
type FactoryFunc func(eng engine.Engine, logger *slog.Logger) protocol.Factory

// App carries the per-binary identity and the flag state of one
// invocation.
type App struct {
	name       string
	short      string
	newFactory FactoryFunc

	verbosity int
	quiet     bool
	port      int
}

// New assembles the root command for one backend binary. The root runs
// the protocol server; get-metadata and build invoke the backend
// in-process.
func New(name, short string, newFactory FactoryFunc) *cobra.Command {
	app := &App{name: name, short: short, newFactory: newFactory}

	rootCmd := &cobra.Command{
		Use:     name,
		Short:   short,
		Long: short + `

Without a subcommand the backend serves the build protocol on
stdin/stdout (or a TCP port with --port) until the stream closes.`,
		Version: version.Version,
		Args:    cobra.NoArgs,
		RunE:    app.runServe,
	}
	rootCmd.SetVersionTemplate(name + " version {{.Version}}\n")

	rootCmd.PersistentFlags().CountVarP(&app.verbosity, "verbose", "v",
		"Increase log verbosity (repeatable)")
	rootCmd.PersistentFlags().BoolVarP(&app.quiet, "quiet", "q", false,
		"Only log errors")
	rootCmd.Flags().IntVar(&app.port, "port", 0,
		"Expose the JSON-RPC server on this TCP port instead of stdin/stdout")

	rootCmd.AddCommand(app.getMetadataCmd())
	rootCmd.AddCommand(app.buildCmd())
	return rootCmd
}

// setup loads the configuration rooted at dir and builds the logger and
// engine from it.
func (a *App) setup(dir string) (*config.Config, *slog.Logger, engine.Engine, error) {
	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	logger, err := a.newLogger(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	eng, err := engine.NewLocal(engine.Options{
		CacheDir:         cfg.Engine.CacheDir,
		ChannelsFile:     cfg.Channels.RegistryFile,
		KeepBuild:        cfg.Engine.KeepBuild,
		CompressionLevel: cfg.Engine.CompressionLevel,
		Logger:           logger,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, eng, nil
}

// newLogger builds the process logger: always stderr (stdout carries the
// protocol), teed into a rotating file when configured. Verbosity flags
// override the configured level.
func (a *App) newLogger(cfg *config.Config) (*slog.Logger, error) {
	level := slogutil.LevelFromString(cfg.Logging.Level)
	if a.quiet || a.verbosity > 0 {
		level = slogutil.LevelFromVerbosity(a.verbosity, a.quiet)
	}

	if cfg.Logging.File == "" {
		return slogutil.NewLogger(os.Stderr, level), nil
	}

	// The rotating file lives for the whole process; it is closed by
	// process exit.
	file, err := slogutil.OpenRotatingFile(cfg.Logging.File,
		slogutil.ParseSize(logFileMaxSize), logFileMaxBackups)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", cfg.Logging.File, err)
	}
	return slogutil.NewTeeLogger(
		slogutil.NewHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
		slogutil.NewHandler(file, &slog.HandlerOptions{Level: level}),
	), nil
}

// resolveManifest picks the manifest path: the positional argument, the
// PIXI_PROJECT_MANIFEST environment variable, then pixi.toml in the
// current directory.
func resolveManifest(args []string) (string, error) {
	path := "pixi.toml"
	switch {
	case len(args) > 0:
		path = args[0]
	case os.Getenv("PIXI_PROJECT_MANIFEST") != "":
		path = os.Getenv("PIXI_PROJECT_MANIFEST")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve manifest path %s: %w", path, err)
	}
	return abs, nil
}
