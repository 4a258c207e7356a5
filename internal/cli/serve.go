package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pixibuild/internal/server"
	"pixibuild/internal/version"
)

func (a *App) runServe(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to determine working directory: %w", err)
	}

	_, logger, eng, err := a.setup(cwd)
	if err != nil {
		return err
	}
	logger.Info("Backend starting", "name", a.name, "version", version.Info())

	srv := server.New(a.newFactory(eng, logger), logger)

	if a.port > 0 {
		// A TCP server shuts down on SIGINT/SIGTERM and drains open
		// connections before exiting.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.ServeTCP(ctx, fmt.Sprintf("127.0.0.1:%d", a.port))
	}

	// On stdio the frontend owns the lifetime; the server runs until the
	// stream closes.
	return srv.ServeStdio(context.Background())
}
