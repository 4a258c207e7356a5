package main

import (
	"log/slog"
	"os"

	"pixibuild/internal/backend/cmake"
	"pixibuild/internal/cli"
	"pixibuild/internal/engine"
	"pixibuild/internal/protocol"
)

func main() {
	root := cli.New("pixi-build-cmake", "CMake build backend for pixi projects",
		func(eng engine.Engine, logger *slog.Logger) protocol.Factory {
			return cmake.NewFactory(eng, logger)
		})
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
