package main

import (
	"context"
	"os"

	"github.com/desertthunder/recordroom/internal/auth"
	"github.com/desertthunder/recordroom/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	stateDir, err := shared.StateDir()
	if err != nil {
		logger.Fatalf("failed to prepare state directory: %v", err)
	}

	runner := NewRunner(RunnerOpts{
		Config:    config,
		Sessions:  auth.NewSessionStore(stateDir),
		Verifiers: auth.NewFileVerifierStore(stateDir),
		Logger:    logger,
	})

	app := &cli.Command{
		Name:     "recordroom",
		Usage:    "A listening room for a shared Spotify playlist",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
