package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/zhiozhou/cloudmatch/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		logger.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := shared.RunMigrations(db); err != nil {
		logger.Fatalf("failed to run migrations: %v", err)
	}

	runner := NewRunner(RunnerOpts{
		Config: config,
		DB:     db,
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "cloudmatch",
		Usage:    "Manage and fix song matches in your NetEase cloud locker",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			logger.Error(err.Error())
			os.Exit(1)
		}
		logger.Fatalf("application error: %v", err)
	}
}
