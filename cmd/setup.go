package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/nook/internal/shared"
	"github.com/desertthunder/nook/internal/store"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file from the template and initializes the
// session database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	r.logger.Info("initializing session database", "path", config.Session.Path)

	db, err := shared.NewDatabase(config.Session.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	if _, err := store.NewSessionStore(db); err != nil {
		return fmt.Errorf("failed to initialize session store: %w", err)
	}

	r.writePlain("✓ Setup complete\n")
	if config.Spotify.ClientID == "" {
		r.writePlain("Add your Spotify client_id to %s, then run 'nook auth login'\n", configPath)
	} else {
		r.writePlain("Run 'nook auth login' to sign in\n")
	}
	return nil
}
