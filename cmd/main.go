package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/nook/internal/services"
	"github.com/desertthunder/nook/internal/shared"
	"github.com/desertthunder/nook/internal/store"
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

	db, err := shared.NewDatabase(config.Session.Path)
	if err != nil {
		logger.Fatalf("failed to open session database: %v", err)
	}
	defer db.Close()

	sessions, err := store.NewSessionStore(db)
	if err != nil {
		logger.Fatalf("failed to initialize session store: %v", err)
	}

	client := services.NewSpotifyClient(sessions, nil)

	var authenticator *services.Authenticator
	if config.Spotify.ClientID != "" {
		if a, err := services.NewAuthenticator(config.Spotify.ClientID, config.Spotify.RedirectURI, sessions, nil); err == nil {
			authenticator = a
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:   config,
		DB:       db,
		Sessions: sessions,
		Client:   client,
		Auth:     authenticator,
		Logger:   logger,
	})

	app := &cli.Command{
		Name:     "nook",
		Usage:    "A cozy terminal hub for your Spotify listening",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
