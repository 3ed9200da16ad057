package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/nook/internal/aggregate"
	"github.com/desertthunder/nook/internal/catalog"
	"github.com/desertthunder/nook/internal/player"
	"github.com/desertthunder/nook/internal/shared"
	"github.com/desertthunder/nook/internal/ui"
	"github.com/urfave/cli/v3"
)

// Hub launches the interactive hub: the aggregator fills the shelves, the
// monitor watches the Connect device, and the engine routes playback.
func (r *Runner) Hub(ctx context.Context, cmd *cli.Command) error {
	cred, ok, err := r.sessions.Restore()
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: run 'nook auth login' first", shared.ErrNotAuthenticated)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/nook-hub.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cat := catalog.New()
	aggregator := aggregate.New(r.client, fileLogger)

	var program *tea.Program

	engine := player.NewEngine(player.Opts{
		Catalog: cat,
		Remote:  r.client,
		Preview: player.NewLocalPlayer(r.config.Player.Volume),
		Auth:    r.sessions,
		Logger:  fileLogger,
		Status: func(message, severity string) {
			if program != nil {
				program.Send(ui.StatusMsg{Message: message, Severity: severity})
			}
		},
	})
	engine.Subscribe(func(s player.Session) {
		if program != nil {
			program.Send(ui.SessionMsg(s))
		}
	})

	monitor := player.NewMonitor(r.client, r.config.Player.DeviceName,
		time.Duration(r.config.Player.PollInterval)*time.Second, fileLogger)
	go monitor.Run(ctx)
	go engine.Consume(ctx, monitor.Events())

	model := ui.NewModel(ctx, engine, aggregator, cat, cred.DisplayName)
	program = tea.NewProgram(model, tea.WithAltScreen())

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	engine.Disconnect()
	return nil
}
