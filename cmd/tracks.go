package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/nook/internal/catalog"
	"github.com/desertthunder/nook/internal/shared"
	"github.com/urfave/cli/v3"
)

// TracksRecent lists recently played tracks.
func (r *Runner) TracksRecent(ctx context.Context, cmd *cli.Command) error {
	if !r.sessions.Authorized() {
		return fmt.Errorf("%w: run 'nook auth login' first", shared.ErrNotAuthenticated)
	}

	tracks, err := r.client.RecentlyPlayed(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Recently Played")
	r.printTracks(tracks)
	return nil
}

// TracksTop lists the account's top tracks for a time range.
func (r *Runner) TracksTop(ctx context.Context, cmd *cli.Command) error {
	if !r.sessions.Authorized() {
		return fmt.Errorf("%w: run 'nook auth login' first", shared.ErrNotAuthenticated)
	}

	timeRange := cmd.String("range")
	switch timeRange {
	case "short_term", "medium_term", "long_term":
	default:
		return fmt.Errorf("%w: range must be short_term, medium_term, or long_term", shared.ErrInvalidArgument)
	}

	tracks, err := r.client.TopTracks(ctx, int(cmd.Int("limit")), timeRange)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Top Tracks")
	r.printTracks(tracks)
	return nil
}

// TracksPlaylists lists the account's playlists.
func (r *Runner) TracksPlaylists(ctx context.Context, cmd *cli.Command) error {
	if !r.sessions.Authorized() {
		return fmt.Errorf("%w: run 'nook auth login' first", shared.ErrNotAuthenticated)
	}

	playlists, err := r.client.Playlists(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Playlists")
	for i, pl := range playlists {
		r.writePlain("%2d. %s (%d tracks)\n", i+1, pl.Name, pl.TrackCount)
	}
	return nil
}

func (r *Runner) printTracks(tracks []catalog.Track) {
	for i, t := range tracks {
		marker := " "
		if t.Playable() {
			marker = "♪"
		}
		line := fmt.Sprintf("%2d. %s %s · %s", i+1, marker, t.Name, t.Artist)
		if t.DurationSec > 0 {
			line += fmt.Sprintf(" (%s)", shared.FormatDuration(t.DurationSec))
		}
		r.writePlain("%s\n", line)
	}
}
