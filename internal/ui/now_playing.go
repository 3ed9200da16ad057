package ui

import (
	"fmt"

	"github.com/desertthunder/nook/internal/player"
)

// NowPlaying projects a playback session snapshot into the hub's header
// panel. It holds no playback state of its own.
type NowPlaying struct {
	Session player.Session
}

// Title returns the track line, or the idle placeholder.
func (n NowPlaying) Title() string {
	if n.Session.Track == nil {
		return "Ready to Play"
	}
	return n.Session.Track.Name
}

// Subtitle returns the primary artist, or a hint while idle.
func (n NowPlaying) Subtitle() string {
	if n.Session.Track == nil {
		return "Select a song from below"
	}
	return n.Session.Track.Artist
}

// Glyph returns the album art marker. Artwork URLs can't be rendered in a
// terminal, so any track shows the note glyph.
func (n NowPlaying) Glyph() string {
	return "♪"
}

// Indicator returns the transport symbol for the current state.
func (n NowPlaying) Indicator() string {
	switch {
	case n.Session.Track == nil:
		return ""
	case n.Session.IsPlaying():
		return "▶"
	default:
		return "⏸"
	}
}

// SourceLabel names where the audio is coming from.
func (n NowPlaying) SourceLabel() string {
	switch n.Session.Mode() {
	case player.ModeManaged:
		return "spotify connect"
	case player.ModeLocal:
		return "preview clip"
	default:
		return ""
	}
}

// View renders the panel.
func (n NowPlaying) View() string {
	if n.Session.Track == nil {
		return fmt.Sprintf("%s  %s\n   %s",
			styles.dim.Render(n.Glyph()),
			styles.title.Render(n.Title()),
			styles.help.Render(n.Subtitle()))
	}

	line := fmt.Sprintf("%s %s  %s", n.Indicator(), n.Glyph(), styles.playing.Render(n.Title()))
	sub := n.Subtitle()
	if label := n.SourceLabel(); label != "" {
		sub = fmt.Sprintf("%s %s", sub, styles.help.Render("("+label+")"))
	}
	return fmt.Sprintf("%s\n     %s", line, sub)
}
