// Package ui implements the hub terminal interface using bubbletea's Elm architecture.
//
// The hub is a single scrolling view of shelves: recently played, suggestions,
// discovery, and playlists, with a now-playing panel pinned at the top. The
// [Model] implements bubbletea's standard Init/Update/View pattern.
//
// Playback state arrives as [SessionMsg] values pushed through
// [tea.Program.Send] by the engine's listener goroutine, and transient
// feedback as [StatusMsg]. The [NowPlaying] panel is a pure projection of the
// latest session snapshot and holds no playback logic.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, space, n/p, tab, q)
// with contextual help displayed via charmbracelet/bubbles/help.
package ui
