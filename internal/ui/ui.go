package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/nook/internal/aggregate"
	"github.com/desertthunder/nook/internal/catalog"
	"github.com/desertthunder/nook/internal/player"
	"github.com/desertthunder/nook/internal/services"
	"github.com/desertthunder/nook/internal/shared"
)

// Controller is the playback surface the hub drives.
type Controller interface {
	Play(ctx context.Context, track catalog.Track, rowID string) error
	Toggle(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Session() player.Session
}

// Source assembles hub content.
type Source interface {
	Run(ctx context.Context) (*aggregate.Snapshot, error)
	ExpandPlaylist(ctx context.Context, id string) ([]catalog.Track, error)
}

// SessionMsg delivers an engine snapshot into the Elm loop. The engine's
// listener sends these through [tea.Program.Send] from its own goroutine.
type SessionMsg player.Session

// StatusMsg is a transient status line update. Severity is one of
// "info", "success", "error".
type StatusMsg struct {
	Message  string
	Severity string
}

type snapshotMsg struct {
	snap *aggregate.Snapshot
	err  error
}

type playlistExpandedMsg struct {
	id     string
	tracks []catalog.Track
	err    error
}

type rowKind int

const (
	rowTrack rowKind = iota
	rowPlaylist
)

// hubRow is one selectable line in a shelf.
type hubRow struct {
	kind     rowKind
	id       string
	track    catalog.Track
	playlist services.Playlist
	indent   bool
}

// hubSection is one shelf of rows with a title and an optional placeholder
// shown when the shelf came back empty.
type hubSection struct {
	title       string
	placeholder string
	rows        []hubRow
}

type cursor struct {
	section int
	row     int
}

// Model is the hub TUI state.
type Model struct {
	ctx         context.Context
	controller  Controller
	source      Source
	catalog     *catalog.Catalog
	connectedAs string

	snapshot *aggregate.Snapshot
	sections []hubSection
	cur      cursor

	// expanded caches playlist tracks so collapsing and reopening a
	// playlist neither re-fetches nor re-appends to the catalog.
	expanded     map[string][]catalog.Track
	openPlaylist string

	session player.Session
	status  StatusMsg
	loading bool
	err     error

	width  int
	height int
	help   help.Model
	keys   keyMap
}

// NewModel creates the hub model with the provided dependencies.
func NewModel(ctx context.Context, controller Controller, source Source, cat *catalog.Catalog, connectedAs string) *Model {
	return &Model{
		ctx:         ctx,
		controller:  controller,
		source:      source,
		catalog:     cat,
		connectedAs: connectedAs,
		expanded:    map[string][]catalog.Track{},
		loading:     true,
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Init kicks off the first snapshot load.
func (m *Model) Init() tea.Cmd {
	return m.fetchSnapshot()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case snapshotMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.applySnapshot(msg.snap)
		return m, nil

	case playlistExpandedMsg:
		if msg.err != nil {
			m.status = StatusMsg{Message: "Couldn't open playlist", Severity: "error"}
			return m, nil
		}
		m.expanded[msg.id] = msg.tracks
		m.openPlaylist = msg.id
		m.catalog.Append(msg.tracks...)
		m.rebuildSections()
		return m, nil

	case SessionMsg:
		m.session = player.Session(msg)
		return m, nil

	case StatusMsg:
		m.status = msg
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "tab":
		m.nextSection()
	case "enter":
		return m, m.activate()
	case " ":
		return m, m.command(m.controller.Toggle)
	case "n":
		return m, m.command(m.controller.Next)
	case "p":
		return m, m.command(m.controller.Previous)
	case "r":
		m.loading = true
		return m, m.fetchSnapshot()
	}
	return m, nil
}

// activate plays the selected track or toggles the selected playlist open.
func (m *Model) activate() tea.Cmd {
	row, ok := m.selected()
	if !ok {
		return nil
	}

	switch row.kind {
	case rowTrack:
		track, id := row.track, row.id
		return func() tea.Msg {
			// failures surface through the engine's status callback
			_ = m.controller.Play(m.ctx, track, id)
			return nil
		}
	case rowPlaylist:
		id := row.playlist.ID
		if m.openPlaylist == id {
			m.openPlaylist = ""
			m.rebuildSections()
			return nil
		}
		if _, cached := m.expanded[id]; cached {
			m.openPlaylist = id
			m.rebuildSections()
			return nil
		}
		return func() tea.Msg {
			tracks, err := m.source.ExpandPlaylist(m.ctx, id)
			return playlistExpandedMsg{id: id, tracks: tracks, err: err}
		}
	}
	return nil
}

func (m *Model) command(fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		_ = fn(m.ctx)
		return nil
	}
}

func (m *Model) fetchSnapshot() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.source.Run(m.ctx)
		return snapshotMsg{snap: snap, err: err}
	}
}

// applySnapshot rebuilds the shelves and reloads the catalog so Next and
// Previous walk the hub's display order.
func (m *Model) applySnapshot(snap *aggregate.Snapshot) {
	m.snapshot = snap
	m.openPlaylist = ""
	m.expanded = map[string][]catalog.Track{}

	m.catalog.Reset()
	m.catalog.Append(snap.Recent.Tracks...)
	m.catalog.Append(snap.Suggested.Tracks...)
	m.catalog.Append(snap.Discovery.Tracks...)

	m.rebuildSections()
	m.cur = cursor{}
	m.clampCursor()
}

func (m *Model) rebuildSections() {
	if m.snapshot == nil {
		m.sections = nil
		return
	}
	snap := m.snapshot

	sections := []hubSection{
		trackSection("recent", snap.Recent),
		trackSection("suggested", snap.Suggested),
		trackSection("discovery", snap.Discovery),
	}

	playlists := hubSection{title: "Your Playlists"}
	if len(snap.Playlists) == 0 {
		playlists.placeholder = "No playlists yet"
	}
	for _, pl := range snap.Playlists {
		playlists.rows = append(playlists.rows, hubRow{
			kind:     rowPlaylist,
			id:       "playlist:" + pl.ID,
			playlist: pl,
		})
		if pl.ID == m.openPlaylist {
			for i, t := range m.expanded[pl.ID] {
				playlists.rows = append(playlists.rows, hubRow{
					kind:   rowTrack,
					id:     fmt.Sprintf("pl:%s:%d", pl.ID, i),
					track:  t,
					indent: true,
				})
			}
		}
	}
	sections = append(sections, playlists)
	m.sections = sections
	m.clampCursor()
}

func trackSection(key string, s aggregate.Section) hubSection {
	section := hubSection{title: s.Title, placeholder: s.Placeholder}
	for i, t := range s.Tracks {
		section.rows = append(section.rows, hubRow{
			kind:  rowTrack,
			id:    fmt.Sprintf("%s:%d", key, i),
			track: t,
		})
	}
	return section
}

func (m *Model) selected() (hubRow, bool) {
	if m.cur.section >= len(m.sections) {
		return hubRow{}, false
	}
	rows := m.sections[m.cur.section].rows
	if m.cur.row >= len(rows) {
		return hubRow{}, false
	}
	return rows[m.cur.row], true
}

// move walks the cursor one row, crossing into neighboring shelves.
func (m *Model) move(delta int) {
	s, r := m.cur.section, m.cur.row+delta
	for {
		if s < 0 || s >= len(m.sections) {
			return
		}
		rows := m.sections[s].rows
		if r >= 0 && r < len(rows) {
			m.cur = cursor{section: s, row: r}
			return
		}
		if delta > 0 {
			s++
			r = 0
		} else {
			s--
			if s >= 0 {
				r = len(m.sections[s].rows) - 1
			}
		}
	}
}

func (m *Model) nextSection() {
	for i := 1; i <= len(m.sections); i++ {
		s := (m.cur.section + i) % len(m.sections)
		if len(m.sections[s].rows) > 0 {
			m.cur = cursor{section: s}
			return
		}
	}
}

func (m *Model) clampCursor() {
	if len(m.sections) == 0 {
		m.cur = cursor{}
		return
	}
	if m.cur.section >= len(m.sections) {
		m.cur.section = len(m.sections) - 1
	}
	rows := m.sections[m.cur.section].rows
	if len(rows) == 0 {
		m.nextSection()
		return
	}
	if m.cur.row >= len(rows) {
		m.cur.row = len(rows) - 1
	}
}

// View renders the whole hub.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}
	if m.loading {
		return styles.help.Render("Setting up your nook...")
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(NowPlaying{Session: m.session}.View())
	b.WriteString("\n")
	if m.status.Message != "" {
		b.WriteString(m.renderStatus())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for si, section := range m.sections {
		b.WriteString(styles.section.Render(section.title))
		b.WriteString("\n")
		if len(section.rows) == 0 {
			b.WriteString("  " + styles.dim.Render(section.placeholder) + "\n\n")
			continue
		}
		for ri, row := range section.rows {
			b.WriteString(m.renderRow(row, si == m.cur.section && ri == m.cur.row))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

func (m *Model) renderHeader() string {
	title := styles.title.Render("⌂ nook")
	var extras []string
	if m.connectedAs != "" {
		extras = append(extras, styles.help.Render("connected as "+m.connectedAs))
	}
	if m.snapshot != nil && m.snapshot.SongOfDay != nil {
		t := m.snapshot.SongOfDay
		extras = append(extras, styles.dim.Render(fmt.Sprintf("song of the day: %s · %s", t.Name, t.Artist)))
	}
	if len(extras) == 0 {
		return title
	}
	return title + "\n" + strings.Join(extras, "\n")
}

func (m *Model) renderStatus() string {
	switch m.status.Severity {
	case "error":
		return styles.err.Render(m.status.Message)
	case "success":
		return styles.ok.Render(m.status.Message)
	default:
		return styles.warn.Render(m.status.Message)
	}
}

func (m *Model) renderRow(row hubRow, selected bool) string {
	var label string
	switch row.kind {
	case rowTrack:
		active := m.session.Track != nil && m.session.RowID == row.id
		name := row.track.Name
		marker := " "
		if active {
			marker = "⏸"
			if m.session.IsPlaying() {
				marker = "▶"
			}
			name = styles.playing.Render(name)
		}
		label = fmt.Sprintf("%s %s · %s", marker, name, styles.dim.Render(row.track.Artist))
		if row.track.DurationSec > 0 {
			label += " " + styles.dim.Render(shared.FormatDuration(row.track.DurationSec))
		}
	case rowPlaylist:
		chevron := "▸"
		if row.playlist.ID == m.openPlaylist {
			chevron = "▾"
		}
		label = fmt.Sprintf("%s %s %s", chevron, row.playlist.Name,
			styles.dim.Render(fmt.Sprintf("(%d tracks)", row.playlist.TrackCount)))
	}

	prefix := "  "
	if row.indent {
		prefix = "    "
	}
	if selected {
		return prefix + styles.cursor.Render(label)
	}
	return prefix + label
}
