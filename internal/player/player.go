// Package player implements the playback engine: a two-mode player
// coordinating a remote Spotify Connect device with a local preview
// fallback, keeping a single notion of "current track" consistent across
// every source feeding the catalog.
package player

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nook/internal/catalog"
	"github.com/desertthunder/nook/internal/shared"
)

// State is the engine's playback state.
type State int

const (
	Idle State = iota
	ManagedPlaying
	ManagedPaused
	LocalPlaying
	LocalPaused
)

func (s State) String() string {
	switch s {
	case ManagedPlaying:
		return "managed-playing"
	case ManagedPaused:
		return "managed-paused"
	case LocalPlaying:
		return "local-playing"
	case LocalPaused:
		return "local-paused"
	default:
		return "idle"
	}
}

// Mode is the playback mode derived from the state.
type Mode int

const (
	ModeIdle Mode = iota
	ModeManaged
	ModeLocal
)

// Session is a snapshot of the engine's state handed to listeners. The
// presenter renders it without reaching back into the engine.
//
// RowID is a presentation hint naming the UI row the session is bound to.
// It may be empty when the surrounding list is not rendered; every
// transition works from the Track reference alone.
type Session struct {
	State State
	Track *catalog.Track
	RowID string
}

// IsPlaying reports whether audio is actively playing in either mode.
func (s Session) IsPlaying() bool {
	return s.State == ManagedPlaying || s.State == LocalPlaying
}

// Mode returns the session's playback mode.
func (s Session) Mode() Mode {
	switch s.State {
	case ManagedPlaying, ManagedPaused:
		return ModeManaged
	case LocalPlaying, LocalPaused:
		return ModeLocal
	default:
		return ModeIdle
	}
}

// RemoteController issues playback commands to the bound Connect device.
// Implemented by [services.SpotifyClient].
type RemoteController interface {
	Play(ctx context.Context, deviceID string, uris []string) error
	Pause(ctx context.Context, deviceID string) error
	Resume(ctx context.Context, deviceID string) error
}

// PreviewPlayer plays a short local audio clip. Starting a new clip
// replaces the previous one; onDone fires only when the clip ends
// naturally.
type PreviewPlayer interface {
	Play(ctx context.Context, previewURL string, onDone func()) error
	Pause()
	Resume()
	Stop()
}

// AuthState reports whether a valid session exists. Implemented by
// [store.SessionStore].
type AuthState interface {
	Authorized() bool
}

// StatusFunc shows a transient user-visible message. Severity is one of
// "info", "success", "error". The presentation service owns rendering.
type StatusFunc func(message, severity string)

// Opts configures a new Engine.
type Opts struct {
	Catalog *catalog.Catalog
	Remote  RemoteController
	Preview PreviewPlayer
	Auth    AuthState
	Status  StatusFunc
	Logger  *log.Logger
}

// Engine is the playback state machine. All shared playback state lives
// here and mutates only through its methods.
type Engine struct {
	mu      sync.Mutex
	catalog *catalog.Catalog
	remote  RemoteController
	preview PreviewPlayer
	auth    AuthState
	status  StatusFunc
	logger  *log.Logger

	state       State
	current     *catalog.Track
	rowID       string
	deviceID    string
	deviceReady bool
	previewGen  uint64

	listeners []func(Session)
}

func NewEngine(opts Opts) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{
		catalog: opts.Catalog,
		remote:  opts.Remote,
		preview: opts.Preview,
		auth:    opts.Auth,
		status:  opts.Status,
		logger:  logger,
	}
}

// Subscribe registers a listener invoked with a session snapshot after
// every transition.
func (e *Engine) Subscribe(fn func(Session)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Session returns a snapshot of the current playback session.
func (e *Engine) Session() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Play starts (or toggles) playback of the given track. rowID is an
// optional hint naming the rendered row the action came from.
//
// Mode selection: managed playback requires an authorized session, a ready
// device, and a streaming URI on the track; otherwise the engine falls back
// to the local preview when one exists, and reports
// [shared.ErrNotPlayable] when neither source is available.
func (e *Engine) Play(ctx context.Context, track catalog.Track, rowID string) error {
	e.mu.Lock()
	err := e.playLocked(ctx, track, rowID)
	session := e.snapshotLocked()
	e.mu.Unlock()
	e.notify(session)
	return err
}

// Toggle pauses or resumes the active mode. From idle it starts the first
// catalog track, if any exist.
func (e *Engine) Toggle(ctx context.Context) error {
	e.mu.Lock()
	var err error
	switch e.state {
	case Idle:
		if first, ok := e.catalog.At(0); ok {
			err = e.playLocked(ctx, first, "")
		}
	case ManagedPlaying:
		if err = e.remote.Pause(ctx, e.deviceID); err == nil {
			e.state = ManagedPaused
		}
	case ManagedPaused:
		if err = e.remote.Resume(ctx, e.deviceID); err == nil {
			e.state = ManagedPlaying
		}
	case LocalPlaying:
		e.preview.Pause()
		e.state = LocalPaused
	case LocalPaused:
		e.preview.Resume()
		e.state = LocalPlaying
	}
	session := e.snapshotLocked()
	e.mu.Unlock()
	e.notify(session)
	return err
}

// Next advances the catalog cursor forward (wrapping) and plays the track
// now under it.
func (e *Engine) Next(ctx context.Context) error {
	return e.seek(ctx, 1)
}

// Previous moves the catalog cursor backward (wrapping) and plays the
// track now under it.
func (e *Engine) Previous(ctx context.Context) error {
	return e.seek(ctx, -1)
}

func (e *Engine) seek(ctx context.Context, delta int) error {
	e.mu.Lock()
	var err error
	if track, ok := e.catalog.Advance(delta); ok {
		err = e.playLocked(ctx, track, "")
	}
	session := e.snapshotLocked()
	e.mu.Unlock()
	e.notify(session)
	return err
}

// Disconnect clears local audio and the bound device reference and returns
// the engine to idle. Called on logout and on detected session expiry.
func (e *Engine) Disconnect() {
	e.mu.Lock()
	e.preview.Stop()
	e.previewGen++
	e.deviceID = ""
	e.deviceReady = false
	e.toIdleLocked()
	session := e.snapshotLocked()
	e.mu.Unlock()
	e.notify(session)
}

// HandleEvent applies one device notification to the state machine.
func (e *Engine) HandleEvent(ev DeviceEvent) {
	e.mu.Lock()
	switch ev.Kind {
	case EventReady:
		e.deviceID = ev.DeviceID
		e.deviceReady = true
		e.report("Player ready! You can now play full songs.", "success")
	case EventNotReady:
		e.deviceReady = false
	case EventStateChanged:
		e.reconcileLocked(ev)
	case EventInitError:
		e.report("Failed to initialize player: "+ev.Message, "error")
	case EventAuthError:
		e.report("Spotify authentication error: "+ev.Message, "error")
	case EventEntitlementError:
		e.report("Spotify Premium required for full playback", "error")
	case EventPlaybackError:
		e.report("Playback error: "+ev.Message, "error")
	}
	session := e.snapshotLocked()
	e.mu.Unlock()
	e.notify(session)
}

// Consume applies device events from the channel until it closes or the
// context is cancelled.
func (e *Engine) Consume(ctx context.Context, events <-chan DeviceEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			e.HandleEvent(ev)
		}
	}
}

// reconcileLocked folds an account-wide state change into the session.
// The payload carries name and artist but not necessarily the catalog's
// identifier, so resolution goes through the catalog first.
func (e *Engine) reconcileLocked(ev DeviceEvent) {
	if ev.TrackName == "" {
		return
	}
	if track, ok := e.catalog.FindByNameArtist(ev.TrackName, ev.TrackArtist); ok {
		e.setCurrentLocked(track, e.rowID)
	} else {
		external := catalog.Track{Name: ev.TrackName, Artist: ev.TrackArtist}
		e.current = &external
		e.rowID = ""
	}
	if ev.Paused {
		e.state = ManagedPaused
	} else {
		e.state = ManagedPlaying
	}
}

func (e *Engine) playLocked(ctx context.Context, track catalog.Track, rowID string) error {
	if !track.Playable() {
		e.report("Track not available for playback", "info")
		return shared.ErrNotPlayable
	}

	if e.managedReadyLocked() && track.URI != "" {
		return e.playManagedLocked(ctx, track, rowID)
	}
	return e.playPreviewLocked(ctx, track, rowID)
}

func (e *Engine) playManagedLocked(ctx context.Context, track catalog.Track, rowID string) error {
	// Same track toggles instead of restarting.
	if e.current != nil && sameTrack(*e.current, track) {
		switch e.state {
		case ManagedPlaying:
			if err := e.remote.Pause(ctx, e.deviceID); err != nil {
				return e.remoteFailedLocked(ctx, track, rowID, err)
			}
			e.state = ManagedPaused
			return nil
		case ManagedPaused:
			if err := e.remote.Resume(ctx, e.deviceID); err != nil {
				return e.remoteFailedLocked(ctx, track, rowID, err)
			}
			e.state = ManagedPlaying
			return nil
		}
	}

	e.stopPreviewLocked()
	if err := e.remote.Play(ctx, e.deviceID, []string{track.URI}); err != nil {
		return e.remoteFailedLocked(ctx, track, rowID, err)
	}

	e.setCurrentLocked(track, rowID)
	e.state = ManagedPlaying
	e.report("Playing: "+track.Name, "success")
	return nil
}

// remoteFailedLocked maps a failed remote command onto the failure
// semantics: a lost device or entitlement rejection is reported and the
// preview fallback attempted when the track has one; expiry tears the
// session down; everything else is a transport failure with the same
// fallback.
func (e *Engine) remoteFailedLocked(ctx context.Context, track catalog.Track, rowID string, err error) error {
	switch {
	case errors.Is(err, shared.ErrDeviceLost):
		e.deviceReady = false
		e.toIdleLocked()
		e.report("Device not found. Please try again.", "error")
		e.tryPreviewFallbackLocked(ctx, track, rowID)
	case errors.Is(err, shared.ErrEntitlementRequired):
		e.report("Spotify Premium required for full playback", "error")
		e.tryPreviewFallbackLocked(ctx, track, rowID)
	case errors.Is(err, shared.ErrSessionExpired):
		e.deviceID = ""
		e.deviceReady = false
		e.toIdleLocked()
		e.report("Spotify session expired. Please reconnect.", "error")
	default:
		e.report("Playback failed. Trying preview instead.", "error")
		e.tryPreviewFallbackLocked(ctx, track, rowID)
	}
	return err
}

func (e *Engine) tryPreviewFallbackLocked(ctx context.Context, track catalog.Track, rowID string) {
	if track.PreviewURL == "" {
		return
	}
	if err := e.playPreviewLocked(ctx, track, rowID); err != nil {
		e.logger.Warn("preview fallback failed", "track", track.Name, "error", err)
	}
}

func (e *Engine) playPreviewLocked(ctx context.Context, track catalog.Track, rowID string) error {
	if track.PreviewURL == "" {
		e.report("No preview available for this track", "info")
		return shared.ErrNotPlayable
	}

	// Clicking the track that is already preview-playing stops it.
	if e.state == LocalPlaying && e.current != nil && sameTrack(*e.current, track) {
		e.stopPreviewLocked()
		e.toIdleLocked()
		return nil
	}

	e.stopPreviewLocked()
	e.previewGen++
	gen := e.previewGen

	if err := e.preview.Play(ctx, track.PreviewURL, func() { e.localEnded(gen) }); err != nil {
		e.toIdleLocked()
		e.report("Playback failed. Try again!", "error")
		return fmt.Errorf("%w: %v", shared.ErrLocalPlayback, err)
	}

	e.setCurrentLocked(track, rowID)
	e.state = LocalPlaying
	return nil
}

// localEnded handles a preview clip finishing naturally: return to idle,
// advance the cursor forward (wrapping from the last index to the first)
// and start the next track. The generation guard drops completions from
// clips that were already replaced.
func (e *Engine) localEnded(gen uint64) {
	e.mu.Lock()
	if gen != e.previewGen || (e.state != LocalPlaying && e.state != LocalPaused) {
		e.mu.Unlock()
		return
	}
	e.toIdleLocked()

	var err error
	if next, ok := e.catalog.Advance(1); ok {
		err = e.playLocked(context.Background(), next, "")
	}
	session := e.snapshotLocked()
	e.mu.Unlock()
	e.notify(session)

	if err != nil {
		e.logger.Warn("autoplay of next track failed", "error", err)
	}
}

func (e *Engine) stopPreviewLocked() {
	e.preview.Stop()
	e.previewGen++
}

func (e *Engine) toIdleLocked() {
	e.state = Idle
	e.current = nil
	e.rowID = ""
}

func (e *Engine) setCurrentLocked(track catalog.Track, rowID string) {
	t := track
	e.current = &t
	e.rowID = rowID
	e.catalog.CursorTo(track)
}

func (e *Engine) managedReadyLocked() bool {
	return e.auth != nil && e.auth.Authorized() && e.deviceReady && e.deviceID != ""
}

func (e *Engine) snapshotLocked() Session {
	session := Session{State: e.state, RowID: e.rowID}
	if e.current != nil {
		t := *e.current
		session.Track = &t
	}
	return session
}

func (e *Engine) notify(session Session) {
	e.mu.Lock()
	listeners := make([]func(Session), len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.Unlock()
	for _, fn := range listeners {
		fn(session)
	}
}

func (e *Engine) report(message, severity string) {
	if e.status != nil {
		e.status(message, severity)
	}
}

func sameTrack(a, b catalog.Track) bool {
	if a.ID != "" && b.ID != "" {
		return a.ID == b.ID
	}
	return a.Name == b.Name && a.Artist == b.Artist
}
