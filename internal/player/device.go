package player

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nook/internal/services"
	"github.com/desertthunder/nook/internal/shared"
)

// StateReader is the slice of the API client the monitor polls.
type StateReader interface {
	Devices(ctx context.Context) ([]services.SpotifyDevice, error)
	State(ctx context.Context) (*services.PlayerState, error)
}

// Monitor watches the account's Connect devices and playback state and
// turns changes into typed [DeviceEvent]s on a channel. The engine is the
// sole consumer; the monitor never mutates playback state itself.
//
// Playback started elsewhere on the account (another app, another device)
// shows up as ordinary StateChanged events and flows through the same
// reconciliation path as local actions.
type Monitor struct {
	client     StateReader
	logger     *log.Logger
	interval   time.Duration
	deviceName string
	events     chan DeviceEvent

	ready      bool
	deviceID   string
	lastTrack  string
	lastPaused bool
	seenState  bool
}

// NewMonitor creates a monitor preferring the device with the given name,
// falling back to the active device.
func NewMonitor(client StateReader, deviceName string, interval time.Duration, logger *log.Logger) *Monitor {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Monitor{
		client:     client,
		logger:     logger,
		interval:   interval,
		deviceName: deviceName,
		events:     make(chan DeviceEvent, 8),
	}
}

// Events returns the event channel. Closed when Run returns.
func (m *Monitor) Events() <-chan DeviceEvent {
	return m.events
}

// Run polls until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	defer close(m.events)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

func (m *Monitor) poll(ctx context.Context) {
	devices, err := m.client.Devices(ctx)
	if err != nil {
		m.pollFailed(err)
		return
	}

	device, found := m.pickDevice(devices)
	switch {
	case found && (!m.ready || device.ID != m.deviceID):
		m.ready = true
		m.deviceID = device.ID
		m.emit(DeviceEvent{Kind: EventReady, DeviceID: device.ID})
	case !found && m.ready:
		m.ready = false
		m.emit(DeviceEvent{Kind: EventNotReady, DeviceID: m.deviceID})
	}

	state, err := m.client.State(ctx)
	if err != nil {
		m.pollFailed(err)
		return
	}
	if state == nil || state.Item == nil {
		return
	}

	track := state.Item.Catalog()
	key := track.Name + "\x00" + track.Artist
	paused := !state.IsPlaying
	if m.seenState && key == m.lastTrack && paused == m.lastPaused {
		return
	}
	m.seenState = true
	m.lastTrack = key
	m.lastPaused = paused
	m.emit(DeviceEvent{
		Kind:        EventStateChanged,
		DeviceID:    state.Device.ID,
		TrackName:   track.Name,
		TrackArtist: track.Artist,
		Paused:      paused,
	})
}

func (m *Monitor) pollFailed(err error) {
	switch {
	case errors.Is(err, shared.ErrSessionExpired), errors.Is(err, shared.ErrNotAuthenticated):
		m.emit(DeviceEvent{Kind: EventAuthError, Message: err.Error()})
	case errors.Is(err, shared.ErrAllowlistRequired):
		m.emit(DeviceEvent{Kind: EventEntitlementError, Message: err.Error()})
	default:
		// Transient transport failures don't unbind the device.
		m.logger.Debug("device poll failed", "error", err)
	}
}

func (m *Monitor) pickDevice(devices []services.SpotifyDevice) (services.SpotifyDevice, bool) {
	for _, d := range devices {
		if m.deviceName != "" && d.Name == m.deviceName {
			return d, true
		}
	}
	for _, d := range devices {
		if d.Active {
			return d, true
		}
	}
	if len(devices) > 0 {
		return devices[0], true
	}
	return services.SpotifyDevice{}, false
}

// emit sends without blocking; a full channel drops the event rather than
// stalling the poll loop.
func (m *Monitor) emit(ev DeviceEvent) {
	select {
	case m.events <- ev:
	default:
		m.logger.Warn("device event dropped", "kind", ev.Kind)
	}
}
