package player

// EventKind enumerates the lifecycle notifications a playback device
// produces.
type EventKind int

const (
	// EventReady reports a device ready to receive remote commands.
	EventReady EventKind = iota
	// EventNotReady reports the device went offline.
	EventNotReady
	// EventStateChanged reports the account's playback state changed,
	// possibly from another app on the same account.
	EventStateChanged
	// EventInitError reports the device failed to initialize.
	EventInitError
	// EventAuthError reports the device rejected the session's token.
	EventAuthError
	// EventEntitlementError reports the account lacks the paid tier.
	EventEntitlementError
	// EventPlaybackError reports a device-side playback failure.
	EventPlaybackError
)

// DeviceEvent is one typed notification from the device collaborator. The
// engine consumes these from a channel; each maps to one state transition.
type DeviceEvent struct {
	Kind        EventKind
	DeviceID    string
	TrackName   string
	TrackArtist string
	Paused      bool
	Message     string
}
