package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig   = fmt.Errorf("configuration not found")
	ErrInvalidConfig   = fmt.Errorf("invalid configuration")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")

	// Authentication errors
	ErrNotAuthenticated  = fmt.Errorf("not authenticated")
	ErrAuthCancelled     = fmt.Errorf("authorization cancelled")
	ErrAuthStateMissing  = fmt.Errorf("authorization state missing")
	ErrTokenExchange     = fmt.Errorf("token exchange failed")
	ErrSessionExpired    = fmt.Errorf("session expired")
	ErrAllowlistRequired = fmt.Errorf("account not on app allowlist")
	ErrTimeout           = fmt.Errorf("operation timed out")

	// Playback errors
	ErrEntitlementRequired = fmt.Errorf("premium subscription required")
	ErrDeviceLost          = fmt.Errorf("playback device not found")
	ErrPlaybackTransport   = fmt.Errorf("playback command failed")
	ErrLocalPlayback       = fmt.Errorf("preview playback failed")
	ErrNotPlayable         = fmt.Errorf("track has no playable source")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrTrackNotFound      = fmt.Errorf("track not found")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
)
