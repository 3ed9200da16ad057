// package services contains the Spotify Web API client and the PKCE
// authorization flow.
package services

// TokenSource provides the current bearer token for API requests.
//
// The second return is false when no valid session exists; requests fail
// with [shared.ErrNotAuthenticated] without touching the network.
type TokenSource interface {
	AccessToken() (string, bool)
}

// Playlist represents a playlist in the hub's playlist grid.
type Playlist struct {
	ID          string
	Name        string
	Description string
	ArtURL      string
	TrackCount  int
}

// Seeds parameterizes a recommendations request. Zero values are omitted
// from the query string.
type Seeds struct {
	TrackIDs      []string
	ArtistIDs     []string
	Genres        []string
	MinPopularity int
	MaxPopularity int
	Limit         int
}

// StaticToken is a TokenSource wrapping a fixed token string.
type StaticToken string

func (t StaticToken) AccessToken() (string, bool) {
	return string(t), t != ""
}
