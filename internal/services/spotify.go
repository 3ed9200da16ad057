// Spotify Web API client.
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/nook/internal/catalog"
	"github.com/desertthunder/nook/internal/shared"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	Popularity int             `json:"popularity"`
	URI        string          `json:"uri"`
	PreviewURL string          `json:"preview_url"`
	DurationMS int             `json:"duration_ms"`
}

// Catalog converts the API track shape to a catalog record. Album images
// arrive largest first; the smallest available is preferred for row art.
func (t SpotifyTrack) Catalog() catalog.Track {
	track := catalog.Track{
		ID:          t.ID,
		Name:        t.Name,
		URI:         t.URI,
		PreviewURL:  t.PreviewURL,
		DurationSec: t.DurationMS / 1000,
	}
	if len(t.Artists) > 0 {
		track.Artist = t.Artists[0].Name
	}
	if n := len(t.Album.Images); n > 0 {
		track.ArtURL = t.Album.Images[n-1].URL
	}
	return track
}

// SpotifyUser represents the authenticated user's profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Product     string `json:"product"` // premium, free, etc.
}

// SpotifyDevice represents a Spotify Connect playback device.
type SpotifyDevice struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Active bool   `json:"is_active"`
}

// PlayerState represents the account-wide playback state. Playback started
// by another app on the same account shows up here too.
type PlayerState struct {
	Device    SpotifyDevice `json:"device"`
	IsPlaying bool          `json:"is_playing"`
	Item      *SpotifyTrack `json:"item"`
}

type playHistoryItem struct {
	Track SpotifyTrack `json:"track"`
}

type playlistTrackItem struct {
	Track *SpotifyTrack `json:"track"`
}

type simplePlaylistTracks struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Images      []SpotifyImage       `json:"images"`
	Tracks      simplePlaylistTracks `json:"tracks"`
}

// SpotifyClient calls the Spotify Web API with bearer authentication.
//
// All requests pass through a shared rate limiter. Data endpoint failures
// map onto the shared error taxonomy: 401 is a session expiry, 403 an
// allowlist rejection. Playback command endpoints have their own mapping,
// see [SpotifyClient.Play].
type SpotifyClient struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	limiter    *rate.Limiter
}

// NewSpotifyClient creates a client reading bearer tokens from the given source.
func NewSpotifyClient(tokens TokenSource, httpClient *http.Client) *SpotifyClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &SpotifyClient{
		baseURL:    spotifyBaseURL,
		httpClient: httpClient,
		tokens:     tokens,
		limiter:    rate.NewLimiter(rate.Limit(10), 5),
	}
}

// WithBaseURL overrides the API base URL. Used by tests.
func (c *SpotifyClient) WithBaseURL(baseURL string) *SpotifyClient {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

type statusError struct {
	code      int
	body      string
	requestID string
}

func (e *statusError) Error() string {
	if e.requestID != "" {
		return fmt.Sprintf("status %d (request %s): %s", e.code, e.requestID, e.body)
	}
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

// do performs an authenticated request and decodes a JSON response into
// result. A non-2xx response is returned as a *statusError for the caller
// to map; a 204 leaves result untouched.
func (c *SpotifyClient) do(ctx context.Context, method, endpoint string, body, result any) error {
	token, ok := c.tokens.AccessToken()
	if !ok {
		return shared.ErrNotAuthenticated
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	// correlates client logs with provider-side request logs
	reqID := shared.GenerateID()
	req.Header.Set("X-Request-ID", reqID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var buf bytes.Buffer
		buf.ReadFrom(resp.Body)
		return &statusError{code: resp.StatusCode, body: strings.TrimSpace(buf.String()), requestID: reqID}
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// get performs a GET against a data endpoint with the taxonomy mapping for
// data reads applied.
func (c *SpotifyClient) get(ctx context.Context, endpoint string, result any) error {
	return mapDataErr(c.do(ctx, http.MethodGet, endpoint, nil, result))
}

func mapDataErr(err error) error {
	if err == nil {
		return nil
	}
	var se *statusError
	if asStatus(err, &se) {
		switch se.code {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", shared.ErrSessionExpired, se.body)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %s", shared.ErrAllowlistRequired, se.body)
		default:
			return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, se.code)
		}
	}
	return err
}

func asStatus(err error, target **statusError) bool {
	se, ok := err.(*statusError)
	if ok {
		*target = se
	}
	return ok
}

// Profile retrieves the current authenticated user's profile.
func (c *SpotifyClient) Profile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := c.get(ctx, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// RecentlyPlayed retrieves the user's recently played tracks, most recent
// first. The same track may appear more than once; callers deduplicate.
func (c *SpotifyClient) RecentlyPlayed(ctx context.Context, limit int) ([]catalog.Track, error) {
	var response struct {
		Items []playHistoryItem `json:"items"`
	}
	endpoint := fmt.Sprintf("/me/player/recently-played?limit=%d", clampLimit(limit))
	if err := c.get(ctx, endpoint, &response); err != nil {
		return nil, err
	}

	tracks := make([]catalog.Track, 0, len(response.Items))
	for _, item := range response.Items {
		if item.Track.ID == "" {
			continue
		}
		tracks = append(tracks, item.Track.Catalog())
	}
	return tracks, nil
}

// TopTracks retrieves the user's top tracks over the given time range
// (short_term, medium_term, long_term; empty for the API default).
func (c *SpotifyClient) TopTracks(ctx context.Context, limit int, timeRange string) ([]catalog.Track, error) {
	endpoint := fmt.Sprintf("/me/top/tracks?limit=%d", clampLimit(limit))
	if timeRange != "" {
		endpoint += "&time_range=" + url.QueryEscape(timeRange)
	}

	var response struct {
		Items []SpotifyTrack `json:"items"`
	}
	if err := c.get(ctx, endpoint, &response); err != nil {
		return nil, err
	}

	tracks := make([]catalog.Track, 0, len(response.Items))
	for _, item := range response.Items {
		if item.ID == "" {
			continue
		}
		tracks = append(tracks, item.Catalog())
	}
	return tracks, nil
}

// TopArtists retrieves the user's top artists over the given time range.
func (c *SpotifyClient) TopArtists(ctx context.Context, limit int, timeRange string) ([]SpotifyArtist, error) {
	endpoint := fmt.Sprintf("/me/top/artists?limit=%d", clampLimit(limit))
	if timeRange != "" {
		endpoint += "&time_range=" + url.QueryEscape(timeRange)
	}

	var response struct {
		Items []SpotifyArtist `json:"items"`
	}
	if err := c.get(ctx, endpoint, &response); err != nil {
		return nil, err
	}
	return response.Items, nil
}

// Recommendations retrieves recommendation-engine tracks for the given seeds.
func (c *SpotifyClient) Recommendations(ctx context.Context, seeds Seeds) ([]catalog.Track, error) {
	params := url.Values{}
	if len(seeds.TrackIDs) > 0 {
		params.Set("seed_tracks", strings.Join(seeds.TrackIDs, ","))
	}
	if len(seeds.ArtistIDs) > 0 {
		params.Set("seed_artists", strings.Join(seeds.ArtistIDs, ","))
	}
	if len(seeds.Genres) > 0 {
		params.Set("seed_genres", strings.Join(seeds.Genres, ","))
	}
	if seeds.MinPopularity > 0 {
		params.Set("min_popularity", strconv.Itoa(seeds.MinPopularity))
	}
	if seeds.MaxPopularity > 0 {
		params.Set("max_popularity", strconv.Itoa(seeds.MaxPopularity))
	}
	limit := seeds.Limit
	if limit <= 0 {
		limit = 10
	}
	params.Set("limit", strconv.Itoa(limit))

	var response struct {
		Tracks []SpotifyTrack `json:"tracks"`
	}
	if err := c.get(ctx, "/recommendations?"+params.Encode(), &response); err != nil {
		return nil, err
	}

	tracks := make([]catalog.Track, 0, len(response.Tracks))
	for _, item := range response.Tracks {
		if item.ID == "" {
			continue
		}
		tracks = append(tracks, item.Catalog())
	}
	return tracks, nil
}

// AvailableGenreSeeds retrieves the genres accepted as recommendation seeds.
func (c *SpotifyClient) AvailableGenreSeeds(ctx context.Context) ([]string, error) {
	var response struct {
		Genres []string `json:"genres"`
	}
	if err := c.get(ctx, "/recommendations/available-genre-seeds", &response); err != nil {
		return nil, err
	}
	return response.Genres, nil
}

// Playlists retrieves the user's playlists.
func (c *SpotifyClient) Playlists(ctx context.Context, limit int) ([]Playlist, error) {
	var response struct {
		Items []SpotifySimplePlaylist `json:"items"`
	}
	endpoint := fmt.Sprintf("/me/playlists?limit=%d", clampLimit(limit))
	if err := c.get(ctx, endpoint, &response); err != nil {
		return nil, err
	}

	playlists := make([]Playlist, 0, len(response.Items))
	for _, sp := range response.Items {
		pl := Playlist{
			ID:          sp.ID,
			Name:        sp.Name,
			Description: sp.Description,
			TrackCount:  sp.Tracks.Total,
		}
		if n := len(sp.Images); n > 0 {
			pl.ArtURL = sp.Images[n-1].URL
		}
		playlists = append(playlists, pl)
	}
	return playlists, nil
}

// PlaylistTracks retrieves tracks for a playlist. Entries with no track
// object (removed or unavailable) are skipped.
func (c *SpotifyClient) PlaylistTracks(ctx context.Context, playlistID string, limit int) ([]catalog.Track, error) {
	var response struct {
		Items []playlistTrackItem `json:"items"`
	}
	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d", url.PathEscape(playlistID), clampLimit(limit))
	if err := c.get(ctx, endpoint, &response); err != nil {
		return nil, err
	}

	tracks := make([]catalog.Track, 0, len(response.Items))
	for _, item := range response.Items {
		if item.Track == nil || item.Track.ID == "" {
			continue
		}
		tracks = append(tracks, item.Track.Catalog())
	}
	return tracks, nil
}

// Devices retrieves the account's available Spotify Connect devices.
func (c *SpotifyClient) Devices(ctx context.Context) ([]SpotifyDevice, error) {
	var response struct {
		Devices []SpotifyDevice `json:"devices"`
	}
	if err := c.get(ctx, "/me/player/devices", &response); err != nil {
		return nil, err
	}
	return response.Devices, nil
}

// State retrieves the account-wide playback state. A 204 means nothing is
// playing anywhere on the account and returns nil state.
func (c *SpotifyClient) State(ctx context.Context) (*PlayerState, error) {
	var state PlayerState
	if err := c.get(ctx, "/me/player", &state); err != nil {
		return nil, err
	}
	if state.Item == nil && state.Device.ID == "" {
		return nil, nil
	}
	return &state, nil
}

// Play issues the remote "play these URIs" command to the named device.
//
// Failure mapping per the playback taxonomy: a 404 means the device is
// gone ([shared.ErrDeviceLost]), a 403 that the account lacks the paid tier
// ([shared.ErrEntitlementRequired]), a 401 a session expiry; transport
// failures surface as [shared.ErrPlaybackTransport].
func (c *SpotifyClient) Play(ctx context.Context, deviceID string, uris []string) error {
	endpoint := "/me/player/play"
	if deviceID != "" {
		endpoint += "?device_id=" + url.QueryEscape(deviceID)
	}

	var body any
	if len(uris) > 0 {
		body = map[string][]string{"uris": uris}
	}
	return mapPlayerErr(c.do(ctx, http.MethodPut, endpoint, body, nil))
}

// Pause issues the remote pause command.
func (c *SpotifyClient) Pause(ctx context.Context, deviceID string) error {
	endpoint := "/me/player/pause"
	if deviceID != "" {
		endpoint += "?device_id=" + url.QueryEscape(deviceID)
	}
	return mapPlayerErr(c.do(ctx, http.MethodPut, endpoint, nil, nil))
}

// Resume resumes playback on the device without replacing the track queue.
func (c *SpotifyClient) Resume(ctx context.Context, deviceID string) error {
	return c.Play(ctx, deviceID, nil)
}

func mapPlayerErr(err error) error {
	if err == nil {
		return nil
	}
	var se *statusError
	if asStatus(err, &se) {
		switch se.code {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", shared.ErrDeviceLost, se.body)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %s", shared.ErrEntitlementRequired, se.body)
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", shared.ErrSessionExpired, se.body)
		default:
			return fmt.Errorf("%w: status %d", shared.ErrPlaybackTransport, se.code)
		}
	}
	if errors.Is(err, shared.ErrNotAuthenticated) {
		return err
	}
	return fmt.Errorf("%w: %v", shared.ErrPlaybackTransport, err)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 10
	}
	if limit > 50 {
		return 50
	}
	return limit
}
