// Package aggregate assembles the hub's sections from the listening
// history and recommendation endpoints. Sections degrade independently,
// a failed fetch produces a placeholder instead of sinking the whole hub.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/desertthunder/nook/internal/catalog"
	"github.com/desertthunder/nook/internal/services"
	"github.com/desertthunder/nook/internal/shared"
)

const (
	recentLimit    = 10
	discoveryLimit = 12
	playlistLimit  = 15
	playlistTracks = 15
)

// fallbackGenres seed the discovery retry when personalized seeds return
// nothing usable.
var fallbackGenres = []string{"indie-pop", "alternative", "indie-rock", "pop", "electronic", "chill"}

// Library is the slice of the catalog API the aggregator reads from.
type Library interface {
	RecentlyPlayed(ctx context.Context, limit int) ([]catalog.Track, error)
	TopTracks(ctx context.Context, limit int, timeRange string) ([]catalog.Track, error)
	TopArtists(ctx context.Context, limit int, timeRange string) ([]services.SpotifyArtist, error)
	Recommendations(ctx context.Context, seeds services.Seeds) ([]catalog.Track, error)
	Playlists(ctx context.Context, limit int) ([]services.Playlist, error)
	PlaylistTracks(ctx context.Context, id string, limit int) ([]catalog.Track, error)
}

// Section is one shelf of the hub.
type Section struct {
	Title       string
	Tracks      []catalog.Track
	Placeholder string
}

// Snapshot is the assembled hub content. Recent is always first and is
// loaded before the remaining sections fan out.
type Snapshot struct {
	Recent    Section
	Suggested Section
	Discovery Section
	Playlists []services.Playlist
	SongOfDay *catalog.Track
}

// Aggregator fetches and assembles hub snapshots.
type Aggregator struct {
	library Library
	logger  *log.Logger
}

func New(library Library, logger *log.Logger) *Aggregator {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Aggregator{library: library, logger: logger}
}

// Run builds a full snapshot. The recent section is fetched first because
// its tracks seed the others; suggestions, discovery and playlists then
// load concurrently and settle independently. An expired session aborts
// the whole run, a 403 from the recommendation surface downgrades to the
// curated fallback instead.
func (a *Aggregator) Run(ctx context.Context) (*Snapshot, error) {
	recent, err := a.loadRecent(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrSessionExpired) || errors.Is(err, shared.ErrNotAuthenticated) {
			return nil, err
		}
		a.logger.Warn("recent section failed", "error", err)
		recent = Section{Title: "Recently Played", Placeholder: "Couldn't load your recent listening"}
	}

	snap := &Snapshot{Recent: recent}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		snap.Suggested = a.loadSuggested(ctx, recent.Tracks)
	}()
	go func() {
		defer wg.Done()
		snap.Discovery = a.loadDiscovery(ctx, recent.Tracks)
	}()
	go func() {
		defer wg.Done()
		snap.Playlists = a.loadPlaylists(ctx)
	}()
	wg.Wait()

	snap.SongOfDay = a.pickSongOfDay(recent.Tracks, snap.Suggested.Tracks)
	return snap, nil
}

// ExpandPlaylist fetches the first tracks of a playlist on demand.
func (a *Aggregator) ExpandPlaylist(ctx context.Context, id string) ([]catalog.Track, error) {
	tracks, err := a.library.PlaylistTracks(ctx, id, playlistTracks)
	if err != nil {
		return nil, fmt.Errorf("expand playlist %s: %w", id, err)
	}
	return tracks, nil
}

func (a *Aggregator) loadRecent(ctx context.Context) (Section, error) {
	section := Section{Title: "Recently Played"}
	items, err := a.library.RecentlyPlayed(ctx, recentLimit)
	if err != nil {
		return section, err
	}

	tracks := lo.UniqBy(items, func(t catalog.Track) string { return t.ID })
	if len(tracks) == 0 {
		// Fresh accounts have no history yet, top tracks stand in.
		top, err := a.library.TopTracks(ctx, recentLimit, "short_term")
		if err != nil {
			return section, err
		}
		tracks = lo.UniqBy(top, func(t catalog.Track) string { return t.ID })
		section.Title = "Your Top Tracks"
	}
	if len(tracks) == 0 {
		section.Placeholder = "Play some music to fill this in"
	}
	section.Tracks = tracks
	return section, nil
}

func (a *Aggregator) loadSuggested(ctx context.Context, recent []catalog.Track) Section {
	section := Section{Title: "Suggested for You"}
	seen := trackIDSet(recent)

	seedIDs := lo.Map(lo.Slice(recent, 0, 3), func(t catalog.Track, _ int) string { return t.ID })
	if len(seedIDs) > 0 {
		items, err := a.library.Recommendations(ctx, services.Seeds{TrackIDs: seedIDs, Limit: recentLimit})
		if err == nil && len(items) > 0 {
			section.Tracks = excludeIDs(items, seen)
			if len(section.Tracks) > 0 {
				return section
			}
		}
		if err != nil {
			if errors.Is(err, shared.ErrAllowlistRequired) {
				a.logger.Info("recommendations unavailable, using curated picks")
				section.Tracks = excludeIDs(curatedTracks(), seen)
				section.Title = "Curated Picks"
				return section
			}
			a.logger.Warn("suggestions failed", "error", err)
		}
	}

	top, err := a.library.TopTracks(ctx, recentLimit, "medium_term")
	if err != nil {
		section.Placeholder = "Suggestions are taking a break"
		return section
	}
	section.Tracks = excludeIDs(top, seen)
	if len(section.Tracks) == 0 {
		section.Placeholder = "Suggestions are taking a break"
	}
	return section
}

func (a *Aggregator) loadDiscovery(ctx context.Context, recent []catalog.Track) Section {
	section := Section{Title: "Discover Something New"}
	seen := trackIDSet(recent)

	seeds := services.Seeds{
		TrackIDs:      lo.Map(lo.Slice(recent, 0, 2), func(t catalog.Track, _ int) string { return t.ID }),
		MinPopularity: 20,
		MaxPopularity: 80,
		Limit:         discoveryLimit,
	}
	if artists, err := a.library.TopArtists(ctx, 2, "medium_term"); err == nil {
		seeds.ArtistIDs = lo.Map(artists, func(ar services.SpotifyArtist, _ int) string { return ar.ID })
	}

	if len(seeds.TrackIDs) > 0 || len(seeds.ArtistIDs) > 0 {
		items, err := a.library.Recommendations(ctx, seeds)
		if err == nil {
			if tracks := excludeIDs(items, seen); len(tracks) > 0 {
				section.Tracks = tracks
				return section
			}
		} else if !errors.Is(err, shared.ErrAllowlistRequired) {
			a.logger.Warn("discovery seeds failed", "error", err)
		}
	}

	// Personalized seeds exhausted, fall back to broad genres.
	items, err := a.library.Recommendations(ctx, services.Seeds{
		Genres:        fallbackGenres,
		MinPopularity: 30,
		MaxPopularity: 85,
		Limit:         10,
	})
	if err == nil {
		section.Tracks = excludeIDs(items, seen)
	}
	if len(section.Tracks) == 0 {
		section.Placeholder = "Nothing new under the sun today"
	}
	return section
}

func (a *Aggregator) loadPlaylists(ctx context.Context) []services.Playlist {
	playlists, err := a.library.Playlists(ctx, playlistLimit)
	if err != nil {
		a.logger.Warn("playlists failed", "error", err)
		return nil
	}
	return playlists
}

// pickSongOfDay surfaces the most recent listen in the hub header, falling
// back to the first suggestion for accounts without history.
func (a *Aggregator) pickSongOfDay(recent, suggested []catalog.Track) *catalog.Track {
	if len(recent) > 0 {
		pick := recent[0]
		return &pick
	}
	if len(suggested) > 0 {
		pick := suggested[0]
		return &pick
	}
	return nil
}

func trackIDSet(tracks []catalog.Track) map[string]struct{} {
	set := make(map[string]struct{}, len(tracks))
	for _, t := range tracks {
		if t.ID != "" {
			set[t.ID] = struct{}{}
		}
	}
	return set
}

func excludeIDs(tracks []catalog.Track, seen map[string]struct{}) []catalog.Track {
	return lo.Filter(tracks, func(t catalog.Track, _ int) bool {
		_, dup := seen[t.ID]
		return !dup
	})
}

// curatedTracks is the hand-picked stand-in shelf shown when the account
// can't reach the recommendation endpoints.
func curatedTracks() []catalog.Track {
	return []catalog.Track{
		{ID: "4ZtFanR9U6ndgddUvNcjcG", Name: "good 4 u", Artist: "Olivia Rodrigo", URI: "spotify:track:4ZtFanR9U6ndgddUvNcjcG"},
		{ID: "0V3wPSX9ygBnCm8psDIegu", Name: "Anti-Hero", Artist: "Taylor Swift", URI: "spotify:track:0V3wPSX9ygBnCm8psDIegu"},
		{ID: "0yLdNVWF3Srea0uzk55zFn", Name: "Flowers", Artist: "Miley Cyrus", URI: "spotify:track:0yLdNVWF3Srea0uzk55zFn"},
		{ID: "4Dvkj6JhhA12EX05fT7y2e", Name: "As It Was", Artist: "Harry Styles", URI: "spotify:track:4Dvkj6JhhA12EX05fT7y2e"},
		{ID: "3nqQXoyQOWXiESFLlDF1hG", Name: "Unholy", Artist: "Sam Smith, Kim Petras", URI: "spotify:track:3nqQXoyQOWXiESFLlDF1hG"},
	}
}
