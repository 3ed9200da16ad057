package aggregate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/desertthunder/nook/internal/catalog"
	"github.com/desertthunder/nook/internal/services"
	"github.com/desertthunder/nook/internal/shared"
)

type fakeLibrary struct {
	recent    func(limit int) ([]catalog.Track, error)
	top       func(limit int, timeRange string) ([]catalog.Track, error)
	artists   func(limit int, timeRange string) ([]services.SpotifyArtist, error)
	recs      func(seeds services.Seeds) ([]catalog.Track, error)
	playlists func(limit int) ([]services.Playlist, error)
	plTracks  func(id string, limit int) ([]catalog.Track, error)
}

func (f *fakeLibrary) RecentlyPlayed(ctx context.Context, limit int) ([]catalog.Track, error) {
	if f.recent == nil {
		return nil, nil
	}
	return f.recent(limit)
}

func (f *fakeLibrary) TopTracks(ctx context.Context, limit int, timeRange string) ([]catalog.Track, error) {
	if f.top == nil {
		return nil, nil
	}
	return f.top(limit, timeRange)
}

func (f *fakeLibrary) TopArtists(ctx context.Context, limit int, timeRange string) ([]services.SpotifyArtist, error) {
	if f.artists == nil {
		return nil, nil
	}
	return f.artists(limit, timeRange)
}

func (f *fakeLibrary) Recommendations(ctx context.Context, seeds services.Seeds) ([]catalog.Track, error) {
	if f.recs == nil {
		return nil, nil
	}
	return f.recs(seeds)
}

func (f *fakeLibrary) Playlists(ctx context.Context, limit int) ([]services.Playlist, error) {
	if f.playlists == nil {
		return nil, nil
	}
	return f.playlists(limit)
}

func (f *fakeLibrary) PlaylistTracks(ctx context.Context, id string, limit int) ([]catalog.Track, error) {
	if f.plTracks == nil {
		return nil, nil
	}
	return f.plTracks(id, limit)
}

func tk(id string) catalog.Track {
	return catalog.Track{ID: id, Name: "Track " + id, Artist: "Artist"}
}

func ids(tracks []catalog.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.ID
	}
	return out
}

func equalIDs(got []catalog.Track, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i, t := range got {
		if t.ID != want[i] {
			return false
		}
	}
	return true
}

func TestRunRecent(t *testing.T) {
	t.Run("DedupesRepeatedListens", func(t *testing.T) {
		lib := &fakeLibrary{
			recent: func(int) ([]catalog.Track, error) {
				return []catalog.Track{tk("a"), tk("a"), tk("b")}, nil
			},
		}
		snap, err := New(lib, nil).Run(t.Context())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if !equalIDs(snap.Recent.Tracks, "a", "b") {
			t.Errorf("expected [a b], got %v", ids(snap.Recent.Tracks))
		}
		if snap.Recent.Title != "Recently Played" {
			t.Errorf("unexpected title %q", snap.Recent.Title)
		}
	})

	t.Run("EmptyHistoryUsesTopTracks", func(t *testing.T) {
		lib := &fakeLibrary{
			top: func(_ int, timeRange string) ([]catalog.Track, error) {
				if timeRange != "short_term" {
					return nil, fmt.Errorf("unexpected range %s", timeRange)
				}
				return []catalog.Track{tk("t1"), tk("t2")}, nil
			},
		}
		snap, err := New(lib, nil).Run(t.Context())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if snap.Recent.Title != "Your Top Tracks" {
			t.Errorf("expected the stand-in title, got %q", snap.Recent.Title)
		}
		if !equalIDs(snap.Recent.Tracks, "t1", "t2") {
			t.Errorf("expected top tracks, got %v", ids(snap.Recent.Tracks))
		}
	})

	t.Run("NothingAtAllShowsPlaceholder", func(t *testing.T) {
		snap, err := New(&fakeLibrary{}, nil).Run(t.Context())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if snap.Recent.Placeholder == "" {
			t.Error("expected a placeholder for an empty account")
		}
	})

	t.Run("ExpiredSessionAborts", func(t *testing.T) {
		lib := &fakeLibrary{
			recent: func(int) ([]catalog.Track, error) {
				return nil, fmt.Errorf("%w", shared.ErrSessionExpired)
			},
		}
		if _, err := New(lib, nil).Run(t.Context()); !errors.Is(err, shared.ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}
	})

	t.Run("TransientFailureDegradesToPlaceholder", func(t *testing.T) {
		lib := &fakeLibrary{
			recent: func(int) ([]catalog.Track, error) {
				return nil, fmt.Errorf("timeout")
			},
		}
		snap, err := New(lib, nil).Run(t.Context())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if snap.Recent.Placeholder == "" {
			t.Error("expected a placeholder when recent listening can't load")
		}
	})
}

func TestRunSuggested(t *testing.T) {
	recent := func(int) ([]catalog.Track, error) {
		return []catalog.Track{tk("a"), tk("b")}, nil
	}

	t.Run("RecommendationsExcludeRecent", func(t *testing.T) {
		lib := &fakeLibrary{
			recent: recent,
			recs: func(seeds services.Seeds) ([]catalog.Track, error) {
				if len(seeds.Genres) > 0 {
					return nil, nil
				}
				return []catalog.Track{tk("a"), tk("s1"), tk("s2")}, nil
			},
		}
		snap, _ := New(lib, nil).Run(t.Context())
		if !equalIDs(snap.Suggested.Tracks, "s1", "s2") {
			t.Errorf("expected recent listens filtered out, got %v", ids(snap.Suggested.Tracks))
		}
	})

	t.Run("FailureFallsBackToTopTracks", func(t *testing.T) {
		lib := &fakeLibrary{
			recent: recent,
			recs: func(services.Seeds) ([]catalog.Track, error) {
				return nil, fmt.Errorf("%w: status 500", shared.ErrAPIRequest)
			},
			top: func(_ int, timeRange string) ([]catalog.Track, error) {
				if timeRange != "medium_term" {
					return nil, fmt.Errorf("unexpected range %s", timeRange)
				}
				return []catalog.Track{tk("b"), tk("t1")}, nil
			},
		}
		snap, _ := New(lib, nil).Run(t.Context())
		if !equalIDs(snap.Suggested.Tracks, "t1") {
			t.Errorf("expected deduped top tracks, got %v", ids(snap.Suggested.Tracks))
		}
	})

	t.Run("AllowlistRejectionShowsCuratedPicks", func(t *testing.T) {
		lib := &fakeLibrary{
			recent: recent,
			recs: func(services.Seeds) ([]catalog.Track, error) {
				return nil, fmt.Errorf("%w", shared.ErrAllowlistRequired)
			},
		}
		snap, _ := New(lib, nil).Run(t.Context())
		if snap.Suggested.Title != "Curated Picks" {
			t.Errorf("expected the curated shelf, got %q", snap.Suggested.Title)
		}
		if len(snap.Suggested.Tracks) == 0 {
			t.Error("curated shelf should not be empty")
		}
	})

	t.Run("TotalFailureShowsPlaceholder", func(t *testing.T) {
		lib := &fakeLibrary{
			recent: recent,
			recs: func(services.Seeds) ([]catalog.Track, error) {
				return nil, fmt.Errorf("down")
			},
			top: func(int, string) ([]catalog.Track, error) {
				return nil, fmt.Errorf("also down")
			},
		}
		snap, _ := New(lib, nil).Run(t.Context())
		if snap.Suggested.Placeholder == "" {
			t.Error("expected a placeholder when every source fails")
		}
	})
}

func TestRunDiscovery(t *testing.T) {
	t.Run("PersonalizedSeeds", func(t *testing.T) {
		var seeds []services.Seeds
		lib := &fakeLibrary{
			recent: func(int) ([]catalog.Track, error) {
				return []catalog.Track{tk("a"), tk("b"), tk("c")}, nil
			},
			artists: func(int, string) ([]services.SpotifyArtist, error) {
				return []services.SpotifyArtist{{ID: "ar1"}, {ID: "ar2"}}, nil
			},
			recs: func(s services.Seeds) ([]catalog.Track, error) {
				seeds = append(seeds, s)
				if len(s.ArtistIDs) > 0 {
					return []catalog.Track{tk("d1")}, nil
				}
				return nil, nil
			},
		}
		snap, _ := New(lib, nil).Run(t.Context())
		if !equalIDs(snap.Discovery.Tracks, "d1") {
			t.Fatalf("expected the personalized result, got %v", ids(snap.Discovery.Tracks))
		}

		var found bool
		for _, s := range seeds {
			if len(s.ArtistIDs) == 2 && len(s.TrackIDs) == 2 && s.MinPopularity == 20 && s.MaxPopularity == 80 {
				found = true
			}
		}
		if !found {
			t.Errorf("expected artist and track seeds with the popularity window, got %+v", seeds)
		}
	})

	t.Run("GenreFallback", func(t *testing.T) {
		lib := &fakeLibrary{
			recent: func(int) ([]catalog.Track, error) {
				return []catalog.Track{tk("a")}, nil
			},
			recs: func(s services.Seeds) ([]catalog.Track, error) {
				if len(s.Genres) > 0 {
					if s.MinPopularity != 30 || s.MaxPopularity != 85 || s.Limit != 10 {
						return nil, fmt.Errorf("unexpected genre seeds %+v", s)
					}
					return []catalog.Track{tk("g1")}, nil
				}
				return nil, nil
			},
		}
		snap, _ := New(lib, nil).Run(t.Context())
		if !equalIDs(snap.Discovery.Tracks, "g1") {
			t.Errorf("expected the genre fallback result, got %v", ids(snap.Discovery.Tracks))
		}
	})

	t.Run("EverythingEmptyShowsPlaceholder", func(t *testing.T) {
		lib := &fakeLibrary{
			recent: func(int) ([]catalog.Track, error) {
				return []catalog.Track{tk("a")}, nil
			},
		}
		snap, _ := New(lib, nil).Run(t.Context())
		if snap.Discovery.Placeholder == "" {
			t.Error("expected a placeholder when discovery finds nothing")
		}
	})
}

func TestRunAssembly(t *testing.T) {
	t.Run("SongOfDayIsFirstRecent", func(t *testing.T) {
		lib := &fakeLibrary{
			recent: func(int) ([]catalog.Track, error) {
				return []catalog.Track{tk("a"), tk("b")}, nil
			},
		}
		snap, _ := New(lib, nil).Run(t.Context())
		if snap.SongOfDay == nil || snap.SongOfDay.ID != "a" {
			t.Errorf("expected a, got %+v", snap.SongOfDay)
		}
	})

	t.Run("SongOfDayFallsBackToSuggested", func(t *testing.T) {
		lib := &fakeLibrary{
			top: func(_ int, timeRange string) ([]catalog.Track, error) {
				if timeRange == "medium_term" {
					return []catalog.Track{tk("s1")}, nil
				}
				return nil, nil
			},
		}
		snap, _ := New(lib, nil).Run(t.Context())
		if snap.SongOfDay == nil || snap.SongOfDay.ID != "s1" {
			t.Errorf("expected s1, got %+v", snap.SongOfDay)
		}
	})

	t.Run("PlaylistFailureIsIsolated", func(t *testing.T) {
		lib := &fakeLibrary{
			recent: func(int) ([]catalog.Track, error) {
				return []catalog.Track{tk("a")}, nil
			},
			playlists: func(int) ([]services.Playlist, error) {
				return nil, fmt.Errorf("down")
			},
		}
		snap, err := New(lib, nil).Run(t.Context())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if snap.Playlists != nil {
			t.Errorf("expected no playlists, got %v", snap.Playlists)
		}
		if len(snap.Recent.Tracks) == 0 {
			t.Error("other sections must survive a playlist failure")
		}
	})

	t.Run("Playlists", func(t *testing.T) {
		lib := &fakeLibrary{
			playlists: func(limit int) ([]services.Playlist, error) {
				if limit != playlistLimit {
					return nil, fmt.Errorf("unexpected limit %d", limit)
				}
				return []services.Playlist{{ID: "p1", Name: "Morning Mix", TrackCount: 30}}, nil
			},
		}
		snap, _ := New(lib, nil).Run(t.Context())
		if len(snap.Playlists) != 1 || snap.Playlists[0].ID != "p1" {
			t.Errorf("unexpected playlists %v", snap.Playlists)
		}
	})
}

func TestExpandPlaylist(t *testing.T) {
	t.Run("ForwardsTracks", func(t *testing.T) {
		lib := &fakeLibrary{
			plTracks: func(id string, limit int) ([]catalog.Track, error) {
				if id != "p1" || limit != playlistTracks {
					return nil, fmt.Errorf("unexpected call %s %d", id, limit)
				}
				return []catalog.Track{tk("a")}, nil
			},
		}
		tracks, err := New(lib, nil).ExpandPlaylist(t.Context(), "p1")
		if err != nil {
			t.Fatalf("ExpandPlaylist failed: %v", err)
		}
		if !equalIDs(tracks, "a") {
			t.Errorf("unexpected tracks %v", ids(tracks))
		}
	})

	t.Run("WrapsFetchErrors", func(t *testing.T) {
		lib := &fakeLibrary{
			plTracks: func(string, int) ([]catalog.Track, error) {
				return nil, fmt.Errorf("%w: status 500", shared.ErrAPIRequest)
			},
		}
		if _, err := New(lib, nil).ExpandPlaylist(t.Context(), "p1"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
	})
}
