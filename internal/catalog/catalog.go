// Package catalog holds the in-memory track catalog shared by the playback
// engine, the aggregator, and the hub UI.
//
// The catalog is an ordered sequence of tracks in fetch arrival order plus a
// single cursor marking the current track. All mutation funnels through its
// methods; concurrent fetch completions append under the same lock.
package catalog

import "sync"

// Track is a playable (or at least listable) track record.
//
// URI is the streaming reference used for managed playback on a Spotify
// Connect device. PreviewURL is a short audio clip for local playback. A
// track may have both, one, or neither; a track with neither is listed but
// excluded from play actions.
type Track struct {
	ID          string
	Name        string
	Artist      string
	ArtURL      string
	URI         string
	PreviewURL  string
	DurationSec int
}

// Playable reports whether the track has at least one playable source.
func (t Track) Playable() bool {
	return t.URI != "" || t.PreviewURL != ""
}

// Catalog is the ordered track sequence with a cursor.
//
// The cursor is -1 when no track is current. The sequence never shrinks
// except on Reset.
type Catalog struct {
	mu     sync.Mutex
	tracks []Track
	cursor int
}

func New() *Catalog {
	return &Catalog{cursor: -1}
}

// Append adds tracks to the end of the sequence in order.
//
// The catalog does not deduplicate across calls; callers filter against
// Contains before appending when a branch requires uniqueness.
func (c *Catalog) Append(tracks ...Track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracks = append(c.tracks, tracks...)
}

// Reset empties the sequence and unsets the cursor.
func (c *Catalog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracks = nil
	c.cursor = -1
}

func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tracks)
}

// All returns a copy of the track sequence.
func (c *Catalog) All() []Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Track, len(c.tracks))
	copy(out, c.tracks)
	return out
}

// At returns the track at index i.
func (c *Catalog) At(i int) (Track, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.tracks) {
		return Track{}, false
	}
	return c.tracks[i], true
}

// Cursor returns the index of the current track, or -1 if unset.
func (c *Catalog) Cursor() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// Current returns the track under the cursor.
func (c *Catalog) Current() (Track, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cursor < 0 || c.cursor >= len(c.tracks) {
		return Track{}, false
	}
	return c.tracks[c.cursor], true
}

// Advance moves the cursor by +1 or -1 with wraparound at both ends and
// returns the track now under the cursor. No-op on an empty catalog.
func (c *Catalog) Advance(delta int) (Track, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.tracks) == 0 {
		return Track{}, false
	}

	next := c.cursor + delta
	if next >= len(c.tracks) {
		next = 0
	}
	if next < 0 {
		next = len(c.tracks) - 1
	}
	c.cursor = next
	return c.tracks[next], true
}

// CursorTo points the cursor at the first track matching t by ID, falling
// back to a name+artist match. The cursor is unset when no match exists,
// mirroring playback of a track the surrounding list no longer renders.
func (c *Catalog) CursorTo(t Track) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursor = c.indexOf(t)
	return c.cursor
}

func (c *Catalog) indexOf(t Track) int {
	if t.ID != "" {
		for i, existing := range c.tracks {
			if existing.ID == t.ID {
				return i
			}
		}
	}
	for i, existing := range c.tracks {
		if existing.Name == t.Name && existing.Artist == t.Artist {
			return i
		}
	}
	return -1
}

// FindByNameArtist resolves a track back from a rendered row or a device
// state event, which carry name and artist but not always the catalog's
// identifier. Returns the first match.
func (c *Catalog) FindByNameArtist(name, artist string) (Track, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tracks {
		if t.Name == name && t.Artist == artist {
			return t, true
		}
	}
	return Track{}, false
}

// Contains reports whether a track with the given identifier is already in
// the catalog.
func (c *Catalog) Contains(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tracks {
		if t.ID == id {
			return true
		}
	}
	return false
}
