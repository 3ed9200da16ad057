package catalog

import "testing"

func sample() []Track {
	return []Track{
		{ID: "a", Name: "First Light", Artist: "Aurora", URI: "spotify:track:a"},
		{ID: "b", Name: "Undertow", Artist: "Bayside", PreviewURL: "https://cdn.example/b.mp3"},
		{ID: "c", Name: "Closing Time", Artist: "Coda"},
	}
}

func TestCatalog(t *testing.T) {
	t.Run("AppendAndAll", func(t *testing.T) {
		c := New()
		c.Append(sample()...)

		if c.Len() != 3 {
			t.Fatalf("expected 3 tracks, got %d", c.Len())
		}

		all := c.All()
		all[0].Name = "mutated"
		if track, _ := c.At(0); track.Name != "First Light" {
			t.Error("All should return a copy, not the backing slice")
		}
	})

	t.Run("CursorStartsUnset", func(t *testing.T) {
		c := New()
		c.Append(sample()...)

		if c.Cursor() != -1 {
			t.Errorf("expected cursor -1, got %d", c.Cursor())
		}
		if _, ok := c.Current(); ok {
			t.Error("expected no current track before first advance")
		}
	})

	t.Run("AdvanceWrapsForward", func(t *testing.T) {
		c := New()
		c.Append(sample()...)

		track, ok := c.Advance(1)
		if !ok || track.ID != "a" {
			t.Fatalf("first advance should land on a, got %v", track.ID)
		}
		c.Advance(1)
		c.Advance(1)
		track, _ = c.Advance(1)
		if track.ID != "a" {
			t.Errorf("advancing past the end should wrap to a, got %s", track.ID)
		}
	})

	t.Run("AdvanceWrapsBackward", func(t *testing.T) {
		c := New()
		c.Append(sample()...)

		track, ok := c.Advance(-1)
		if !ok || track.ID != "c" {
			t.Errorf("backward advance from unset cursor should wrap to c, got %s", track.ID)
		}
	})

	t.Run("AdvanceEmptyNoOp", func(t *testing.T) {
		c := New()
		if _, ok := c.Advance(1); ok {
			t.Error("advance on empty catalog should report no track")
		}
		if c.Cursor() != -1 {
			t.Errorf("cursor should stay unset, got %d", c.Cursor())
		}
	})

	t.Run("CursorTo", func(t *testing.T) {
		c := New()
		c.Append(sample()...)

		if idx := c.CursorTo(Track{ID: "b"}); idx != 1 {
			t.Errorf("expected index 1 for id match, got %d", idx)
		}

		// no id, name+artist fallback
		if idx := c.CursorTo(Track{Name: "Closing Time", Artist: "Coda"}); idx != 2 {
			t.Errorf("expected index 2 for name+artist match, got %d", idx)
		}

		if idx := c.CursorTo(Track{ID: "zz", Name: "Unknown", Artist: "Nobody"}); idx != -1 {
			t.Errorf("expected -1 for missing track, got %d", idx)
		}
		if _, ok := c.Current(); ok {
			t.Error("current should be unset after cursor moved to a missing track")
		}
	})

	t.Run("FindByNameArtist", func(t *testing.T) {
		c := New()
		c.Append(sample()...)

		track, ok := c.FindByNameArtist("Undertow", "Bayside")
		if !ok || track.ID != "b" {
			t.Errorf("expected b, got %s", track.ID)
		}

		if _, ok := c.FindByNameArtist("Undertow", "Wrong Artist"); ok {
			t.Error("expected no match for wrong artist")
		}
	})

	t.Run("Contains", func(t *testing.T) {
		c := New()
		c.Append(sample()...)

		if !c.Contains("a") {
			t.Error("expected catalog to contain a")
		}
		if c.Contains("zz") {
			t.Error("did not expect catalog to contain zz")
		}
	})

	t.Run("Reset", func(t *testing.T) {
		c := New()
		c.Append(sample()...)
		c.Advance(1)

		c.Reset()
		if c.Len() != 0 {
			t.Errorf("expected empty catalog after reset, got %d", c.Len())
		}
		if c.Cursor() != -1 {
			t.Errorf("expected cursor -1 after reset, got %d", c.Cursor())
		}
	})

	t.Run("Playable", func(t *testing.T) {
		tracks := sample()
		if !tracks[0].Playable() || !tracks[1].Playable() {
			t.Error("tracks with a URI or preview URL should be playable")
		}
		if tracks[2].Playable() {
			t.Error("track with neither source should not be playable")
		}
	})
}
