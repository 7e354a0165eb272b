package models

import (
	"reflect"
	"testing"
)

func track(id, name, albumID string, albumArtists []Artist, artists ...Artist) Track {
	return Track{
		ID:       id,
		Name:     name,
		Album:    Album{ID: albumID, Name: "Album " + albumID, Artists: albumArtists},
		Artists:  artists,
		Duration: 1000,
	}
}

func TestDedupe(t *testing.T) {
	a1 := Artist{ID: "a1", Name: "First"}
	a2 := Artist{ID: "a2", Name: "Second"}

	t.Run("shared artists and albums collapse", func(t *testing.T) {
		tracks := []Track{
			track("t1", "One", "al1", []Artist{a1}, a1, a2),
			track("t2", "Two", "al1", []Artist{a1}, a1),
			track("t3", "Three", "al2", []Artist{a2}, a2),
		}

		b := Dedupe(7, tracks)

		if got := ids(b.Artists); !reflect.DeepEqual(got, []string{"a1", "a2"}) {
			t.Errorf("artists = %v", got)
		}
		if len(b.Albums) != 2 {
			t.Errorf("albums = %d, want 2", len(b.Albums))
		}
		if len(b.Tracks) != 3 {
			t.Errorf("tracks = %d, want 3", len(b.Tracks))
		}
		if len(b.AlbumArtists) != 2 {
			t.Errorf("album artists = %d, want 2", len(b.AlbumArtists))
		}
		if len(b.ArtistTracks) != 4 {
			t.Errorf("artist tracks = %d, want 4", len(b.ArtistTracks))
		}
		if len(b.AlbumTracks) != 3 {
			t.Errorf("album tracks = %d, want 3", len(b.AlbumTracks))
		}
		for _, row := range b.Tracks {
			if row.SessionID != 7 {
				t.Errorf("track %s session = %d, want 7", row.ID, row.SessionID)
			}
		}
	})

	t.Run("duplicate tracks appear once", func(t *testing.T) {
		one := track("t1", "One", "al1", []Artist{a1}, a1)
		b := Dedupe(1, []Track{one, one, one})

		if len(b.Tracks) != 1 || len(b.ArtistTracks) != 1 || len(b.AlbumTracks) != 1 {
			t.Errorf("expected single rows, got tracks=%d artistTracks=%d albumTracks=%d",
				len(b.Tracks), len(b.ArtistTracks), len(b.AlbumTracks))
		}
	})

	t.Run("first seen name wins", func(t *testing.T) {
		renamed := Artist{ID: "a1", Name: "Renamed"}
		b := Dedupe(1, []Track{
			track("t1", "One", "al1", nil, a1),
			track("t2", "Two", "al1", nil, renamed),
		})

		if b.Artists[0].Name != "First" {
			t.Errorf("artist name = %q, want First", b.Artists[0].Name)
		}
	})

	t.Run("artist order follows first appearance", func(t *testing.T) {
		b := Dedupe(1, []Track{track("t1", "One", "al1", []Artist{a2}, a1, a2)})

		want := []ArtistTrack{{ArtistID: "a1", TrackID: "t1"}, {ArtistID: "a2", TrackID: "t1"}}
		if !reflect.DeepEqual(b.ArtistTracks, want) {
			t.Errorf("artist tracks = %v, want %v", b.ArtistTracks, want)
		}
		if got := ids(b.Artists); !reflect.DeepEqual(got, []string{"a2", "a1"}) {
			t.Errorf("artists = %v, want album artist first", got)
		}
	})

	t.Run("invalid tracks are skipped", func(t *testing.T) {
		b := Dedupe(1, []Track{
			{ID: "", Name: "No ID", Album: Album{ID: "al1"}},
			{ID: "t2", Name: "", Album: Album{ID: "al1"}},
			{ID: "t3", Name: "No Album"},
		})

		if !b.Empty() || b.Rows() != 0 {
			t.Errorf("expected empty batch, got %d rows", b.Rows())
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if b := Dedupe(1, nil); !b.Empty() {
			t.Error("expected empty batch")
		}
	})
}

func ids(artists []Artist) []string {
	out := make([]string, len(artists))
	for i, a := range artists {
		out[i] = a.ID
	}
	return out
}
