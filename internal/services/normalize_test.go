package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/desertthunder/partyq/internal/shared"
)

func TestSanitizeName(t *testing.T) {
	tc := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain title", in: "Plain Title", want: "Plain Title"},
		{name: "year remastered", in: "Song Title - 2011 Remastered", want: "Song Title"},
		{name: "remastered year", in: "Here Comes the Sun - Remastered 2009", want: "Here Comes the Sun"},
		{name: "year remaster", in: "Song - 2011 Remaster", want: "Song"},
		{name: "remastered version", in: "Song - 1999 Remastered Version", want: "Song"},
		{name: "radio edit", in: "Song - Radio Edit", want: "Song"},
		{name: "radio mix", in: "Song - Radio Mix", want: "Song"},
		{name: "full length", in: "Song - Full Length Version", want: "Song"},
		{name: "parenthesized deluxe", in: "Album (Deluxe Edition)", want: "Album"},
		{name: "parenthesized remaster", in: "Let It Be (Remastered 2009)", want: "Let It Be"},
		{name: "lowercase qualifier", in: "Song - remastered", want: "Song"},
		{name: "unrelated suffix", in: "Song - Live at Wembley", want: "Song - Live at Wembley"},
		{name: "hyphenated word", in: "Semi-Charmed Life", want: "Semi-Charmed Life"},
		{name: "year as title", in: "1999", want: "1999"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeName(tt.in); got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeTrack(t *testing.T) {
	raw := SpotifyTrack{
		ID:         "t1",
		Name:       "Song - 2011 Remastered",
		DurationMS: 215000,
		Artists:    []SpotifyArtist{{ID: "a1", Name: "First"}, {ID: "a2", Name: "Second"}},
		Album: SpotifyAlbum{
			ID:      "al1",
			Name:    "Record (Deluxe Edition)",
			Artists: []SpotifyArtist{{ID: "a1", Name: "First"}},
			Images:  []SpotifyImage{{URL: "https://img/large"}, {URL: "https://img/small"}},
		},
	}

	got := NormalizeTrack(raw)

	if got.Name != "Song" {
		t.Errorf("name = %q, want Song", got.Name)
	}
	if got.Album.Name != "Record" {
		t.Errorf("album name = %q, want Record", got.Album.Name)
	}
	if got.Album.Art != "https://img/large" {
		t.Errorf("album art = %q, want first image", got.Album.Art)
	}
	if len(got.Artists) != 2 || got.Artists[0].ID != "a1" || got.Artists[1].ID != "a2" {
		t.Errorf("artists = %+v, want credit order", got.Artists)
	}
	if got.Duration != 215000 {
		t.Errorf("duration = %d", got.Duration)
	}

	t.Run("missing images", func(t *testing.T) {
		raw.Album.Images = nil
		if art := NormalizeTrack(raw).Album.Art; art != "" {
			t.Errorf("album art = %q, want empty", art)
		}
	})
}

// pagedCatalog serves fixed pages keyed by token "", "p1", "p2", ...
type pagedCatalog struct {
	Catalog
	pages [][]SpotifyPlaylistTrack
	fail  int
	calls int
	stuck bool
}

func (p *pagedCatalog) PlaylistTrackPage(_ context.Context, _ string, token string) (*TrackPage, error) {
	p.calls++
	idx := 0
	if token != "" {
		fmt.Sscanf(token, "p%d", &idx)
	}
	if p.fail > 0 && idx == p.fail {
		return nil, fmt.Errorf("%w: boom", shared.ErrUpstreamUnavailable)
	}
	page := &TrackPage{Items: p.pages[idx]}
	switch {
	case p.stuck:
		page.Next = "p0"
	case idx+1 < len(p.pages):
		page.Next = fmt.Sprintf("p%d", idx+1)
	}
	return page, nil
}

func item(id string) SpotifyPlaylistTrack {
	return SpotifyPlaylistTrack{Track: &SpotifyTrack{
		ID:      id,
		Name:    "Track " + id,
		Artists: []SpotifyArtist{{ID: "a", Name: "A"}},
		Album:   SpotifyAlbum{ID: "al", Name: "Album"},
	}}
}

func TestCollectPlaylistTracks(t *testing.T) {
	ctx := context.Background()

	t.Run("drains every page", func(t *testing.T) {
		c := &pagedCatalog{pages: [][]SpotifyPlaylistTrack{
			{item("1"), item("2")},
			{item("3"), item("4")},
			{item("5")},
		}}

		var reported []int
		tracks, err := CollectPlaylistTracks(ctx, c, "pl", func(pages, count int) {
			reported = append(reported, count)
		})
		if err != nil {
			t.Fatalf("CollectPlaylistTracks() error = %v", err)
		}

		if len(tracks) != 5 {
			t.Fatalf("expected 5 tracks, got %d", len(tracks))
		}
		for i, tr := range tracks {
			if want := fmt.Sprint(i + 1); tr.ID != want {
				t.Errorf("track %d id = %s, want %s", i, tr.ID, want)
			}
		}
		if c.calls != 3 {
			t.Errorf("page calls = %d, want 3", c.calls)
		}
		if len(reported) != 3 || reported[2] != 5 {
			t.Errorf("progress = %v", reported)
		}
	})

	t.Run("skips unavailable and nameless items", func(t *testing.T) {
		nameless := item("x")
		nameless.Track.Name = ""
		local := item("y")
		local.IsLocal = true

		c := &pagedCatalog{pages: [][]SpotifyPlaylistTrack{
			{item("1"), {Track: nil}, nameless, local, item("2")},
		}}

		tracks, err := CollectPlaylistTracks(ctx, c, "pl", nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(tracks) != 2 {
			t.Errorf("expected 2 tracks, got %d", len(tracks))
		}
	})

	t.Run("error on later page discards everything", func(t *testing.T) {
		c := &pagedCatalog{
			pages: [][]SpotifyPlaylistTrack{{item("1")}, {item("2")}, {item("3")}},
			fail:  2,
		}

		tracks, err := CollectPlaylistTracks(ctx, c, "pl", nil)
		if !errors.Is(err, shared.ErrUpstreamUnavailable) {
			t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
		}
		if tracks != nil {
			t.Errorf("expected no partial result, got %d tracks", len(tracks))
		}
	})

	t.Run("pagination that never advances", func(t *testing.T) {
		c := &pagedCatalog{pages: [][]SpotifyPlaylistTrack{{item("1")}}, stuck: true}

		_, err := CollectPlaylistTracks(ctx, c, "pl", nil)
		if !errors.Is(err, shared.ErrUpstreamUnavailable) {
			t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
		}
	})
}
