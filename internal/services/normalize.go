package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/desertthunder/partyq/internal/models"
	"github.com/desertthunder/partyq/internal/shared"
)

// qualifierPattern matches a trailing catalog qualifier introduced by " - " or "(":
// edition labels, remaster notes and release years, e.g. "Song - 2011 Remastered" or "Album (Deluxe Edition)".
var qualifierPattern = regexp.MustCompile(
	`(?i)^(.+?)\s*(?:\s-\s|\()` +
		`(?:Radio Mix|Radio Edit|Full Length Version|Deluxe Edition|Remastered|Remaster|[0-9]{4})` +
		`(?:\s+[0-9]{4})?` +
		`(?:\s+(?:Remastered Version|Remastered|Remaster|Mix|Version))?` +
		`\)?\s*$`,
)

// SanitizeName strips a trailing catalog qualifier from a track or album name.
// Names without a recognized qualifier are returned unchanged.
func SanitizeName(name string) string {
	m := qualifierPattern.FindStringSubmatch(name)
	if m == nil {
		return name
	}
	return strings.TrimSpace(m[1])
}

// NormalizeArtists maps raw artists in credit order.
func NormalizeArtists(raw []SpotifyArtist) []models.Artist {
	artists := make([]models.Artist, 0, len(raw))
	for _, a := range raw {
		artists = append(artists, models.Artist{ID: a.ID, Name: a.Name})
	}
	return artists
}

// NormalizeTrack reduces a raw Spotify track to a [models.Track] with sanitized names.
func NormalizeTrack(raw SpotifyTrack) models.Track {
	return models.Track{
		ID:   raw.ID,
		Name: SanitizeName(raw.Name),
		Album: models.Album{
			ID:      raw.Album.ID,
			Name:    SanitizeName(raw.Album.Name),
			Artists: NormalizeArtists(raw.Album.Artists),
			Art:     firstImage(raw.Album.Images),
		},
		Artists:  NormalizeArtists(raw.Artists),
		Duration: raw.DurationMS,
	}
}

// CollectPlaylistTracks drains every page of a playlist and returns the normalized tracks in playlist order.
//
// Unavailable items, local files and tracks without a name after sanitizing are dropped.
// onPage, when non-nil, is called after each page with the page count and tracks kept so far.
func CollectPlaylistTracks(ctx context.Context, c Catalog, playlistID string, onPage func(pages, tracks int)) ([]models.Track, error) {
	var (
		tracks []models.Track
		token  string
		pages  int
	)

	for {
		page, err := c.PlaylistTrackPage(ctx, playlistID, token)
		if err != nil {
			return nil, err
		}
		pages++

		for _, item := range page.Items {
			if item.Track == nil || item.IsLocal || item.Track.IsLocal {
				continue
			}
			t := NormalizeTrack(*item.Track)
			if t.Validate() != nil {
				continue
			}
			tracks = append(tracks, t)
		}

		if onPage != nil {
			onPage(pages, len(tracks))
		}

		if page.Next == "" {
			return tracks, nil
		}
		if page.Next == token {
			return nil, fmt.Errorf("%w: pagination of playlist %s did not advance", shared.ErrUpstreamUnavailable, playlistID)
		}
		token = page.Next
	}
}

func firstImage(images []SpotifyImage) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}
