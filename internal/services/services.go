// package services defines the [Catalog] interface for the music catalog backing a party and implements it for Spotify
package services

import (
	"context"

	"github.com/desertthunder/partyq/internal/models"
	"golang.org/x/oauth2"
)

// Catalog is the external music catalog: playlists to seed sessions, the playback device and its queue.
//
// Lookups of unknown ids fail with an error wrapping [shared.ErrNotFound]; transport and upstream
// failures wrap [shared.ErrUpstreamUnavailable].
type Catalog interface {
	// Name returns the name of the catalog (e.g., "Spotify")
	Name() string

	// Playlists lists every playlist owned or followed by the authorized user.
	Playlists(ctx context.Context) ([]models.Playlist, error)

	// Playlist resolves playlist metadata by id.
	Playlist(ctx context.Context, playlistID string) (*models.Playlist, error)

	// PlaylistTrackPage fetches one page of raw playlist items.
	// An empty pageToken requests the first page; the returned [TrackPage.Next] is empty on the last page.
	PlaylistTrackPage(ctx context.Context, playlistID, pageToken string) (*TrackPage, error)

	// Track resolves and normalizes a single track.
	Track(ctx context.Context, trackID string) (*models.Track, error)

	// CurrentPlayback returns the playing track, or nil when nothing is playing.
	CurrentPlayback(ctx context.Context) (*models.CurrentTrack, error)

	// Queue returns the device queue, or nil when nothing is playing.
	Queue(ctx context.Context) (*models.Queue, error)

	// Enqueue appends a track to the active device queue.
	// Fails with [shared.ErrNoActiveDevice] when no device can accept it.
	Enqueue(ctx context.Context, trackID string) error
}

// OAuthService is implemented by catalogs that authorize through a browser based OAuth2 flow.
type OAuthService interface {
	GetAuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	OAuthConfig() *oauth2.Config
}

// TrackPage is one page of raw playlist entries.
// Items may include entries whose track is unavailable; [CollectPlaylistTracks] filters them.
type TrackPage struct {
	Items []SpotifyPlaylistTrack
	Next  string
}
