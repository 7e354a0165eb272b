// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/partyq/internal/models"
	"github.com/desertthunder/partyq/internal/repositories"
	"github.com/desertthunder/partyq/internal/services"
	"github.com/desertthunder/partyq/internal/shared"
)

// MockCatalog is an in-memory [services.Catalog].
//
// Playlist items are served in pages of PageSize. Setting an error field makes the matching call fail.
type MockCatalog struct {
	mu sync.Mutex

	PlaylistList []models.Playlist
	Items        map[string][]services.SpotifyPlaylistTrack
	PageSize     int
	Current      *models.CurrentTrack
	QueueState   *models.Queue

	PlaylistErr error
	PageErr     error
	FailOnPage  int
	EnqueueErr  error
	PlaybackErr error

	Enqueued  []string
	PageCalls int
}

// NewMockCatalog returns an empty catalog serving two items per page.
func NewMockCatalog() *MockCatalog {
	return &MockCatalog{Items: make(map[string][]services.SpotifyPlaylistTrack), PageSize: 2}
}

// AddPlaylist registers a playlist and its raw items.
func (m *MockCatalog) AddPlaylist(p models.Playlist, items ...services.SpotifyPlaylistTrack) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.TrackCount = len(items)
	m.PlaylistList = append(m.PlaylistList, p)
	m.Items[p.ID] = items
}

func (m *MockCatalog) Name() string { return "mock" }

func (m *MockCatalog) Playlists(ctx context.Context) ([]models.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PlaylistErr != nil {
		return nil, m.PlaylistErr
	}
	return append([]models.Playlist(nil), m.PlaylistList...), nil
}

func (m *MockCatalog) Playlist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PlaylistErr != nil {
		return nil, m.PlaylistErr
	}
	for _, p := range m.PlaylistList {
		if p.ID == playlistID {
			return &p, nil
		}
	}
	return nil, shared.ErrPlaylistNotFound
}

// PlaylistTrackPage uses the item offset as the page token.
func (m *MockCatalog) PlaylistTrackPage(ctx context.Context, playlistID, pageToken string) (*services.TrackPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PageCalls++

	items, ok := m.Items[playlistID]
	if !ok {
		return nil, shared.ErrPlaylistNotFound
	}
	if m.PageErr != nil && m.PageCalls >= m.FailOnPage {
		return nil, m.PageErr
	}

	offset := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil {
			return nil, fmt.Errorf("%w: bad token %q", shared.ErrInvalidInput, pageToken)
		}
		offset = n
	}

	size := m.PageSize
	if size <= 0 {
		size = len(items) + 1
	}
	end := min(offset+size, len(items))

	page := &services.TrackPage{Items: items[offset:end]}
	if end < len(items) {
		page.Next = strconv.Itoa(end)
	}
	return page, nil
}

func (m *MockCatalog) Track(ctx context.Context, trackID string) (*models.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, items := range m.Items {
		for _, item := range items {
			if item.Track != nil && item.Track.ID == trackID {
				t := services.NormalizeTrack(*item.Track)
				return &t, nil
			}
		}
	}
	return nil, shared.ErrTrackNotFound
}

func (m *MockCatalog) CurrentPlayback(ctx context.Context) (*models.CurrentTrack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PlaybackErr != nil {
		return nil, m.PlaybackErr
	}
	return m.Current, nil
}

func (m *MockCatalog) Queue(ctx context.Context) (*models.Queue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PlaybackErr != nil {
		return nil, m.PlaybackErr
	}
	return m.QueueState, nil
}

// Enqueue records the id and appends it to QueueState when one is set.
func (m *MockCatalog) Enqueue(ctx context.Context, trackID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EnqueueErr != nil {
		return m.EnqueueErr
	}
	m.Enqueued = append(m.Enqueued, trackID)
	if m.QueueState != nil {
		m.QueueState.Tracks = append(m.QueueState.Tracks, models.Track{ID: trackID})
	}
	return nil
}

// RawTrack builds a playlist item whose album and artists are derived from ids.
// artistIDs name the track artists; the album is credited to the first of them.
func RawTrack(id, name, albumID string, artistIDs ...string) services.SpotifyPlaylistTrack {
	artists := make([]services.SpotifyArtist, 0, len(artistIDs))
	for _, a := range artistIDs {
		artists = append(artists, services.SpotifyArtist{ID: a, Name: "Artist " + strings.ToUpper(a)})
	}
	album := services.SpotifyAlbum{ID: albumID, Name: "Album " + albumID}
	if len(artists) > 0 {
		album.Artists = artists[:1]
	}
	return services.SpotifyPlaylistTrack{Track: &services.SpotifyTrack{
		ID:         id,
		Name:       name,
		Type:       "track",
		Artists:    artists,
		Album:      album,
		DurationMS: 180_000,
	}}
}

// NewTestStore opens a migrated SQLite database in a temporary directory.
func NewTestStore(t *testing.T) *repositories.Store {
	t.Helper()
	store, err := repositories.Open(context.Background(), shared.DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
