// package models defines the data model for the party queue
package models

import (
	"fmt"
	"time"
)

// Artist is a performer credited on a track or album.
type Artist struct {
	ID   string `json:"id" db:"artist_id"`
	Name string `json:"name" db:"artist_name"`
}

// Album groups tracks. Art is the URL of the first cover image, empty when the catalog has none.
type Album struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Artists []Artist `json:"artists"`
	Art     string   `json:"art"`
}

// Track is a normalized playable item. Duration is in milliseconds.
//
// QueuedAt is set once a guest has successfully queued the track during the current session.
type Track struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Album    Album      `json:"album"`
	Artists  []Artist   `json:"artists"`
	Duration int        `json:"duration"`
	QueuedAt *time.Time `json:"queued_at,omitempty"`
}

// Validate reports whether t carries the identifiers the mirror requires.
func (t Track) Validate() error {
	switch {
	case t.ID == "":
		return fmt.Errorf("track has no id")
	case t.Name == "":
		return fmt.Errorf("track %s has no name", t.ID)
	case t.Album.ID == "":
		return fmt.Errorf("track %s has no album", t.ID)
	}
	return nil
}

// ArtistNames lists the artist names in credit order.
func (t Track) ArtistNames() []string {
	names := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		names[i] = a.Name
	}
	return names
}

// Playlist is catalog metadata for a playlist that can seed a session.
type Playlist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	Art        string `json:"art"`
	TrackCount int    `json:"track_count"`
}

// Session is a named listening session seeded from a playlist.
type Session struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Playlist  Playlist  `json:"playlist"`
	StartedAt time.Time `json:"started_at"`
}

// CurrentTrack is the track playing right now. Start is the catalog's playback timestamp in milliseconds since the epoch.
type CurrentTrack struct {
	Track Track `json:"track"`
	Start int64 `json:"start"`
}

// Queue is the upcoming play order as reported by the catalog.
type Queue struct {
	Current *CurrentTrack `json:"current"`
	Tracks  []Track       `json:"queue"`
}

// Snapshot is the combined view a client renders on connect.
type Snapshot struct {
	Session *Session      `json:"session"`
	Tracks  []Track       `json:"tracks"`
	Current *CurrentTrack `json:"current"`
	Queue   []Track       `json:"queue"`
}
