package models

// AlbumRow is the stored form of an [Album] without its artist list.
type AlbumRow struct {
	ID   string `db:"album_id"`
	Name string `db:"album_name"`
	Art  string `db:"album_art"`
}

// TrackRow is the stored form of a [Track]. SessionID records which session mirrored it.
type TrackRow struct {
	ID        string `db:"track_id"`
	Name      string `db:"track_name"`
	Duration  int    `db:"track_duration"`
	SessionID int64  `db:"session_id"`
}

// AlbumArtist links an album to one of its credited artists.
type AlbumArtist struct {
	AlbumID  string `db:"album_id"`
	ArtistID string `db:"artist_id"`
}

// ArtistTrack links a track to one of its credited artists.
type ArtistTrack struct {
	ArtistID string `db:"artist_id"`
	TrackID  string `db:"track_id"`
}

// AlbumTrack links a track to an album it appears on.
type AlbumTrack struct {
	AlbumID string `db:"album_id"`
	TrackID string `db:"track_id"`
}

// Batch holds the unique rows derived from a list of tracks.
// Every slice is in first-seen order and contains no duplicate keys.
type Batch struct {
	SessionID    int64
	Artists      []Artist
	Albums       []AlbumRow
	Tracks       []TrackRow
	AlbumArtists []AlbumArtist
	ArtistTracks []ArtistTrack
	AlbumTracks  []AlbumTrack
}

// Dedupe flattens tracks into a [Batch] in a single pass.
//
// When two entities share an id the first one seen wins, so a later track cannot rename an artist or album
// already collected. Tracks failing [Track.Validate] are skipped.
func Dedupe(sessionID int64, tracks []Track) *Batch {
	b := &Batch{SessionID: sessionID}

	artists := make(map[string]struct{})
	albums := make(map[string]struct{})
	seenTracks := make(map[string]struct{})
	albumArtists := make(map[AlbumArtist]struct{})
	artistTracks := make(map[ArtistTrack]struct{})
	albumTracks := make(map[AlbumTrack]struct{})

	addArtist := func(a Artist) bool {
		if a.ID == "" {
			return false
		}
		if _, ok := artists[a.ID]; !ok {
			artists[a.ID] = struct{}{}
			b.Artists = append(b.Artists, a)
		}
		return true
	}

	for _, t := range tracks {
		if t.Validate() != nil {
			continue
		}

		if _, ok := albums[t.Album.ID]; !ok {
			albums[t.Album.ID] = struct{}{}
			b.Albums = append(b.Albums, AlbumRow{ID: t.Album.ID, Name: t.Album.Name, Art: t.Album.Art})
		}
		for _, a := range t.Album.Artists {
			if !addArtist(a) {
				continue
			}
			link := AlbumArtist{AlbumID: t.Album.ID, ArtistID: a.ID}
			if _, ok := albumArtists[link]; !ok {
				albumArtists[link] = struct{}{}
				b.AlbumArtists = append(b.AlbumArtists, link)
			}
		}

		if _, ok := seenTracks[t.ID]; !ok {
			seenTracks[t.ID] = struct{}{}
			b.Tracks = append(b.Tracks, TrackRow{ID: t.ID, Name: t.Name, Duration: t.Duration, SessionID: sessionID})
		}
		for _, a := range t.Artists {
			if !addArtist(a) {
				continue
			}
			link := ArtistTrack{ArtistID: a.ID, TrackID: t.ID}
			if _, ok := artistTracks[link]; !ok {
				artistTracks[link] = struct{}{}
				b.ArtistTracks = append(b.ArtistTracks, link)
			}
		}

		link := AlbumTrack{AlbumID: t.Album.ID, TrackID: t.ID}
		if _, ok := albumTracks[link]; !ok {
			albumTracks[link] = struct{}{}
			b.AlbumTracks = append(b.AlbumTracks, link)
		}
	}

	return b
}

// Empty reports whether the batch has no tracks to store.
func (b *Batch) Empty() bool {
	return len(b.Tracks) == 0
}

// Rows counts every row across all slices.
func (b *Batch) Rows() int {
	return len(b.Artists) + len(b.Albums) + len(b.Tracks) +
		len(b.AlbumArtists) + len(b.ArtistTracks) + len(b.AlbumTracks)
}
