package tasks

import (
	"fmt"

	"github.com/desertthunder/partyq/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase, 0 when unknown
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchPlaylist Phase = iota
	FetchTracks
	ReplaceMirror
	Complete
	ExportPlaylists
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylist:
		return "fetch_playlist"
	case FetchTracks:
		return "fetch_tracks"
	case ReplaceMirror:
		return "replace_mirror"
	case Complete:
		return "complete"
	case ExportPlaylists:
		return "export_playlists"
	default:
		return ""
	}
}

func fetchPlaylistUpdate(playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Resolving playlist %s...", playlistID),
	}
}

func foundPlaylistUpdate(pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found playlist: %s (%d tracks)", pl.Name, pl.TrackCount),
		Data:    pl,
	}
}

func fetchTracksUpdate(page, tracks, expected int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    tracks,
		Total:   expected,
		Message: fmt.Sprintf("Fetched page %d (%d tracks)...", page, tracks),
	}
}

func replaceMirrorUpdate(purged int64, b *models.Batch) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReplaceMirror,
		Step:    len(b.Tracks),
		Total:   len(b.Tracks),
		Message: fmt.Sprintf("Replacing %d tracks with %d tracks, %d artists and %d albums", purged, len(b.Tracks), len(b.Artists), len(b.Albums)),
		Data:    b,
	}
}

func completeUpdate(s *models.Session, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    count,
		Total:   count,
		Message: fmt.Sprintf("Session %q started with %d tracks", s.Name, count),
		Data:    s,
	}
}

func exportingPlaylistUpdate(current, total int, playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylists,
		Step:    current,
		Total:   total,
		Message: fmt.Sprintf("Exporting playlist %d/%d: %s", current, total, playlistID),
	}
}

func exportCompletedUpdate(current, total int, name string, tracks int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylists,
		Step:    current,
		Total:   total,
		Message: fmt.Sprintf("✓ Exported %s (%d tracks)", name, tracks),
	}
}

func exportFailedUpdate(current, total int, playlistID string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylists,
		Step:    current,
		Total:   total,
		Message: fmt.Sprintf("✗ Failed to export %s: %v", playlistID, err),
		Data:    err,
	}
}
