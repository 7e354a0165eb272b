// package formatter renders mirrored tracks for export (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/partyq/internal/models"
	"github.com/desertthunder/partyq/internal/shared"
)

// Format names accepted by [Export].
const (
	FormatText     = "text"
	FormatCSV      = "csv"
	FormatMarkdown = "md"
	FormatJSON     = "json"
)

// Formats lists every supported format name.
var Formats = []string{FormatText, FormatCSV, FormatMarkdown, FormatJSON}

// Export renders tracks in the named format. title heads the Markdown and text output.
func Export(format, title string, tracks []models.Track) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatText, "":
		return ExportToText(title, tracks)
	case FormatCSV:
		return ExportToCSV(tracks)
	case FormatMarkdown, "markdown":
		return ExportToMarkdown(title, tracks)
	case FormatJSON:
		return ExportToJSON(tracks)
	default:
		return nil, fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidArgument, format, strings.Join(Formats, ", "))
	}
}

// ExportToCSV converts tracks to CSV with columns: ID, Title, Artists, Album, Duration, Queued
//
// Multiple artists are joined with "; ". Duration is in milliseconds and Queued is RFC 3339 or empty.
func ExportToCSV(tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artists", "Album", "Duration", "Queued"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range tracks {
		record := []string{
			track.ID,
			track.Name,
			strings.Join(track.ArtistNames(), "; "),
			track.Album.Name,
			strconv.Itoa(track.Duration),
			queuedAt(track),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown renders a numbered list under a heading.
func ExportToMarkdown(title string, tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(tracks))

	buf.WriteString("## Tracks\n\n")
	for i, track := range tracks {
		albumPart := ""
		if track.Album.Name != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album.Name)
		}
		queued := ""
		if track.QueuedAt != nil {
			queued = " *queued*"
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]%s\n",
			i+1, strings.Join(track.ArtistNames(), ", "), track.Name, albumPart, shared.FormatDuration(track.Duration), queued)
	}
	return buf.Bytes(), nil
}

// ExportToText converts tracks to plain text.
func ExportToText(title string, tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer

	if title != "" {
		fmt.Fprintf(&buf, "Session: %s\n", title)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(tracks))

	for i, track := range tracks {
		fmt.Fprintf(&buf, "%d. %s - %s [%s]\n", i+1, strings.Join(track.ArtistNames(), ", "), track.Name, shared.FormatDuration(track.Duration))
	}
	return buf.Bytes(), nil
}

// ExportToJSON renders tracks as an indented JSON array.
func ExportToJSON(tracks []models.Track) ([]byte, error) {
	if tracks == nil {
		tracks = []models.Track{}
	}
	data, err := json.MarshalIndent(tracks, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode tracks: %w", err)
	}
	return append(data, '\n'), nil
}

// Extension returns the file extension used for format.
func Extension(format string) (string, error) {
	switch format {
	case FormatText, "":
		return ".txt", nil
	case FormatCSV:
		return ".csv", nil
	case FormatMarkdown, "markdown":
		return ".md", nil
	case FormatJSON:
		return ".json", nil
	}
	return "", fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidArgument, format, strings.Join(Formats, ", "))
}

// WriteExport renders tracks and writes them to path.
func WriteExport(path, format, title string, tracks []models.Track) error {
	data, err := Export(format, title, tracks)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func queuedAt(t models.Track) string {
	if t.QueuedAt == nil {
		return ""
	}
	return t.QueuedAt.UTC().Format(time.RFC3339)
}
