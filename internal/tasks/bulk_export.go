package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/partyq/internal/formatter"
	"github.com/desertthunder/partyq/internal/services"
	"github.com/desertthunder/partyq/internal/shared"
	"golang.org/x/time/rate"
)

// ManifestFile is written to the output directory after every bulk export.
const ManifestFile = "export_manifest.json"

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     string  // formatter format name
	OutputDir  string  // defaults to playlists_{epoch}
	NumWorkers int     // concurrent writers, 1 to 10 (default: 5)
	RateLimit  float64 // playlists fetched per second (default: 5)
}

// PlaylistExportResult is the outcome for one playlist.
type PlaylistExportResult struct {
	PlaylistID   string `json:"playlist_id"`
	PlaylistName string `json:"playlist_name"`
	Tracks       int    `json:"tracks"`
	File         string `json:"file,omitempty"`
	Success      bool   `json:"success"`
	Error        error  `json:"-"`
	ErrorMessage string `json:"error,omitempty"`
}

// BulkExportResult summarizes a [PlaylistExporter.BulkExport] run and doubles as the manifest.
type BulkExportResult struct {
	Format            string                 `json:"format"`
	ExportedAt        time.Time              `json:"exported_at"`
	TotalPlaylists    int                    `json:"total_playlists"`
	SuccessfulExports int                    `json:"successful_exports"`
	FailedExports     int                    `json:"failed_exports"`
	OutputDirectory   string                 `json:"output_directory"`
	ManifestPath      string                 `json:"-"`
	Results           []PlaylistExportResult `json:"results"`
}

// PlaylistExporter archives catalog playlists to disk, one file per playlist.
type PlaylistExporter struct {
	catalog services.Catalog
	logger  *log.Logger
	now     func() time.Time
}

// NewPlaylistExporter creates an exporter reading from catalog.
func NewPlaylistExporter(catalog services.Catalog, logger *log.Logger) *PlaylistExporter {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &PlaylistExporter{catalog: catalog, logger: shared.WithLogger(logger, "component", "export"), now: time.Now}
}

func (e *PlaylistExporter) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// BulkExport exports playlists concurrently with rate limiting and progress tracking.
//
// Playlists are dispatched at the configured rate to a pool of workers that drain every page of tracks and
// write the file. A failing playlist is recorded in the result and does not stop the others.
// Results are ordered as ids were given, and the manifest is written last.
func (e *PlaylistExporter) BulkExport(ctx context.Context, progress chan<- ProgressUpdate, ids []string, opts BulkExportOpts) (*BulkExportResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: playlist ids", shared.ErrMissingArgument)
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	ext, err := formatter.Extension(opts.Format)
	if err != nil {
		return nil, err
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("playlists_%d", e.now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		Format:          opts.Format,
		ExportedAt:      e.now().UTC(),
		TotalPlaylists:  len(ids),
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistExportResult, len(ids)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan int, len(ids))
	var completed atomic.Int32

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res := e.exportSinglePlaylist(ctx, ids[i], opts.OutputDir, opts.Format, ext)
				result.Results[i] = res

				step := int(completed.Add(1))
				if res.Error != nil {
					e.sendProgress(progress, exportFailedUpdate(step, len(ids), res.PlaylistID, res.Error))
				} else {
					e.sendProgress(progress, exportCompletedUpdate(step, len(ids), res.PlaylistName, res.Tracks))
				}
			}
		}()
	}

	for i, id := range ids {
		if err := limiter.Wait(ctx); err != nil {
			for j := i; j < len(ids); j++ {
				result.Results[j] = PlaylistExportResult{PlaylistID: ids[j], Error: err}
			}
			break
		}
		e.sendProgress(progress, exportingPlaylistUpdate(i+1, len(ids), id))
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i := range result.Results {
		res := &result.Results[i]
		if res.Error != nil {
			res.ErrorMessage = res.Error.Error()
			result.FailedExports++
			continue
		}
		result.SuccessfulExports++
	}

	manifestPath := filepath.Join(opts.OutputDir, ManifestFile)
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return result, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	e.logger.Info("bulk export complete", "dir", opts.OutputDir, "ok", result.SuccessfulExports, "failed", result.FailedExports)
	return result, nil
}

// exportSinglePlaylist resolves one playlist, drains its tracks and writes them to dir/{id}{ext}.
func (e *PlaylistExporter) exportSinglePlaylist(ctx context.Context, id, dir, format, ext string) PlaylistExportResult {
	res := PlaylistExportResult{PlaylistID: id}

	playlist, err := e.catalog.Playlist(ctx, id)
	if err != nil {
		res.Error = fmt.Errorf("failed to fetch playlist: %w", err)
		return res
	}
	res.PlaylistName = playlist.Name

	tracks, err := services.CollectPlaylistTracks(ctx, e.catalog, playlist.ID, nil)
	if err != nil {
		res.Error = fmt.Errorf("failed to fetch tracks: %w", err)
		return res
	}
	res.Tracks = len(tracks)

	path := filepath.Join(dir, playlist.ID+ext)
	if err := formatter.WriteExport(path, format, playlist.Name, tracks); err != nil {
		res.Error = err
		return res
	}
	res.File = path
	res.Success = true
	return res
}
