// Package tasks orchestrates the session lifecycle of a party with real-time progress reporting.
//
// # Core Operations
//
// [SessionEngine] is the single entry point used by the HTTP API, the CLI and the TUI:
//
//  1. [SessionEngine.StartSession] : seed a session from a playlist
//     - Resolves the playlist in the catalog and drains every page of tracks
//     - Records the session, purges the previous mirror and stores the new tracks in one transaction
//     - Returns the session and the mirrored tracks
//
//  2. [SessionEngine.ActiveSession] / [SessionEngine.EndSession] : the most recently started session wins;
//     ending it only removes the session row
//
//  3. [SessionEngine.QueueTrack] : guests queue mirrored tracks onto the playback device
//
//  4. [PlaylistExporter.BulkExport] : archive playlists to files with a rate-limited worker pool
//
// Catalog work happens before the transaction opens, so a slow or failing catalog never holds a write lock and
// never leaves a half-replaced mirror behind.
//
// # Progress Reporting
//
// All long-running operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
