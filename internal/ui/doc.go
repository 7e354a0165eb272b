// Package ui implements the host's terminal session picker using bubbletea's Elm architecture.
//
// The TUI walks the host through starting a party session:
//  1. [PlaylistListView] : Browse and select a Spotify playlist
//  2. [NameView] : Name the session (defaults to the playlist name)
//  3. [ConfirmView] : Confirm replacing the current mirror
//  4. [SyncView] : Monitor progress while pages are fetched and stored
//  5. [ResultView] : Browse the mirrored tracks of the new session
//
// The [Model] implements bubbletea's Init/Update/View pattern, receiving messages via the [Msg] union type.
// Progress updates flow through a channel from the session engine.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via
// charmbracelet/bubbles/help.
package ui
