package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/partyq/internal/models"
	"github.com/desertthunder/partyq/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlaylistsFetched MsgKind = iota
	MsgProgressUpdate
	MsgSessionStarted
)

type playlistsFetched struct {
	playlists []models.Playlist
	err       error
}

type sessionStarted struct {
	result *tasks.StartResult
	err    error
}

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistsFetched, data: playlistsFetched{playlists, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// sessionStartedMsg is the constructor for [MsgSessionStarted]
func sessionStartedMsg(result *tasks.StartResult, err error) Msg {
	return Msg{kind: MsgSessionStarted, data: sessionStarted{result, err}}
}
