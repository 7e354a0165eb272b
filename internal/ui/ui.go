package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/partyq/internal/models"
	"github.com/desertthunder/partyq/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	NameView
	ConfirmView
	SyncView
	ResultView
)

// Starter is the subset of [tasks.PartyEngine] the TUI drives.
type Starter interface {
	Playlists(ctx context.Context) ([]models.Playlist, error)
	StartSession(ctx context.Context, name, playlistID string, progress chan<- tasks.ProgressUpdate) (*tasks.StartResult, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	engine       Starter
	width        int
	height       int
	playlistList list.Model
	trackList    list.Model
	selected     *models.Playlist
	nameInput    textinput.Model
	bar          progress.Model
	progressChan chan tasks.ProgressUpdate
	done         chan sessionStarted
	progress     tasks.ProgressUpdate
	result       *tasks.StartResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model over the session engine.
func NewModel(ctx context.Context, engine Starter) *Model {
	input := textinput.New()
	input.Placeholder = "Session name"
	input.CharLimit = 100

	return &Model{
		ctx:          ctx,
		view:         PlaylistListView,
		engine:       engine,
		playlistList: newPlaylistList(nil, 0, 0),
		trackList:    newTrackList("", nil, 0, 0),
		nameInput:    input,
		bar:          progress.New(progress.WithDefaultGradient()),
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// State returns the current view state.
func (m *Model) State() ViewState { return m.view }

// Result returns the last started session, if any.
func (m *Model) Result() *tasks.StartResult { return m.result }

// Err returns the last error.
func (m *Model) Err() error { return m.err }

// Init fetches the host's playlists.
func (m *Model) Init() tea.Cmd {
	return m.fetchPlaylists()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		m.trackList.SetSize(msg.Width-4, msg.Height-8)
		m.bar.Width = max(msg.Width-8, 10)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case NameView:
			return m.handleNameKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case SyncView:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlaylistsFetched:
		data := msg.data.(playlistsFetched)
		if data.err != nil {
			m.err = data.err
			return m, tea.Quit
		}
		m.playlistList = newPlaylistList(data.playlists, m.width-4, m.height-8)
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgSessionStarted:
		data := msg.data.(sessionStarted)
		m.result, m.err = data.result, data.err
		m.progressChan, m.done = nil, nil
		m.view = ResultView
		if data.result != nil {
			title := fmt.Sprintf("Session '%s'", data.result.Session.Name)
			m.trackList = newTrackList(title, data.result.Tracks, m.width-4, m.height-8)
		}
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case PlaylistListView:
		return m.renderPlaylistList()
	case NameView:
		return m.renderName()
	case ConfirmView:
		return m.renderConfirm()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.playlistList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.playlistList, cmd = m.playlistList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if pl, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			selected := pl.playlist
			m.selected = &selected
			m.nameInput.SetValue(selected.Name)
			m.nameInput.CursorEnd()
			m.view = NameView
			return m, m.nameInput.Focus()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

// handleNameKeys lets q through to the input; only ctrl+c quits here.
func (m *Model) handleNameKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.nameInput.Blur()
		m.view = PlaylistListView
		return m, nil
	case "enter":
		m.nameInput.Blur()
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		m.view = NameView
		return m, m.nameInput.Focus()
	case key.Matches(msg, m.keys.yes):
		m.view = SyncView
		m.progress = tasks.ProgressUpdate{}
		return m, m.startSession()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = PlaylistListView
		m.selected = nil
		m.result = nil
		m.err = nil
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case ResultView:
		m.trackList, cmd = m.trackList.Update(msg)
	case NameView:
		m.nameInput, cmd = m.nameInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.engine.Playlists(m.ctx)
		return playlistsFetchedMsg(playlists, err)
	}
}

// startSession runs the engine in the background; the goroutine owns and closes the progress channel.
func (m *Model) startSession() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.done = make(chan sessionStarted, 1)

	name, playlistID := m.nameInput.Value(), m.selected.ID
	progress, done := m.progressChan, m.done

	go func() {
		result, err := m.engine.StartSession(m.ctx, name, playlistID, progress)
		close(progress)
		done <- sessionStarted{result, err}
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.done
	return func() tea.Msg {
		if progress == nil {
			return sessionStartedMsg(nil, fmt.Errorf("no session in progress"))
		}
		if update, ok := <-progress; ok {
			return progressUpdateMsg(update)
		}
		out := <-done
		return sessionStartedMsg(out.result, out.err)
	}
}

func (m *Model) renderPlaylistList() string {
	helpView := m.help.ShortHelpView(m.keys.forView(m.view))
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), helpView)
}

func (m *Model) renderName() string {
	title := styles.title.Render(fmt.Sprintf("New session from '%s'", m.selected.Name))
	helpView := m.help.ShortHelpView(m.keys.forView(m.view))
	return fmt.Sprintf("%s\n%s\n\n%s", title, m.nameInput.View(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Start session '%s'?", m.sessionName()))
	info := styles.box.Render(fmt.Sprintf("Playlist: %s\nTracks: %d", m.selected.Name, m.selected.TrackCount))
	warn := styles.warn.Render("The current track list will be replaced.")
	helpView := m.help.ShortHelpView(m.keys.forView(m.view))
	return fmt.Sprintf("%s\n%s\n%s\n\n%s", title, info, warn, helpView)
}

func (m *Model) renderSync() string {
	title := styles.title.Render("Starting Session")

	var phase string
	switch m.progress.Phase {
	case tasks.FetchPlaylist:
		phase = "Resolving playlist..."
	case tasks.FetchTracks:
		phase = fmt.Sprintf("Fetching tracks (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.ReplaceMirror:
		phase = "Replacing track list..."
	case tasks.Complete:
		phase = "Done"
	}

	ratio := 0.0
	if m.progress.Total > 0 {
		ratio = min(float64(m.progress.Step)/float64(m.progress.Total), 1)
	}
	return fmt.Sprintf("%s\n\n%s\n%s\n%s", title, phase, m.bar.ViewAs(ratio), styles.help.Render(m.progress.Message))
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Session failed: %v\n\nPress r to retry, q to quit", m.err))
	}
	if m.result == nil {
		return styles.err.Render("No result available\n\nPress r to retry, q to quit")
	}

	title := styles.ok.Render(fmt.Sprintf("✓ Session '%s' started", m.result.Session.Name))
	info := fmt.Sprintf("%d tracks mirrored, %d replaced", len(m.result.Tracks), m.result.Purged)
	helpView := m.help.ShortHelpView(m.keys.forView(m.view))
	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", title, info, m.trackList.View(), helpView)
}

func (m *Model) sessionName() string {
	if v := m.nameInput.Value(); v != "" {
		return v
	}
	return m.selected.Name
}

// Run starts the TUI program on the alternate screen.
func Run(ctx context.Context, engine Starter) (*Model, error) {
	model := NewModel(ctx, engine)
	final, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return nil, fmt.Errorf("TUI error: %w", err)
	}
	return final.(*Model), nil
}
