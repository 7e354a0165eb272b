package ui

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/partyq/internal/models"
	"github.com/desertthunder/partyq/internal/shared"
	"github.com/desertthunder/partyq/internal/tasks"
	tu "github.com/desertthunder/partyq/internal/testing"
)

func newTestModel(t *testing.T) (*Model, *tu.MockCatalog) {
	t.Helper()
	catalog := tu.NewMockCatalog()
	catalog.AddPlaylist(models.Playlist{ID: "pl1", Name: "Friday"},
		tu.RawTrack("t1", "One", "al1", "ar1"),
		tu.RawTrack("t2", "Two", "al1", "ar1"),
		tu.RawTrack("t3", "Three", "al2", "ar2"),
	)
	catalog.AddPlaylist(models.Playlist{ID: "pl2", Name: "Afterparty"}, tu.RawTrack("t4", "Four", "al3", "ar3"))

	engine := tasks.NewSessionEngine(catalog, tu.NewTestStore(t), shared.NewLogger(io.Discard))
	m := NewModel(context.Background(), engine)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m.Update(m.Init()())
	return m, catalog
}

func press(m *Model, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "backspace":
			msg = tea.KeyMsg{Type: tea.KeyBackspace}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		_, cmd = m.Update(msg)
	}
	return cmd
}

// drain runs the sync command chain until the session result arrives.
func drain(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	for i := 0; i < 100 && m.State() == SyncView; i++ {
		if cmd == nil {
			t.Fatal("sync stalled without a command")
		}
		_, cmd = m.Update(cmd())
	}
}

func TestModel(t *testing.T) {
	t.Run("lists playlists sorted by name", func(t *testing.T) {
		m, _ := newTestModel(t)
		if m.State() != PlaylistListView {
			t.Fatalf("expected PlaylistListView, got %v", m.State())
		}
		items := m.playlistList.Items()
		if len(items) != 2 || items[0].(playlistItem).playlist.Name != "Afterparty" {
			t.Errorf("unexpected items %v", items)
		}
		if !strings.Contains(m.View(), "Spotify Playlists") {
			t.Error("expected list title in view")
		}
	})

	t.Run("start session flow", func(t *testing.T) {
		m, _ := newTestModel(t)

		press(m, "j", "enter")
		if m.State() != NameView {
			t.Fatalf("expected NameView, got %v", m.State())
		}
		if m.nameInput.Value() != "Friday" {
			t.Errorf("name should default to playlist name, got %q", m.nameInput.Value())
		}

		press(m, "enter")
		if m.State() != ConfirmView {
			t.Fatalf("expected ConfirmView, got %v", m.State())
		}
		if !strings.Contains(m.View(), "Start session 'Friday'?") {
			t.Errorf("unexpected confirm view:\n%s", m.View())
		}

		drain(t, m, press(m, "y"))
		if m.State() != ResultView {
			t.Fatalf("expected ResultView, got %v", m.State())
		}
		if m.Err() != nil {
			t.Fatalf("unexpected error %v", m.Err())
		}
		if got := len(m.Result().Tracks); got != 3 {
			t.Errorf("expected 3 tracks, got %d", got)
		}
		if !strings.Contains(m.View(), "Session 'Friday' started") {
			t.Errorf("unexpected result view:\n%s", m.View())
		}
	})

	t.Run("custom session name", func(t *testing.T) {
		m, _ := newTestModel(t)

		press(m, "enter")
		for range len("Afterparty") {
			press(m, "backspace")
		}
		press(m, "q", "u", "i", "z", "enter")
		drain(t, m, press(m, "y"))

		if m.Result() == nil || m.Result().Session.Name != "quiz" {
			t.Errorf("expected session named quiz, got %+v", m.Result())
		}
	})

	t.Run("cancel returns to name entry", func(t *testing.T) {
		m, _ := newTestModel(t)
		press(m, "enter", "enter", "n")
		if m.State() != NameView {
			t.Errorf("expected NameView, got %v", m.State())
		}
		press(m, "esc")
		if m.State() != PlaylistListView {
			t.Errorf("expected PlaylistListView, got %v", m.State())
		}
	})

	t.Run("failed session shows error and restarts", func(t *testing.T) {
		m, catalog := newTestModel(t)
		catalog.PageErr = shared.ErrUpstreamUnavailable

		press(m, "j", "enter", "enter")
		drain(t, m, press(m, "y"))

		if !errors.Is(m.Err(), shared.ErrUpstreamUnavailable) {
			t.Fatalf("expected upstream error, got %v", m.Err())
		}
		if !strings.Contains(m.View(), "Session failed") {
			t.Errorf("unexpected view:\n%s", m.View())
		}

		press(m, "r")
		if m.State() != PlaylistListView || m.Err() != nil {
			t.Errorf("expected clean PlaylistListView, got %v / %v", m.State(), m.Err())
		}
	})

	t.Run("playlist fetch failure quits", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		catalog.PlaylistErr = shared.ErrNotAuthenticated
		engine := tasks.NewSessionEngine(catalog, tu.NewTestStore(t), shared.NewLogger(io.Discard))

		m := NewModel(context.Background(), engine)
		m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
		_, cmd := m.Update(m.Init()())

		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
		if !strings.Contains(m.View(), "Error") {
			t.Errorf("expected error view, got %q", m.View())
		}
	})
}
