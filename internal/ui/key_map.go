package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds every [key.Binding] the picker reacts to.
type keyMap struct {
	up, down    key.Binding
	enter, back key.Binding
	yes, no     key.Binding
	restart     key.Binding
	quit        key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		yes:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "start")),
		no:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "cancel")),
		restart: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "new session")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// forView lists the bindings shown in the help line of a view.
func (k keyMap) forView(v ViewState) []key.Binding {
	switch v {
	case PlaylistListView:
		return []key.Binding{k.up, k.down, k.enter, k.quit}
	case NameView:
		return []key.Binding{k.enter, k.back}
	case ConfirmView:
		return []key.Binding{k.yes, k.no}
	case ResultView:
		return []key.Binding{k.up, k.down, k.restart, k.quit}
	}
	return nil
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		k.forView(PlaylistListView),
		k.forView(NameView),
		k.forView(ConfirmView),
		{k.restart},
	}
}
