package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the bindings shared by all views
type KeyMap struct {
	Quit       key.Binding
	ForceQuit  key.Binding
	Back       key.Binding
	Enter      key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Up         key.Binding
	Down       key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	New        key.Binding
	Edit       key.Binding
	Delete     key.Binding
	Toggle     key.Binding
	Save       key.Binding
	Chat       key.Binding
	Logout     key.Binding
	ChatLogout key.Binding
	SwitchMode key.Binding
	Clear      key.Binding
	Confirm    key.Binding
	Cancel     key.Binding
	Help       key.Binding
}

// DefaultKeyMap returns the default bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:       key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit:  key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Enter:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("↵", "select")),
		Tab:        key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next")),
		ShiftTab:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev")),
		Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PageUp:     key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		PageDown:   key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdown", "scroll down")),
		New:        key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		Edit:       key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Delete:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Toggle:     key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "done")),
		Save:       key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Chat:       key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "chat")),
		Logout:     key.NewBinding(key.WithKeys("L", "ctrl+o"), key.WithHelp("L", "logout")),
		ChatLogout: key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "logout")),
		SwitchMode: key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "login/signup")),
		Clear:      key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear")),
		Confirm:    key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "yes")),
		Cancel:     key.NewBinding(key.WithKeys("n", "N", "esc"), key.WithHelp("n", "no")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	}
}
