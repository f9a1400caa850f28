package views

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// Screen identifies a top-level view
type Screen int

const (
	ScreenLogin Screen = iota
	ScreenDashboard
	ScreenChat
)

func (s Screen) String() string {
	switch s {
	case ScreenDashboard:
		return "dashboard"
	case ScreenChat:
		return "chat"
	default:
		return "login"
	}
}

// NavigateMsg asks the app to switch to another screen
type NavigateMsg struct {
	To Screen
}

// LoggedOutMsg is sent after a view cleared the session on user request
type LoggedOutMsg struct{}

// SessionExpiredMsg is sent when the backend rejected the session with a 401
type SessionExpiredMsg struct{}

func navigate(to Screen) tea.Cmd {
	return func() tea.Msg { return NavigateMsg{To: to} }
}

func loggedOut() tea.Msg { return LoggedOutMsg{} }

// errorTimeout is how long a transient error banner stays up
const errorTimeout = 5 * time.Second

type dismissErrorMsg struct {
	id int
}

// banner is a transient error message. Each new error gets a fresh id so an
// older dismissal tick cannot clear it.
type banner struct {
	text string
	id   int
}

func (b *banner) show(text string) tea.Cmd {
	b.id++
	b.text = text
	id := b.id
	return tea.Tick(errorTimeout, func(time.Time) tea.Msg { return dismissErrorMsg{id: id} })
}

func (b *banner) dismiss(msg dismissErrorMsg) {
	if msg.id == b.id {
		b.text = ""
	}
}

func (b *banner) clear() {
	b.id++
	b.text = ""
}
