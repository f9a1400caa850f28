package keys

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestChatLogoutIsCtrlOOnly(t *testing.T) {
	k := DefaultKeyMap()

	assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyCtrlO}, k.ChatLogout))
	// "L" types a letter in the chat input
	assert.False(t, key.Matches(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("L")}, k.ChatLogout))
	assert.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("L")}, k.Logout))
}
