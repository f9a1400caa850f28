package views

import (
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/todochat/internal/chat"
	"github.com/tgienger/todochat/internal/models"
)

func newChat(t *testing.T, e *testEnv) *ChatView {
	t.Helper()
	v := NewChatView(e.ctx, e.client, e.session)
	v.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	require.Empty(t, pump(t, v, v.Init()))
	return v
}

// send types text and presses enter, pumping the round trip
func send(t *testing.T, v *ChatView, text string) []tea.Msg {
	t.Helper()
	typeText(t, v, text)
	return press(t, v, keyType(tea.KeyEnter))
}

func chatPath(user models.User) string {
	return fmt.Sprintf("/api/%d/chat", user.ID)
}

func TestChatRedirectsWithoutSession(t *testing.T) {
	e := newTestEnv(t)
	v := NewChatView(e.ctx, e.client, e.session)
	assert.Equal(t, []tea.Msg{NavigateMsg{To: ScreenLogin}}, pump(t, v, v.Init()))
}

func TestChatWelcomeWhenEmpty(t *testing.T) {
	e := newTestEnv(t)
	e.signIn(t)
	v := newChat(t, e)

	view := v.View()
	assert.Contains(t, view, "Task Assistant")
	assert.Contains(t, view, "Add a task to buy groceries")
}

func TestChatSendIsOptimistic(t *testing.T) {
	e := newTestEnv(t)
	e.signIn(t)
	v := newChat(t, e)

	typeText(t, v, "add buy milk")
	_, cmd := v.Update(keyType(tea.KeyEnter))

	require.Len(t, v.Messages(), 1)
	assert.Equal(t, chat.RoleUser, v.Messages()[0].Role)
	assert.Equal(t, "add buy milk", v.Messages()[0].Content)
	assert.Empty(t, v.Input())
	assert.True(t, v.Sending())
	assert.Contains(t, v.View(), "Thinking...")

	// Typing and sending are disabled until the reply lands
	typeText(t, v, "more")
	assert.Empty(t, v.Input())
	_, again := v.Update(keyType(tea.KeyEnter))
	assert.Nil(t, again)

	pump(t, v, cmd)
	assert.False(t, v.Sending())
	msgs := v.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.RoleAssistant, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "buy milk")
	assert.Equal(t, []string{"add_task"}, msgs[1].ToolCalls)
	assert.Contains(t, v.View(), "used: add_task")
}

func TestChatIgnoresBlankInput(t *testing.T) {
	e := newTestEnv(t)
	e.signIn(t)
	v := newChat(t, e)
	e.backend.ResetRequests()

	send(t, v, "   ")
	assert.Empty(t, v.Messages())
	assert.Empty(t, e.backend.Requests())
}

func TestChatThreadsConversationID(t *testing.T) {
	e := newTestEnv(t)
	user := e.signIn(t)
	e.backend.SetNextConversationID(42)
	v := newChat(t, e)
	e.backend.ResetRequests()

	_, ok := v.ConversationID()
	assert.False(t, ok)

	send(t, v, "hello")
	id, ok := v.ConversationID()
	require.True(t, ok)
	assert.Equal(t, int64(42), id)
	assert.Contains(t, v.View(), "conversation #42")

	send(t, v, "list my tasks")

	reqs := e.requests("POST")
	require.Len(t, reqs, 2)
	assert.Equal(t, chatPath(user), reqs[0].Path)
	assert.JSONEq(t, `{"message":"hello"}`, reqs[0].Body)
	assert.JSONEq(t, `{"conversation_id":42,"message":"list my tasks"}`, reqs[1].Body)
	assert.Len(t, v.Messages(), 4)
}

func TestChatFailureRollsBack(t *testing.T) {
	e := newTestEnv(t)
	user := e.signIn(t)
	v := newChat(t, e)

	send(t, v, "hello")
	before := v.Messages()
	require.Len(t, before, 2)

	e.backend.FailNext("POST", chatPath(user), 500, "")
	send(t, v, "add buy milk")

	if diff := cmp.Diff(before, v.Messages()); diff != "" {
		t.Errorf("transcript changed after failed send (-want +got):\n%s", diff)
	}
	assert.Empty(t, v.Input())
	assert.False(t, v.Sending())
	assert.Equal(t, sendFailedMessage, v.Banner())
	assert.Empty(t, e.backend.Tasks(user.ID))

	// The conversation continues after the failure
	send(t, v, "list")
	assert.Len(t, v.Messages(), 4)
}

func TestChatFailureShowsBackendDetail(t *testing.T) {
	e := newTestEnv(t)
	user := e.signIn(t)
	v := newChat(t, e)

	e.backend.FailNext("POST", chatPath(user), 503, "Assistant is offline")
	send(t, v, "hello")
	assert.Equal(t, "Assistant is offline", v.Banner())
	assert.Empty(t, v.Messages())
}

func TestChatClearNeedsConfirmation(t *testing.T) {
	e := newTestEnv(t)
	e.signIn(t)
	e.backend.SetNextConversationID(42)
	v := newChat(t, e)

	send(t, v, "hello")
	require.Len(t, v.Messages(), 2)

	press(t, v, keyType(tea.KeyCtrlL))
	require.True(t, v.Confirming())
	assert.Contains(t, v.View(), "Clear conversation? y/n")
	press(t, v, keyRunes("n"))
	assert.False(t, v.Confirming())
	assert.Len(t, v.Messages(), 2)

	press(t, v, keyType(tea.KeyCtrlL))
	press(t, v, keyRunes("y"))
	assert.Empty(t, v.Messages())
	_, ok := v.ConversationID()
	assert.False(t, ok)

	// Clearing is local; the next message starts a new conversation
	e.backend.ResetRequests()
	send(t, v, "hello again")
	reqs := e.requests("POST")
	require.Len(t, reqs, 1)
	assert.JSONEq(t, `{"message":"hello again"}`, reqs[0].Body)
}

func TestChatClearDropsInFlightReply(t *testing.T) {
	e := newTestEnv(t)
	e.signIn(t)
	v := newChat(t, e)

	typeText(t, v, "hello")
	_, cmd := v.Update(keyType(tea.KeyEnter))
	press(t, v, keyType(tea.KeyCtrlL))
	press(t, v, keyRunes("y"))

	pump(t, v, cmd)
	assert.Empty(t, v.Messages())
	_, ok := v.ConversationID()
	assert.False(t, ok)
}

func TestChatSessionExpiry(t *testing.T) {
	e := newTestEnv(t)
	e.signIn(t)
	v := newChat(t, e)
	e.backend.ExpireTokens()

	send(t, v, "hello")
	assert.False(t, e.session.IsAuthenticated())
	assert.Equal(t, 1, e.expired)
	assert.Empty(t, v.Messages())
}

func TestChatNavigation(t *testing.T) {
	e := newTestEnv(t)
	e.signIn(t)
	v := newChat(t, e)

	assert.Equal(t, []tea.Msg{NavigateMsg{To: ScreenDashboard}}, press(t, v, keyType(tea.KeyEsc)))

	// A capital L is text here, not the dashboard's logout key
	assert.Empty(t, press(t, v, keyRunes("L")))
	assert.Equal(t, "L", v.Input())
	assert.True(t, e.session.IsAuthenticated())

	assert.Equal(t, []tea.Msg{LoggedOutMsg{}}, press(t, v, keyType(tea.KeyCtrlO)))
	assert.False(t, e.session.IsAuthenticated())
}
