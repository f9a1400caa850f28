package views

import (
	"context"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/todochat/internal/api"
	"github.com/tgienger/todochat/internal/mockapi"
	"github.com/tgienger/todochat/internal/models"
	"github.com/tgienger/todochat/internal/session"
)

// cmdTimeout bounds how long a command may run. Ticks (spinner frames, cursor
// blink, banner dismissal) either finish as bubbles messages, which are
// dropped, or outlast it.
const cmdTimeout = 500 * time.Millisecond

var viewsPkg = reflect.TypeOf(NavigateMsg{}).PkgPath()

type testEnv struct {
	ctx     context.Context
	backend *mockapi.Server
	session *session.Session
	client  *api.Client
	expired int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{ctx: context.Background(), backend: mockapi.New()}
	srv := httptest.NewServer(e.backend)
	t.Cleanup(srv.Close)

	e.session = session.New(session.NewMemoryBackend(), nil)
	e.client = api.New(srv.URL, e.session,
		api.WithHTTPClient(srv.Client()),
		api.WithUnauthorizedHandler(func() { e.expired++ }),
	)
	return e
}

// signIn creates an account and stores it in the session
func (e *testEnv) signIn(t *testing.T) models.User {
	t.Helper()
	resp, err := e.client.Signup(e.ctx, "ada@example.com", "secret1", "Ada")
	require.NoError(t, err)
	e.session.Store(resp.AccessToken, resp.User)
	return resp.User
}

func (e *testEnv) addTask(t *testing.T, user models.User, title string) models.Task {
	t.Helper()
	task, err := e.client.CreateTask(e.ctx, user.ID, models.TaskInput{Title: title})
	require.NoError(t, err)
	return *task
}

func (e *testEnv) requests(method string) []mockapi.Request {
	var out []mockapi.Request
	for _, r := range e.backend.Requests() {
		if r.Method == method {
			out = append(out, r)
		}
	}
	return out
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func keyType(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

var keySpace = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}

// run executes cmd and returns the messages it produced, expanding batches
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()

	select {
	case msg := <-ch:
		switch msg := msg.(type) {
		case nil:
			return nil
		case tea.BatchMsg:
			var out []tea.Msg
			for _, c := range msg {
				out = append(out, run(c)...)
			}
			return out
		default:
			return []tea.Msg{msg}
		}
	case <-time.After(cmdTimeout):
		return nil
	}
}

func isOutgoing(msg tea.Msg) bool {
	switch msg.(type) {
	case NavigateMsg, LoggedOutMsg, SessionExpiredMsg, tea.QuitMsg:
		return true
	}
	return false
}

// pump runs cmd, feeds every message addressed to this package back into m
// until nothing is left, and returns the messages meant for the app.
func pump(t *testing.T, m tea.Model, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	var out []tea.Msg
	queue := run(cmd)
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 100, "update loop did not settle")
		msg := queue[0]
		queue = queue[1:]

		if isOutgoing(msg) {
			out = append(out, msg)
			continue
		}
		if reflect.TypeOf(msg).PkgPath() != viewsPkg {
			continue
		}
		_, next := m.Update(msg)
		queue = append(queue, run(next)...)
	}
	return out
}

// press sends a key to m and pumps the resulting command
func press(t *testing.T, m tea.Model, msg tea.KeyMsg) []tea.Msg {
	t.Helper()
	_, cmd := m.Update(msg)
	return pump(t, m, cmd)
}

// typeText sends s to m as a single runes key, the way a paste arrives
func typeText(t *testing.T, m tea.Model, s string) {
	t.Helper()
	_, _ = m.Update(keyRunes(s))
}
