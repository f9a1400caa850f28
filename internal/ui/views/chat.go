package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/todochat/internal/api"
	"github.com/tgienger/todochat/internal/chat"
	"github.com/tgienger/todochat/internal/models"
	"github.com/tgienger/todochat/internal/session"
	"github.com/tgienger/todochat/internal/ui/keys"
	"github.com/tgienger/todochat/internal/ui/styles"
)

const sendFailedMessage = "Failed to send message. Please try again."

var examplePrompts = []string{
	"Add a task to buy groceries",
	"Show me all my tasks",
	"What's pending?",
	"Mark task 3 as complete",
}

// ChatView is a conversation with the task assistant. The transcript lives
// only as long as the view.
type ChatView struct {
	ctx     context.Context
	client  *api.Client
	session *session.Session
	styles  *styles.Styles
	keys    keys.KeyMap

	width  int
	height int

	user           models.User
	transcript     *chat.Transcript
	turn           *chat.Turn
	conversationID *int64

	input      textinput.Model
	viewport   viewport.Model
	spinner    spinner.Model
	renderer   *glamour.TermRenderer
	rendererW  int
	confirming bool
	banner     banner
}

func NewChatView(ctx context.Context, client *api.Client, sess *session.Session) *ChatView {
	input := textinput.New()
	input.Placeholder = "Ask me to add, list, or complete tasks..."
	input.CharLimit = 2000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Current.Primary)

	vp := viewport.New(80, 20)

	return &ChatView{
		ctx:        ctx,
		client:     client,
		session:    sess,
		styles:     styles.NewStyles(),
		keys:       keys.DefaultKeyMap(),
		transcript: chat.NewTranscript(),
		input:      input,
		viewport:   vp,
		spinner:    sp,
	}
}

type chatReplyMsg struct {
	turn *chat.Turn
	resp *models.ChatResponse
	err  error
}

func (v *ChatView) Init() tea.Cmd {
	user, ok := v.session.User()
	if !v.session.IsAuthenticated() || !ok {
		return navigate(ScreenLogin)
	}
	v.user = user
	return textinput.Blink
}

// Messages returns the visible transcript
func (v *ChatView) Messages() []chat.Message { return v.transcript.Messages() }

// Sending reports whether a message is awaiting its reply
func (v *ChatView) Sending() bool { return v.transcript.Pending() }

// ConversationID returns the backend conversation in use, if one was assigned
func (v *ChatView) ConversationID() (int64, bool) {
	if v.conversationID == nil {
		return 0, false
	}
	return *v.conversationID, true
}

// Input returns the current draft
func (v *ChatView) Input() string { return v.input.Value() }

func (v *ChatView) Confirming() bool { return v.confirming }

func (v *ChatView) Banner() string { return v.banner.text }

func (v *ChatView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.resize()
		return v, nil

	case spinner.TickMsg:
		if !v.transcript.Pending() {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case dismissErrorMsg:
		v.banner.dismiss(msg)
		return v, nil

	case chatReplyMsg:
		return v, v.settle(msg)

	case tea.KeyMsg:
		return v.updateKeys(msg)
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *ChatView) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, v.keys.ForceQuit) {
		return v, tea.Quit
	}

	if v.confirming {
		switch {
		case key.Matches(msg, v.keys.Confirm):
			v.confirming = false
			v.clear()
		case key.Matches(msg, v.keys.Cancel):
			v.confirming = false
		}
		return v, nil
	}

	switch {
	case key.Matches(msg, v.keys.Back):
		return v, navigate(ScreenDashboard)

	case key.Matches(msg, v.keys.ChatLogout):
		v.session.Clear()
		return v, loggedOut

	case key.Matches(msg, v.keys.Clear):
		if v.transcript.Len() > 0 {
			v.confirming = true
		}
		return v, nil

	case key.Matches(msg, v.keys.PageUp), key.Matches(msg, v.keys.PageDown):
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return v, cmd

	case key.Matches(msg, v.keys.Enter):
		return v, v.send()
	}

	if v.transcript.Pending() {
		return v, nil
	}
	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// send appends the draft optimistically and dispatches it
func (v *ChatView) send() tea.Cmd {
	draft := strings.TrimSpace(v.input.Value())
	if draft == "" || v.transcript.Pending() {
		return nil
	}
	turn, err := v.transcript.Begin(draft)
	if err != nil {
		return nil
	}
	v.turn = turn
	v.input.Reset()
	v.refresh()

	ctx, client, userID := v.ctx, v.client, v.user.ID
	req := models.ChatRequest{ConversationID: v.conversationID, Message: draft}
	return tea.Batch(v.spinner.Tick, func() tea.Msg {
		resp, err := client.SendChatMessage(ctx, userID, req)
		return chatReplyMsg{turn: turn, resp: resp, err: err}
	})
}

func (v *ChatView) settle(msg chatReplyMsg) tea.Cmd {
	// A reply for a turn abandoned by clear is dropped
	if msg.turn != v.turn {
		return nil
	}
	v.turn = nil

	if msg.err != nil {
		_ = msg.turn.Rollback()
		v.refresh()
		return v.banner.show(api.DetailOr(msg.err, sendFailedMessage))
	}

	if err := msg.turn.Commit(msg.resp.Response, msg.resp.ToolCalls); err != nil {
		return nil
	}
	if v.conversationID == nil && msg.resp.ConversationID != 0 {
		id := msg.resp.ConversationID
		v.conversationID = &id
	}
	v.refresh()
	return nil
}

func (v *ChatView) clear() {
	v.transcript.Reset()
	v.turn = nil
	v.conversationID = nil
	v.banner.clear()
	v.refresh()
}

func (v *ChatView) resize() {
	contentWidth := styles.ContentWidth(v.width)
	v.viewport.Width = max(contentWidth, 20)
	v.viewport.Height = max(v.height-10, 5)
	v.input.Width = max(contentWidth-6, 10)
	v.refresh()
}

func (v *ChatView) refresh() {
	v.viewport.SetContent(v.renderTranscript())
	v.viewport.GotoBottom()
}

// markdown renders assistant replies. The renderer is rebuilt whenever the wrap width changes.
func (v *ChatView) markdown(content string) string {
	width := max(v.viewport.Width-4, 20)
	if v.renderer == nil || v.rendererW != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return content
		}
		v.renderer, v.rendererW = r, width
	}
	out, err := v.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}

func (v *ChatView) renderTranscript() string {
	s := v.styles
	msgs := v.transcript.Messages()
	if len(msgs) == 0 {
		return v.renderWelcome()
	}

	width := max(v.viewport.Width-2, 20)
	var rows []string
	for _, m := range msgs {
		switch m.Role {
		case chat.RoleUser:
			bubble := s.UserBubble.MaxWidth(width).Render(m.Content)
			rows = append(rows, lipgloss.PlaceHorizontal(width, lipgloss.Right, bubble))
		default:
			body := v.markdown(m.Content)
			if len(m.ToolCalls) > 0 {
				body += "\n" + s.ToolCalls.Render("used: "+strings.Join(m.ToolCalls, ", "))
			}
			rows = append(rows, s.AssistantBubble.MaxWidth(width).Render(body))
		}
		rows = append(rows, "")
	}
	if v.transcript.Pending() {
		rows = append(rows, v.spinner.View()+" "+s.TitleMuted.Render("Thinking..."))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (v *ChatView) renderWelcome() string {
	s := v.styles
	rows := []string{
		s.Title.Render("Hi, I'm your task assistant"),
		s.TitleMuted.Render("Manage your tasks in plain language. Try:"),
		"",
	}
	for _, p := range examplePrompts {
		rows = append(rows, "  • "+p)
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// View renders the view
func (v *ChatView) View() string {
	s := v.styles
	var b strings.Builder

	status := "new conversation"
	if id, ok := v.ConversationID(); ok {
		status = fmt.Sprintf("conversation #%d", id)
	}
	b.WriteString(s.Title.Render("Task Assistant"))
	if v.user.Name != "" {
		b.WriteString(" " + s.TitleMuted.Render(v.user.Name))
	}
	b.WriteString(s.StatusBar.Render(status))
	b.WriteString("\n\n")

	if v.banner.text != "" {
		b.WriteString(s.ErrorBanner.Render(v.banner.text))
		b.WriteString("\n\n")
	}

	b.WriteString(v.viewport.View())
	b.WriteString("\n\n")

	switch {
	case v.confirming:
		b.WriteString(s.ErrorInline.Render("Clear conversation? y/n"))
	default:
		style := s.InputFocused
		if v.transcript.Pending() {
			style = s.Input
		}
		b.WriteString(style.Width(max(styles.ContentWidth(v.width)-2, 10)).Render(v.input.View()))
	}
	b.WriteString("\n")

	b.WriteString(s.Help.Render(
		s.HelpKey.Render("enter") + " send • " +
			s.HelpKey.Render("pgup/pgdn") + " scroll • " +
			s.HelpKey.Render("ctrl+l") + " clear • " +
			s.HelpKey.Render("esc") + " tasks • " +
			s.HelpKey.Render("ctrl+o") + " logout",
	))

	return styles.CenterView(b.String(), v.width, v.height)
}
