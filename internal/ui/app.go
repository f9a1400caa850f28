package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tgienger/todochat/internal/api"
	"github.com/tgienger/todochat/internal/session"
	"github.com/tgienger/todochat/internal/ui/views"
)

// App routes between the login, dashboard and chat screens. Each screen is
// rebuilt when it is shown, so views share nothing but the session.
type App struct {
	ctx     context.Context
	client  *api.Client
	session *session.Session

	current views.Screen
	view    tea.Model
	width   int
	height  int
}

// NewApp creates a new application
func NewApp(ctx context.Context, client *api.Client, sess *session.Session) *App {
	return &App{
		ctx:     ctx,
		client:  client,
		session: sess,
	}
}

func (a *App) Init() tea.Cmd {
	if a.session.IsAuthenticated() {
		return a.show(views.ScreenDashboard)
	}
	return a.show(views.ScreenLogin)
}

// Screen reports which screen is active
func (a *App) Screen() views.Screen { return a.current }

// Current returns the active view
func (a *App) Current() tea.Model { return a.view }

func (a *App) show(screen views.Screen) tea.Cmd {
	a.current = screen
	switch screen {
	case views.ScreenDashboard:
		a.view = views.NewDashboardView(a.ctx, a.client, a.session)
	case views.ScreenChat:
		a.view = views.NewChatView(a.ctx, a.client, a.session)
	default:
		a.view = views.NewLoginView(a.ctx, a.client, a.session)
	}

	// Initialize the view with window size
	width, height := a.width, a.height
	return tea.Batch(
		a.view.Init(),
		func() tea.Msg {
			return tea.WindowSizeMsg{Width: width, Height: height}
		},
	)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case views.NavigateMsg:
		return a, a.show(msg.To)

	case views.LoggedOutMsg:
		return a, a.show(views.ScreenLogin)

	case views.SessionExpiredMsg:
		// Stay on the login form so a rejected sign-in keeps its message
		if a.current == views.ScreenLogin && a.view != nil {
			return a, nil
		}
		return a, a.show(views.ScreenLogin)
	}

	if a.view == nil {
		return a, nil
	}
	var cmd tea.Cmd
	a.view, cmd = a.view.Update(msg)
	return a, cmd
}

func (a *App) View() string {
	if a.view == nil {
		return ""
	}
	return a.view.View()
}
