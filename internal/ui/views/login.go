package views

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/todochat/internal/api"
	"github.com/tgienger/todochat/internal/models"
	"github.com/tgienger/todochat/internal/session"
	"github.com/tgienger/todochat/internal/ui/keys"
	"github.com/tgienger/todochat/internal/ui/styles"
)

// MinPasswordLength is enforced on the password input before submitting
const MinPasswordLength = 6

const authFailedMessage = "Authentication failed. Please try again."

// LoginState is the state of the login/signup form
type LoginState int

const (
	LoginAnonymous LoginState = iota
	LoginSubmitting
	LoginAuthenticated
)

// LoginView signs a user in or up
type LoginView struct {
	ctx     context.Context
	client  *api.Client
	session *session.Session
	styles  *styles.Styles
	keys    keys.KeyMap

	width  int
	height int

	signup   bool
	state    LoginState
	err      string
	name     textinput.Model
	email    textinput.Model
	password textinput.Model
	focusIdx int // index into fields(); len(fields()) is the submit button
}

func NewLoginView(ctx context.Context, client *api.Client, sess *session.Session) *LoginView {
	name := textinput.New()
	name.Placeholder = "Enter your name"
	name.CharLimit = 255

	email := textinput.New()
	email.Placeholder = "Enter your email"
	email.CharLimit = 255

	password := textinput.New()
	password.Placeholder = "Enter your password"
	password.CharLimit = 128
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	v := &LoginView{
		ctx:      ctx,
		client:   client,
		session:  sess,
		styles:   styles.NewStyles(),
		keys:     keys.DefaultKeyMap(),
		name:     name,
		email:    email,
		password: password,
	}
	v.updateFocus()
	return v
}

type authResultMsg struct {
	resp *models.AuthResponse
	err  error
}

// Init redirects straight to the dashboard when a session already exists
func (v *LoginView) Init() tea.Cmd {
	if v.session.IsAuthenticated() {
		v.state = LoginAuthenticated
		return navigate(ScreenDashboard)
	}
	return textinput.Blink
}

// State reports where the form is in its submit cycle
func (v *LoginView) State() LoginState { return v.state }

// SignupMode reports whether the form is in signup mode
func (v *LoginView) SignupMode() bool { return v.signup }

// Error returns the message currently shown on the form
func (v *LoginView) Error() string { return v.err }

func (v *LoginView) fields() []*textinput.Model {
	if v.signup {
		return []*textinput.Model{&v.name, &v.email, &v.password}
	}
	return []*textinput.Model{&v.email, &v.password}
}

func (v *LoginView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case authResultMsg:
		if msg.err != nil {
			v.state = LoginAnonymous
			v.err = api.DetailOr(msg.err, authFailedMessage)
			return v, nil
		}
		v.session.Store(msg.resp.AccessToken, msg.resp.User)
		v.state = LoginAuthenticated
		return v, navigate(ScreenDashboard)

	case tea.KeyMsg:
		if key.Matches(msg, v.keys.ForceQuit) {
			return v, tea.Quit
		}
		if v.state != LoginAnonymous {
			return v, nil
		}
		return v.updateForm(msg)
	}

	return v, nil
}

func (v *LoginView) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	fieldCount := len(v.fields())

	switch {
	case key.Matches(msg, v.keys.SwitchMode):
		v.toggleMode()
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Tab):
		v.focusIdx = (v.focusIdx + 1) % (fieldCount + 1)
		v.updateFocus()
		return v, nil

	case key.Matches(msg, v.keys.ShiftTab):
		v.focusIdx = (v.focusIdx + fieldCount) % (fieldCount + 1)
		v.updateFocus()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		return v, v.submit()
	}

	if v.focusIdx >= fieldCount {
		return v, nil
	}
	field := v.fields()[v.focusIdx]
	var cmd tea.Cmd
	*field, cmd = field.Update(msg)
	return v, cmd
}

// toggleMode switches between login and signup, clearing every input and the error
func (v *LoginView) toggleMode() {
	v.signup = !v.signup
	v.err = ""
	v.name.Reset()
	v.email.Reset()
	v.password.Reset()
	v.focusIdx = 0
	v.updateFocus()
}

func (v *LoginView) updateFocus() {
	for i, f := range v.fields() {
		if i == v.focusIdx {
			f.Focus()
		} else {
			f.Blur()
		}
	}
	if !v.signup {
		v.name.Blur()
	}
}

// validate mirrors the input constraints: required fields and a minimum password length
func (v *LoginView) validate() string {
	if v.signup && strings.TrimSpace(v.name.Value()) == "" {
		return "Name is required"
	}
	if strings.TrimSpace(v.email.Value()) == "" {
		return "Email is required"
	}
	if v.password.Value() == "" {
		return "Password is required"
	}
	if len([]rune(v.password.Value())) < MinPasswordLength {
		return "Password must be at least 6 characters"
	}
	return ""
}

func (v *LoginView) submit() tea.Cmd {
	if v.state != LoginAnonymous {
		return nil
	}
	v.err = ""
	if problem := v.validate(); problem != "" {
		v.err = problem
		return nil
	}

	v.state = LoginSubmitting
	ctx, client := v.ctx, v.client
	email := strings.TrimSpace(v.email.Value())
	password := v.password.Value()

	if v.signup {
		name := strings.TrimSpace(v.name.Value())
		return func() tea.Msg {
			resp, err := client.Signup(ctx, email, password, name)
			return authResultMsg{resp: resp, err: err}
		}
	}
	return func() tea.Msg {
		resp, err := client.Login(ctx, email, password)
		return authResultMsg{resp: resp, err: err}
	}
}

// View renders the view
func (v *LoginView) View() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	inputWidth := clamp(contentWidth-6, 20, 50)

	subtitle := "Sign in to your account"
	button := " Sign In "
	switchHint := "Don't have an account? ctrl+t to sign up"
	if v.signup {
		subtitle = "Create a new account"
		button = " Sign Up "
		switchHint = "Already have an account? ctrl+t to sign in"
	}
	if v.state == LoginSubmitting {
		button = " Please wait... "
	}

	rows := []string{
		s.Title.Render("Todo App"),
		s.TitleMuted.Render(subtitle),
		"",
	}
	if v.err != "" {
		rows = append(rows, s.ErrorBanner.Width(inputWidth).Render(v.err), "")
	}

	labels := []string{"Email", "Password"}
	if v.signup {
		labels = []string{"Name", "Email", "Password"}
	}
	for i, f := range v.fields() {
		style := s.Input
		if i == v.focusIdx {
			style = s.InputFocused
		}
		rows = append(rows, labels[i]+":", style.Width(inputWidth).Render(f.View()), "")
	}

	btnStyle := s.Button
	switch {
	case v.state == LoginSubmitting:
		btnStyle = s.ButtonDisabled
	case v.focusIdx == len(v.fields()):
		btnStyle = s.ButtonFocused
	}
	rows = append(rows,
		btnStyle.Render(button),
		"",
		s.TitleMuted.Render(switchHint),
		s.TitleMuted.Render("Tab: next • Enter: submit • Ctrl+C: quit"),
	)

	form := lipgloss.JoinVertical(lipgloss.Left, rows...)
	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		form,
	)
	return styles.CenterView(centered, v.width, v.height)
}
