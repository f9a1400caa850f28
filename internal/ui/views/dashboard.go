package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/todochat/internal/api"
	"github.com/tgienger/todochat/internal/models"
	"github.com/tgienger/todochat/internal/session"
	"github.com/tgienger/todochat/internal/ui/keys"
	"github.com/tgienger/todochat/internal/ui/styles"
)

// Stats are derived from the task list on every render
type Stats struct {
	Total     int
	Completed int
	Pending   int
}

func computeStats(tasks []models.Task) Stats {
	st := Stats{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			st.Completed++
		}
	}
	st.Pending = st.Total - st.Completed
	return st
}

// DashboardView lists, creates, edits, toggles and deletes the user's tasks.
// Every successful mutation is followed by a reload of the full list.
type DashboardView struct {
	ctx     context.Context
	client  *api.Client
	session *session.Session
	styles  *styles.Styles
	keys    keys.KeyMap

	width  int
	height int

	user    models.User
	tasks   []models.Task
	cards   []*TaskCard
	cursor  int
	scrollY int
	loading bool
	spinner spinner.Model
	banner  banner

	formOpen bool
	form     *TaskForm
	editing  *models.Task // nil while adding

	showHelpPopup bool
}

func NewDashboardView(ctx context.Context, client *api.Client, sess *session.Session) *DashboardView {
	s := styles.NewStyles()
	k := keys.DefaultKeyMap()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Current.Primary)

	return &DashboardView{
		ctx:     ctx,
		client:  client,
		session: sess,
		styles:  s,
		keys:    k,
		spinner: sp,
		form:    NewTaskForm(s, k),
	}
}

type tasksLoadedMsg struct {
	tasks []models.Task
	err   error
}

type taskSavedMsg struct {
	err error
}

type taskToggledMsg struct {
	err error
}

type taskDeletedMsg struct {
	taskID int64
	err    error
}

// Init checks the session, then fetches the task list
func (v *DashboardView) Init() tea.Cmd {
	if !v.session.IsAuthenticated() {
		return navigate(ScreenLogin)
	}
	user, ok := v.session.User()
	if !ok {
		return navigate(ScreenLogin)
	}
	v.user = user
	v.loading = true
	return tea.Batch(v.spinner.Tick, v.loadTasks())
}

func (v *DashboardView) loadTasks() tea.Cmd {
	ctx, client, userID := v.ctx, v.client, v.user.ID
	return func() tea.Msg {
		tasks, err := client.ListTasks(ctx, userID)
		return tasksLoadedMsg{tasks: tasks, err: err}
	}
}

// Tasks returns the list as of the last successful fetch
func (v *DashboardView) Tasks() []models.Task { return v.tasks }

func (v *DashboardView) Loading() bool { return v.loading }

func (v *DashboardView) Stats() Stats { return computeStats(v.tasks) }

func (v *DashboardView) FormOpen() bool { return v.formOpen }

func (v *DashboardView) Form() *TaskForm { return v.form }

// Banner returns the transient error text, if any
func (v *DashboardView) Banner() string { return v.banner.text }

// Card returns the card for a task id, or nil
func (v *DashboardView) Card(taskID int64) *TaskCard {
	for _, c := range v.cards {
		if c.Task.ID == taskID {
			return c
		}
	}
	return nil
}

// Select moves the cursor to the card of taskID
func (v *DashboardView) Select(taskID int64) {
	for i, c := range v.cards {
		if c.Task.ID == taskID {
			v.cursor = i
			v.ensureVisible()
			return
		}
	}
}

func (v *DashboardView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.form.SetWidth(msg.Width)
		return v, nil

	case spinner.TickMsg:
		if !v.loading {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case dismissErrorMsg:
		v.banner.dismiss(msg)
		return v, nil

	case tasksLoadedMsg:
		v.loading = false
		if msg.err != nil {
			// A delete that succeeded is over even if the list could not be refreshed
			for _, c := range v.cards {
				c.FinishDelete()
			}
			return v, v.banner.show("Failed to load tasks. Please try again.")
		}
		v.setTasks(msg.tasks)
		return v, nil

	case ToggleTaskIntent:
		ctx, client, userID := v.ctx, v.client, v.user.ID
		return v, func() tea.Msg {
			_, err := client.ToggleTaskComplete(ctx, userID, msg.TaskID)
			return taskToggledMsg{err: err}
		}

	case taskToggledMsg:
		if msg.err != nil {
			return v, v.banner.show("Failed to update task. Please try again.")
		}
		return v, v.loadTasks()

	case DeleteTaskIntent:
		ctx, client, userID := v.ctx, v.client, v.user.ID
		return v, func() tea.Msg {
			err := client.DeleteTask(ctx, userID, msg.TaskID)
			return taskDeletedMsg{taskID: msg.TaskID, err: err}
		}

	case taskDeletedMsg:
		if msg.err != nil {
			if c := v.Card(msg.taskID); c != nil {
				c.FinishDelete()
			}
			return v, v.banner.show("Failed to delete task. Please try again.")
		}
		return v, v.loadTasks()

	case EditTaskIntent:
		if msg.Task.Completed {
			return v, nil
		}
		task := msg.Task
		v.openForm(&task)
		return v, nil

	case SubmitTaskIntent:
		return v, v.saveTask(msg)

	case taskSavedMsg:
		if msg.err != nil {
			v.form.SubmitFailed(api.DetailOr(msg.err, "Failed to save task"))
			return v, nil
		}
		v.form.SubmitSucceeded()
		v.closeForm()
		return v, v.loadTasks()

	case CancelTaskFormIntent:
		v.closeForm()
		return v, nil

	case tea.KeyMsg:
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}
		if key.Matches(msg, v.keys.ForceQuit) {
			return v, tea.Quit
		}
		if v.formOpen {
			return v, v.form.Update(msg)
		}
		if c := v.selected(); c != nil && c.Confirming() {
			return v, c.Update(msg)
		}
		return v.updateNormal(msg)
	}

	if v.formOpen {
		return v, v.form.Update(msg)
	}
	return v, nil
}

func (v *DashboardView) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit

	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(v.cards)-1 {
			v.cursor++
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.New):
		v.openForm(nil)
		return v, nil

	case key.Matches(msg, v.keys.Chat):
		return v, navigate(ScreenChat)

	case key.Matches(msg, v.keys.Logout):
		v.session.Clear()
		return v, loggedOut

	case key.Matches(msg, v.keys.Help):
		v.showHelpPopup = true
		return v, nil
	}

	if c := v.selected(); c != nil {
		return v, c.Update(msg)
	}
	return v, nil
}

func (v *DashboardView) selected() *TaskCard {
	if v.cursor < 0 || v.cursor >= len(v.cards) {
		return nil
	}
	return v.cards[v.cursor]
}

// setTasks replaces the list, keeping the local state of cards that survive
func (v *DashboardView) setTasks(tasks []models.Task) {
	v.tasks = tasks
	cards := make([]*TaskCard, len(tasks))
	for i, t := range tasks {
		if c := v.Card(t.ID); c != nil {
			c.Task = t
			cards[i] = c
		} else {
			cards[i] = NewTaskCard(t, v.styles, v.keys)
		}
	}
	v.cards = cards
	if v.cursor >= len(v.cards) {
		v.cursor = max(0, len(v.cards)-1)
	}
	v.ensureVisible()
}

func (v *DashboardView) openForm(task *models.Task) {
	v.editing = task
	v.form.SetTask(task)
	v.formOpen = true
}

func (v *DashboardView) closeForm() {
	v.formOpen = false
	v.editing = nil
}

func (v *DashboardView) saveTask(in SubmitTaskIntent) tea.Cmd {
	ctx, client, userID := v.ctx, v.client, v.user.ID

	if v.editing != nil {
		taskID := v.editing.ID
		title, desc := in.Title, in.Description
		return func() tea.Msg {
			_, err := client.UpdateTask(ctx, userID, taskID, models.TaskUpdate{Title: &title, Description: &desc})
			return taskSavedMsg{err: err}
		}
	}
	return func() tea.Msg {
		_, err := client.CreateTask(ctx, userID, models.TaskInput{Title: in.Title, Description: in.Description})
		return taskSavedMsg{err: err}
	}
}

func (v *DashboardView) visibleCards() int {
	// Each card is roughly 3 lines plus a blank line
	available := max(v.height-14, 4)
	return max(available/4, 1)
}

func (v *DashboardView) ensureVisible() {
	visible := v.visibleCards()
	if v.cursor < v.scrollY {
		v.scrollY = v.cursor
	} else if v.cursor >= v.scrollY+visible {
		v.scrollY = v.cursor - visible + 1
	}
}

// View renders the view
func (v *DashboardView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}

	s := v.styles
	var b strings.Builder

	b.WriteString(v.renderHeader())
	b.WriteString("\n\n")

	if v.banner.text != "" {
		b.WriteString(s.ErrorBanner.Render(v.banner.text))
		b.WriteString("\n\n")
	}

	if v.formOpen {
		b.WriteString(v.form.View())
		b.WriteString("\n\n")
	} else {
		b.WriteString(s.ButtonPrimary.Render(" + Add New Task (n) "))
		b.WriteString("\n\n")
	}

	switch {
	case v.loading:
		b.WriteString(v.spinner.View() + " " + s.TitleMuted.Render("Loading tasks..."))
	case len(v.cards) == 0:
		b.WriteString(s.TitleMuted.Render("No tasks yet. Press 'n' to create your first task."))
	default:
		b.WriteString(v.renderCards())
		b.WriteString("\n")
		b.WriteString(v.renderStats())
	}

	b.WriteString("\n")
	b.WriteString(v.renderHelp())

	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *DashboardView) renderHeader() string {
	s := v.styles
	title := s.Title.Render("My Tasks")
	welcome := s.TitleMuted.Render("Welcome, " + v.user.Name)
	return lipgloss.JoinVertical(lipgloss.Left, title, welcome)
}

func (v *DashboardView) renderCards() string {
	width := styles.ContentWidth(v.width)
	end := min(v.scrollY+v.visibleCards(), len(v.cards))

	var items []string
	for i := v.scrollY; i < end; i++ {
		items = append(items, v.cards[i].View(i == v.cursor && !v.formOpen, width)+"\n")
	}
	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

func (v *DashboardView) renderStats() string {
	s := v.styles
	st := computeStats(v.tasks)
	return lipgloss.JoinHorizontal(lipgloss.Top,
		s.Stat.Render("Total "+s.StatValue.Render(fmt.Sprint(st.Total))),
		s.Stat.Render("Completed "+s.StatValue.Render(fmt.Sprint(st.Completed))),
		s.Stat.Render("Pending "+s.StatValue.Render(fmt.Sprint(st.Pending))),
	)
}

func (v *DashboardView) renderHelp() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	// At narrow widths, show hint to press ? for help
	if contentWidth > 0 && contentWidth < 50 {
		return s.Help.Render(s.HelpKey.Render("?") + " help")
	}
	if v.formOpen {
		return ""
	}
	return s.Help.Render(
		fmt.Sprintf("%s done • %s edit • %s new • %s del • %s chat • %s logout • %s quit",
			s.HelpKey.Render("space"),
			s.HelpKey.Render("e"),
			s.HelpKey.Render("n"),
			s.HelpKey.Render("d"),
			s.HelpKey.Render("c"),
			s.HelpKey.Render("L"),
			s.HelpKey.Render("q"),
		),
	)
}

func (v *DashboardView) renderHelpPopup() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	helpItems := []string{
		s.HelpKey.Render("↑/↓") + "    select task",
		s.HelpKey.Render("space") + "  toggle complete",
		s.HelpKey.Render("e") + "      edit task",
		s.HelpKey.Render("n") + "      new task",
		s.HelpKey.Render("d") + "      delete task",
		s.HelpKey.Render("c") + "      chat assistant",
		s.HelpKey.Render("L") + "      logout",
		s.HelpKey.Render("q") + "      quit",
		"",
		s.TitleMuted.Render("Press any key to close"),
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{s.Title.Render("Keyboard Shortcuts"), ""}, helpItems...)...,
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.Popup.Render(content),
	)
	return styles.CenterView(centered, v.width, v.height)
}
