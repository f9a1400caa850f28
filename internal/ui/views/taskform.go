package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/todochat/internal/models"
	"github.com/tgienger/todochat/internal/ui/keys"
	"github.com/tgienger/todochat/internal/ui/styles"
)

// Form intents, handled by the dashboard
type (
	SubmitTaskIntent struct {
		Title       string
		Description string
	}
	CancelTaskFormIntent struct{}
)

// TaskForm edits a draft title and description. It is seeded from the task
// being edited, or empty when creating.
type TaskForm struct {
	task   *models.Task
	styles *styles.Styles
	keys   keys.KeyMap
	width  int

	title      textinput.Model
	desc       textarea.Model
	focusIdx   int // 0=title, 1=desc, 2=save, 3=cancel
	err        string
	submitting bool
}

func NewTaskForm(s *styles.Styles, k keys.KeyMap) *TaskForm {
	title := textinput.New()
	title.Placeholder = "Enter task title"
	title.CharLimit = 200

	desc := textarea.New()
	desc.Placeholder = "Enter task description (optional)"
	desc.CharLimit = 1000
	desc.SetWidth(50)
	desc.SetHeight(3)
	desc.ShowLineNumbers = false

	f := &TaskForm{styles: s, keys: k, title: title, desc: desc}
	f.updateFocus()
	return f
}

// SetTask seeds the draft from task, or clears it when task is nil
func (f *TaskForm) SetTask(task *models.Task) {
	f.task = task
	if task != nil {
		f.title.SetValue(task.Title)
		f.desc.SetValue(task.Description)
	} else {
		f.title.Reset()
		f.desc.Reset()
	}
	f.err = ""
	f.submitting = false
	f.focusIdx = 0
	f.updateFocus()
}

// Editing is true when the form edits an existing task
func (f *TaskForm) Editing() bool { return f.task != nil }

func (f *TaskForm) Error() string { return f.err }

func (f *TaskForm) Submitting() bool { return f.submitting }

// Values returns the current draft
func (f *TaskForm) Values() (string, string) { return f.title.Value(), f.desc.Value() }

// SubmitFailed shows msg inline and keeps the draft
func (f *TaskForm) SubmitFailed(msg string) {
	f.submitting = false
	f.err = msg
}

// SubmitSucceeded clears the draft after a create; an edited draft is left as is
func (f *TaskForm) SubmitSucceeded() {
	f.submitting = false
	if f.task == nil {
		f.title.Reset()
		f.desc.Reset()
	}
}

func (f *TaskForm) SetWidth(width int) {
	f.width = width
	f.desc.SetWidth(clamp(styles.ContentWidth(width)-10, 20, 50))
}

func (f *TaskForm) Update(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		switch f.focusIdx {
		case 0:
			f.title, cmd = f.title.Update(msg)
		case 1:
			f.desc, cmd = f.desc.Update(msg)
		}
		return cmd
	}

	if f.submitting {
		return nil
	}

	switch {
	case key.Matches(keyMsg, f.keys.Back):
		return func() tea.Msg { return CancelTaskFormIntent{} }

	case key.Matches(keyMsg, f.keys.Save):
		return f.submit()

	case key.Matches(keyMsg, f.keys.Tab):
		f.focusIdx = (f.focusIdx + 1) % 4
		f.updateFocus()
		return nil

	case key.Matches(keyMsg, f.keys.ShiftTab):
		f.focusIdx = (f.focusIdx + 3) % 4
		f.updateFocus()
		return nil

	case key.Matches(keyMsg, f.keys.Enter):
		switch f.focusIdx {
		case 0:
			f.focusIdx++
			f.updateFocus()
			return nil
		case 2:
			return f.submit()
		case 3:
			return func() tea.Msg { return CancelTaskFormIntent{} }
		}
		// Enter in the description inserts a newline
	}

	var cmd tea.Cmd
	switch f.focusIdx {
	case 0:
		f.title, cmd = f.title.Update(keyMsg)
	case 1:
		f.desc, cmd = f.desc.Update(keyMsg)
	}
	return cmd
}

func (f *TaskForm) submit() tea.Cmd {
	f.err = ""
	title := strings.TrimSpace(f.title.Value())
	if title == "" {
		f.err = "Title is required"
		return nil
	}
	f.submitting = true
	intent := SubmitTaskIntent{Title: title, Description: strings.TrimSpace(f.desc.Value())}
	return func() tea.Msg { return intent }
}

func (f *TaskForm) updateFocus() {
	f.title.Blur()
	f.desc.Blur()
	switch f.focusIdx {
	case 0:
		f.title.Focus()
	case 1:
		f.desc.Focus()
	}
}

func (f *TaskForm) View() string {
	s := f.styles
	inputWidth := clamp(styles.ContentWidth(f.width)-6, 20, 50)

	formTitle := "New Task"
	saveLabel := " Add Task "
	if f.Editing() {
		formTitle = "Edit Task"
		saveLabel = " Update Task "
	}
	if f.submitting {
		saveLabel = " Saving... "
	}

	titleStyle, descStyle := s.Input, s.Input
	saveStyle, cancelStyle := s.Button, s.Button
	switch f.focusIdx {
	case 0:
		titleStyle = s.InputFocused
	case 1:
		descStyle = s.InputFocused
	case 2:
		saveStyle = s.ButtonFocused
	case 3:
		cancelStyle = s.ButtonFocused
	}
	if f.submitting {
		saveStyle, cancelStyle = s.ButtonDisabled, s.ButtonDisabled
	}

	rows := []string{s.Title.Render(formTitle), ""}
	if f.err != "" {
		rows = append(rows, s.ErrorBanner.Width(inputWidth).Render(f.err), "")
	}
	rows = append(rows,
		"Title *",
		titleStyle.Width(inputWidth).Render(f.title.View()),
		"",
		"Description",
		descStyle.Render(f.desc.View()),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			saveStyle.Render(saveLabel),
			"  ",
			cancelStyle.Render(" Cancel "),
		),
		"",
		s.TitleMuted.Render("Tab: next • Ctrl+S: save • Esc: cancel"),
	)
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
