package views

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/todochat/internal/models"
	"github.com/tgienger/todochat/internal/ui/keys"
	"github.com/tgienger/todochat/internal/ui/styles"
)

// Card intents, handled by the dashboard
type (
	ToggleTaskIntent struct{ TaskID int64 }
	EditTaskIntent   struct{ Task models.Task }
	DeleteTaskIntent struct{ TaskID int64 }
)

// TaskCard renders one task. It owns its delete confirmation and the
// "deleting" state for the duration of its own delete call.
type TaskCard struct {
	Task       models.Task
	styles     *styles.Styles
	keys       keys.KeyMap
	confirming bool
	deleting   bool
}

func NewTaskCard(task models.Task, s *styles.Styles, k keys.KeyMap) *TaskCard {
	return &TaskCard{Task: task, styles: s, keys: k}
}

// EditDisabled is true once the task is completed
func (c *TaskCard) EditDisabled() bool { return c.Task.Completed }

func (c *TaskCard) Deleting() bool { return c.deleting }

// Confirming is true while the card asks whether to delete
func (c *TaskCard) Confirming() bool { return c.confirming }

// FinishDelete ends the deleting state after a failed delete
func (c *TaskCard) FinishDelete() { c.deleting = false }

// Update turns key presses on the selected card into intents
func (c *TaskCard) Update(msg tea.KeyMsg) tea.Cmd {
	if c.confirming {
		switch {
		case key.Matches(msg, c.keys.Confirm):
			c.confirming = false
			c.deleting = true
			id := c.Task.ID
			return func() tea.Msg { return DeleteTaskIntent{TaskID: id} }
		case key.Matches(msg, c.keys.Cancel):
			c.confirming = false
		}
		return nil
	}

	switch {
	case key.Matches(msg, c.keys.Toggle):
		if c.deleting {
			return nil
		}
		id := c.Task.ID
		return func() tea.Msg { return ToggleTaskIntent{TaskID: id} }

	case key.Matches(msg, c.keys.Edit):
		if c.EditDisabled() || c.deleting {
			return nil
		}
		task := c.Task
		return func() tea.Msg { return EditTaskIntent{Task: task} }

	case key.Matches(msg, c.keys.Delete):
		if !c.deleting {
			c.confirming = true
		}
	}
	return nil
}

func (c *TaskCard) View(selected bool, width int) string {
	s := c.styles
	box := s.TaskCard
	if selected {
		box = s.TaskCardSelected
	}
	if c.Task.Completed {
		box = box.BorderForeground(styles.Current.Success)
	}
	inner := max(width-4, 20)

	check := "[ ]"
	titleStyle := s.TaskTitle
	if c.Task.Completed {
		check = s.Checkbox.Render("[x]")
		titleStyle = s.TaskDone
	}
	title := check + " " + titleStyle.Render(c.Task.Title)

	lines := []string{title}
	if c.Task.Description != "" {
		desc := s.TaskMeta
		if c.Task.Completed {
			desc = s.TaskDone
		}
		lines = append(lines, desc.Width(inner).Render(c.Task.Description))
	}

	meta := "Created: " + c.Task.CreatedAt.Local().Format("Jan 2, 2006")
	switch {
	case c.deleting:
		meta += "  •  Deleting..."
	case c.confirming:
		meta += "  •  " + s.ErrorInline.Render("Delete this task? y/n")
	case c.EditDisabled():
		meta += "  •  edit disabled"
	}
	lines = append(lines, s.TaskMeta.Render(meta))

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	if c.deleting {
		content = s.TaskMeta.Render(content)
	}
	return box.Width(inner).Render(content)
}
