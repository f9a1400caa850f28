package views

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/todochat/internal/models"
	"github.com/tgienger/todochat/internal/ui/keys"
	"github.com/tgienger/todochat/internal/ui/styles"
)

func newForm() *TaskForm {
	f := NewTaskForm(styles.NewStyles(), keys.DefaultKeyMap())
	f.SetTask(nil)
	f.SetWidth(100)
	return f
}

func TestFormRequiresTitle(t *testing.T) {
	f := newForm()
	f.Update(keyRunes("  "))

	assert.Nil(t, f.Update(keyType(tea.KeyCtrlS)))
	assert.Equal(t, "Title is required", f.Error())
	assert.False(t, f.Submitting())
}

func TestFormSubmitsTrimmedValues(t *testing.T) {
	f := newForm()
	f.Update(keyRunes("  Buy milk "))
	f.Update(keyType(tea.KeyTab))
	f.Update(keyRunes(" 2 litres "))

	msgs := run(f.Update(keyType(tea.KeyCtrlS)))
	assert.Equal(t, []tea.Msg{SubmitTaskIntent{Title: "Buy milk", Description: "2 litres"}}, msgs)
	assert.True(t, f.Submitting())
	assert.Contains(t, f.View(), "Saving...")

	// Input is locked until the dashboard reports back
	assert.Nil(t, f.Update(keyType(tea.KeyCtrlS)))
	assert.Nil(t, f.Update(keyType(tea.KeyEsc)))
}

func TestFormEnterWalksFieldsThenButtons(t *testing.T) {
	f := newForm()
	f.Update(keyRunes("Buy milk"))

	assert.Nil(t, f.Update(keyType(tea.KeyEnter)))
	f.Update(keyType(tea.KeyTab))

	msgs := run(f.Update(keyType(tea.KeyEnter)))
	require.Len(t, msgs, 1)
	assert.IsType(t, SubmitTaskIntent{}, msgs[0])
}

func TestFormCancel(t *testing.T) {
	f := newForm()
	assert.Equal(t, []tea.Msg{CancelTaskFormIntent{}}, run(f.Update(keyType(tea.KeyEsc))))

	f.Update(keyType(tea.KeyShiftTab))
	assert.Equal(t, []tea.Msg{CancelTaskFormIntent{}}, run(f.Update(keyType(tea.KeyEnter))))
}

func TestFormResetsAfterCreateOnly(t *testing.T) {
	f := newForm()
	f.Update(keyRunes("Buy milk"))
	f.submit()
	f.SubmitSucceeded()
	title, desc := f.Values()
	assert.Empty(t, title)
	assert.Empty(t, desc)
	assert.False(t, f.Submitting())

	task := models.Task{ID: 3, Title: "Walk dog", Description: "Evening"}
	f.SetTask(&task)
	assert.True(t, f.Editing())
	assert.Contains(t, f.View(), "Edit Task")
	f.submit()
	f.SubmitSucceeded()
	title, desc = f.Values()
	assert.Equal(t, "Walk dog", title)
	assert.Equal(t, "Evening", desc)
}

func TestFormKeepsDraftOnFailure(t *testing.T) {
	f := newForm()
	f.Update(keyRunes("Buy milk"))
	f.submit()
	f.SubmitFailed("Failed to save task")

	assert.Equal(t, "Failed to save task", f.Error())
	assert.False(t, f.Submitting())
	title, _ := f.Values()
	assert.Equal(t, "Buy milk", title)
	assert.Contains(t, f.View(), "Failed to save task")

	f.SetTask(nil)
	assert.Empty(t, f.Error())
}
