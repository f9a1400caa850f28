package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/tgienger/todochat/internal/models"
)

var tasksJSON bool

// tasksCmd prints the signed-in user's tasks
var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List your tasks",
	Args:  cobra.NoArgs,
	RunE:  runTasks,
}

var tasksShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksShow,
}

func init() {
	tasksCmd.PersistentFlags().BoolVar(&tasksJSON, "json", false, "Print JSON")
	tasksCmd.AddCommand(tasksShowCmd)
}

func runTasks(cmd *cobra.Command, args []string) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.Close()

	user, ok := env.session.User()
	if !env.session.IsAuthenticated() || !ok {
		return errNotSignedIn
	}

	tasks, err := env.client.ListTasks(cmd.Context(), user.ID)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	out := cmd.OutOrStdout()
	if tasksJSON {
		return writeJSON(out, tasks)
	}
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks yet.")
		return nil
	}
	fmt.Fprintln(out, renderTaskTable(tasks))
	return nil
}

func runTasksShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid task id %q", args[0])
	}

	env, err := setup()
	if err != nil {
		return err
	}
	defer env.Close()

	user, ok := env.session.User()
	if !env.session.IsAuthenticated() || !ok {
		return errNotSignedIn
	}

	task, err := env.client.GetTask(cmd.Context(), user.ID, id)
	if err != nil {
		return fmt.Errorf("failed to get task %d: %w", id, err)
	}

	out := cmd.OutOrStdout()
	if tasksJSON {
		return writeJSON(out, task)
	}
	fmt.Fprint(out, formatTask(*task))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func status(t models.Task) string {
	if t.Completed {
		return "done"
	}
	return "pending"
}

func renderTaskTable(tasks []models.Task) string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{
			strconv.FormatInt(t.ID, 10),
			status(t),
			t.Title,
			t.CreatedAt.Format("Jan 2, 2006"),
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "STATUS", "TITLE", "CREATED").
		Rows(rows...).
		String()
}

func formatTask(t models.Task) string {
	s := fmt.Sprintf("#%d %s [%s]\n", t.ID, t.Title, status(t))
	if t.Description != "" {
		s += "\n" + t.Description + "\n"
	}
	s += fmt.Sprintf("\nCreated: %s\n", t.CreatedAt.Format("Jan 2, 2006 15:04"))
	if !t.UpdatedAt.IsZero() {
		s += fmt.Sprintf("Updated: %s\n", t.UpdatedAt.Format("Jan 2, 2006 15:04"))
	}
	return s
}
