package mockapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tgienger/todochat/internal/models"
)

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	userID := userIDFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	var convID int64
	if req.ConversationID != nil && *req.ConversationID != 0 {
		owner, ok := s.conversations[*req.ConversationID]
		if !ok || owner != userID {
			writeError(w, http.StatusNotFound, "Conversation not found")
			return
		}
		convID = *req.ConversationID
	} else {
		convID = s.nextConvID
		s.nextConvID++
		s.conversations[convID] = userID
	}

	reply, tools := s.answer(userID, req.Message)
	writeJSON(w, http.StatusOK, models.ChatResponse{
		ConversationID: convID,
		Response:       reply,
		ToolCalls:      tools,
	})
}

// answer stands in for the assistant. It understands "add ..." and "list"/"show";
// must be called with s.mu held.
func (s *Server) answer(userID int64, message string) (string, []string) {
	text := strings.TrimSpace(message)
	lower := strings.ToLower(text)

	switch {
	case strings.HasPrefix(lower, "add"):
		title := strings.TrimSpace(text[len("add"):])
		for _, prefix := range []string{"a task to ", "a task ", "task "} {
			if strings.HasPrefix(strings.ToLower(title), prefix) {
				title = strings.TrimSpace(title[len(prefix):])
				break
			}
		}
		if title == "" {
			return "What should the task be called?", []string{}
		}
		task := s.addTask(userID, title, "")
		return fmt.Sprintf("I've added **%s** to your tasks (id %d).", task.Title, task.ID), []string{"add_task"}

	case strings.HasPrefix(lower, "list"), strings.HasPrefix(lower, "show"):
		tasks := s.userTasks(userID)
		if len(tasks) == 0 {
			return "You have no tasks yet.", []string{"list_tasks"}
		}
		var b strings.Builder
		b.WriteString("Here are your tasks:\n\n")
		for _, t := range tasks {
			mark := " "
			if t.Completed {
				mark = "x"
			}
			fmt.Fprintf(&b, "- [%s] %s\n", mark, t.Title)
		}
		return b.String(), []string{"list_tasks"}
	}

	return `I can help you manage your tasks. Try "Add a task to buy groceries" or "Show my tasks".`, []string{}
}
