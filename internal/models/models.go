package models

import (
	"fmt"
	"strings"
	"time"
)

// User is the signed-in account as returned by the backend
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Task represents a single task owned by one user
type Task struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   Timestamp `json:"created_at"`
	UpdatedAt   Timestamp `json:"updated_at"`
}

// TaskInput is the body of a create request
type TaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// TaskUpdate carries the fields of a partial update; nil fields are left untouched
type TaskUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// SignupRequest is the body of POST /api/auth/signup
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by both auth endpoints
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// ChatRequest is the body of POST /api/{userId}/chat.
// ConversationID is omitted for the first message of a conversation.
type ChatRequest struct {
	ConversationID *int64 `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

// ChatResponse is the assistant's answer to one chat turn
type ChatResponse struct {
	ConversationID int64    `json:"conversation_id"`
	Response       string   `json:"response"`
	ToolCalls      []string `json:"tool_calls"`
}

// Timestamp accepts the backend's datetimes, which may come without a zone
// ("2024-05-01T10:00:00.123456") and are then taken as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("models: unrecognized timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339Nano) + `"`), nil
}
