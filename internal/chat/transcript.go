// Package chat keeps the in-memory chat transcript. A user message is shown as soon
// as it is sent and is then either committed with the assistant's reply or rolled back.
package chat

import (
	"errors"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry. It is never persisted.
type Message struct {
	Role      Role
	Content   string
	ToolCalls []string
	Timestamp time.Time
}

// Phase is the state of the most recent turn
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePending
	PhaseCommitted
	PhaseRolledBack
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseCommitted:
		return "committed"
	case PhaseRolledBack:
		return "rolled back"
	default:
		return "idle"
	}
}

var (
	ErrTurnInFlight = errors.New("chat: a message is already being sent")
	ErrTurnSettled  = errors.New("chat: turn already settled")
	ErrEmptyDraft   = errors.New("chat: message is empty")
)

// Transcript is the ordered list of messages plus at most one pending turn
type Transcript struct {
	messages []Message
	pending  *Turn
	phase    Phase
	now      func() time.Time
}

func NewTranscript() *Transcript {
	return &Transcript{now: time.Now}
}

// Turn is the handle for one optimistic send
type Turn struct {
	t     *Transcript
	draft string
	index int
	done  bool
}

// Begin appends draft as a user message and returns the pending turn
func (t *Transcript) Begin(draft string) (*Turn, error) {
	if t.pending != nil {
		return nil, ErrTurnInFlight
	}
	if draft == "" {
		return nil, ErrEmptyDraft
	}
	t.messages = append(t.messages, Message{Role: RoleUser, Content: draft, Timestamp: t.now()})
	t.pending = &Turn{t: t, draft: draft, index: len(t.messages) - 1}
	t.phase = PhasePending
	return t.pending, nil
}

// Draft is the text the user sent
func (tn *Turn) Draft() string { return tn.draft }

// Commit keeps the user message and appends the assistant's reply
func (tn *Turn) Commit(reply string, toolCalls []string) error {
	if tn.done {
		return ErrTurnSettled
	}
	tn.done = true
	t := tn.t
	t.messages = append(t.messages, Message{
		Role:      RoleAssistant,
		Content:   reply,
		ToolCalls: toolCalls,
		Timestamp: t.now(),
	})
	t.pending = nil
	t.phase = PhaseCommitted
	return nil
}

// Rollback removes the optimistic user message, restoring the transcript
// to exactly what it was before Begin
func (tn *Turn) Rollback() error {
	if tn.done {
		return ErrTurnSettled
	}
	tn.done = true
	t := tn.t
	if tn.index < len(t.messages) {
		t.messages = append(t.messages[:tn.index], t.messages[tn.index+1:]...)
	}
	t.pending = nil
	t.phase = PhaseRolledBack
	return nil
}

// Messages returns a copy of the transcript, including a pending user message
func (t *Transcript) Messages() []Message {
	return append([]Message(nil), t.messages...)
}

func (t *Transcript) Len() int { return len(t.messages) }

func (t *Transcript) Phase() Phase { return t.phase }

// Pending reports whether a turn is awaiting its reply
func (t *Transcript) Pending() bool { return t.pending != nil }

// Reset empties the transcript. A pending turn is abandoned; settling it later is a no-op error.
func (t *Transcript) Reset() {
	if t.pending != nil {
		t.pending.done = true
	}
	t.messages = nil
	t.pending = nil
	t.phase = PhaseIdle
}
