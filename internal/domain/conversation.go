package domain

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is the ordered, append-only message history of one
// interactive session. It is not safe for concurrent use; the shell that
// owns it is its only writer.
type Conversation struct {
	ID        string
	CreatedAt time.Time
	messages  []Message
}

// NewConversation starts a conversation, seeded with a system message when
// systemPrompt is non-empty.
func NewConversation(systemPrompt string) *Conversation {
	c := &Conversation{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
	}
	if systemPrompt != "" {
		c.Append(NewMessage(RoleSystem, systemPrompt))
	}
	return c
}

// Append adds messages to the end of the history.
func (c *Conversation) Append(msgs ...Message) {
	c.messages = append(c.messages, msgs...)
}

// Len returns the number of messages in the history.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// Messages returns a copy of the history.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}
