// Package conversation holds per-thread message history and the stores that
// keep it between turns.
package conversation

import (
	"slices"
	"time"

	"github.com/Cyclone1070/butterfi/internal/provider"
	"github.com/google/uuid"
)

// Conversation is the ordered, append-only history of one thread.
type Conversation struct {
	ThreadID  string
	Messages  []provider.Message
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewThreadID returns a fresh random thread id.
func NewThreadID() string {
	return uuid.NewString()
}

// New creates an empty conversation. A blank threadID gets a fresh id.
func New(threadID string, now time.Time) *Conversation {
	if threadID == "" {
		threadID = NewThreadID()
	}
	return &Conversation{
		ThreadID:  threadID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds messages to the end of the history.
func (c *Conversation) Append(now time.Time, msgs ...provider.Message) {
	if len(msgs) == 0 {
		return
	}
	c.Messages = append(c.Messages, msgs...)
	c.UpdatedAt = now
}

// Clone returns a copy whose message slice can be appended to without
// affecting c.
func (c *Conversation) Clone() *Conversation {
	cp := *c
	cp.Messages = slices.Clone(c.Messages)
	for i := range cp.Messages {
		cp.Messages[i].ToolCalls = slices.Clone(cp.Messages[i].ToolCalls)
	}
	return &cp
}

// Len returns the number of messages.
func (c *Conversation) Len() int { return len(c.Messages) }
