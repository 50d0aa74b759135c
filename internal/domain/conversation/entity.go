package conversation

import (
	"time"

	"convsync/internal/domain/message"
)

// Member is one participant of a conversation.
type Member struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role,omitempty"`
}

// Conversation is the summary entity backing the conversation list.
type Conversation struct {
	ID          string
	Type        string
	Title       string
	Members     []Member
	Muted       bool
	UnseenCount int

	// NextSeq and StateVersion are server counters used to validate
	// incoming state patches.
	NextSeq      int64
	StateVersion int64

	LastMessage *message.Message
	LastEventAt time.Time
}

// IsGroup reports whether this conversation renders as a group chat.
// A direct conversation that gained extra members counts as a group.
func (c *Conversation) IsGroup() bool {
	return c.Type == "group" || len(c.Members) > 2
}

// AdvanceSeq raises NextSeq to at least seen+1. Events can arrive out of
// order on an at-least-once channel, so the counter only moves forward.
func (c *Conversation) AdvanceSeq(seen int64) {
	if seen+1 > c.NextSeq {
		c.NextSeq = seen + 1
	}
}
