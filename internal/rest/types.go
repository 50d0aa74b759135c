package rest

import (
	"encoding/json"
	"time"
)

// MessageRecord is the REST shape of one message.
type MessageRecord struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversationId"`
	SenderID       string          `json:"senderId"`
	Seq            int64           `json:"seq"`
	Kind           string          `json:"kind"`
	Subtype        string          `json:"subtype,omitempty"`
	Status         string          `json:"status"`
	Body           string          `json:"body"`
	ClientEventID  string          `json:"clientEventId,omitempty"`
	ReplyTo        *ReplyRecord    `json:"replyTo,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	EditedAt       *time.Time      `json:"editedAt,omitempty"`
	DeletedAt      *time.Time      `json:"deletedAt,omitempty"`
}

type ReplyRecord struct {
	MessageID string `json:"messageId"`
	SenderID  string `json:"senderId"`
	Body      string `json:"body"`
}

// ConversationRecord is the REST shape of one conversation summary.
type ConversationRecord struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Title        string         `json:"title"`
	Members      []MemberRecord `json:"members"`
	Muted        bool           `json:"muted"`
	UnreadCount  int            `json:"unread_count"`
	NextSeq      int64          `json:"nextSeq"`
	StateVersion int64          `json:"stateVersion"`
	LastMessage  *MessageRecord `json:"lastMessage,omitempty"`
	LastEventAt  time.Time      `json:"lastEventAt"`
}

type MemberRecord struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role,omitempty"`
}

// ReadMark is one row of the read-by table: who has read up to which seq.
type ReadMark struct {
	Seq     int64    `json:"seq"`
	UserIDs []string `json:"userIds"`
}

// ActivityRecord is one call/meeting activity entry.
type ActivityRecord struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId"`
	Subtype        string    `json:"subtype"`
	CreatedAt      time.Time `json:"createdAt"`
}
