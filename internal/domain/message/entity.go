package message

import (
	"encoding/json"
	"time"
)

// UnconfirmedSeq marks a message the server has not yet assigned a sequence number.
const UnconfirmedSeq int64 = -1

// ReplySnapshot is a denormalized copy of the replied-to message taken at send
// time. It is deliberately not a live reference; the original may be edited or
// deleted afterwards without affecting the snapshot.
type ReplySnapshot struct {
	MessageID string `json:"messageId"`
	SenderID  string `json:"senderId"`
	Body      string `json:"body"`
}

// Message is one chat event in a conversation.
//
// Before server confirmation ID equals the locally generated ClientEventID and
// Seq is UnconfirmedSeq; confirmation overwrites both in place.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Seq            int64
	Kind           Kind
	Subtype        string
	Status         Status
	Body           string
	ClientEventID  string
	ReplyTo        *ReplySnapshot
	Payload        json.RawMessage
	CreatedAt      time.Time
	EditedAt       *time.Time
	DeletedAt      *time.Time

	// PendingSince is set on optimistic rows so a higher layer can detect
	// sends whose confirmation never arrived.
	PendingSince time.Time
}

// Confirmed reports whether the server has acknowledged this message.
func (m *Message) Confirmed() bool {
	return m.Seq != UnconfirmedSeq && m.Status != StatusPending
}

// Deleted reports whether the message was soft-deleted. The row is retained
// for ordering; only the body is gone.
func (m *Message) Deleted() bool {
	return m.DeletedAt != nil
}
