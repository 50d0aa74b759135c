package wire

import (
	"encoding/json"
	"time"
)

// Inbound frame types (server to client).
const (
	FrameConnected       = "conversations:connected"
	FrameUpsert          = "conversations:upsert"
	FrameEvent           = "conversation:event"
	FrameReadUpdated     = "conversation:read_updated"
	FrameReaction        = "conversation:reaction"
	FrameCallInvite      = "conversation:call_invite"
	FrameUploadReady     = "audio:upload_ready"
	FrameUploadChunkAck  = "audio:upload_chunk_ack"
	FrameUploadCommitted = "audio:upload_committed"
)

// Outbound command types (client to server).
const (
	CmdSubscribe      = "conversations:subscribe"
	CmdUnsubscribe    = "conversations:unsubscribe"
	CmdChatSend       = "chat:send"
	CmdMarkRead       = "conversation:mark_read"
	CmdReaction       = "conversation:reaction"
	CmdUploadInit     = "audio:upload_init"
	CmdUploadComplete = "audio:upload_complete"
)

// Event subtypes this layer dispatches on.
const (
	SubtypeAgentDecorator = "ai-decorator"
	SubtypeMemberRemoved  = "member_removed"
	SubtypeRedirected     = "conversation_redirected_to_group"
	SubtypeStateChanged   = "state_changed"
	SubtypeActivityJoined = "activity_joined"
)

// Frame is the envelope every WebSocket text frame uses: a type discriminator
// plus an opaque payload decoded by the component that owns the type.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode unmarshals the frame payload into v.
func (f Frame) Decode(v any) error {
	if len(f.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(f.Payload, v)
}

// ParseFrame decodes one raw text frame.
func ParseFrame(data []byte) (Frame, error) {
	var f Frame
	err := json.Unmarshal(data, &f)
	return f, err
}

// ConnectedPayload is the session handshake.
type ConnectedPayload struct {
	SessionID                    string   `json:"sessionId"`
	AutoSubscribedConversationIDs []string `json:"autoSubscribedConversationIds"`
}

// Event is the inner domain event wrapped by a conversation:event frame.
type Event struct {
	ID            string          `json:"id"`
	Kind          string          `json:"kind"`
	Subtype       string          `json:"subtype,omitempty"`
	SenderID      string          `json:"senderId"`
	ClientEventID string          `json:"clientEventId,omitempty"`
	Body          string          `json:"body,omitempty"`
	Status        string          `json:"status,omitempty"`
	ReplyTo       *ReplyRef       `json:"replyTo,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	EditedAt      *time.Time      `json:"editedAt,omitempty"`
	DeletedAt     *time.Time      `json:"deletedAt,omitempty"`
}

// ReplyRef is the denormalized reply snapshot carried on the wire.
type ReplyRef struct {
	MessageID string `json:"messageId"`
	SenderID  string `json:"senderId"`
	Body      string `json:"body"`
}

// EventPayload wraps one domain event with its conversation coordinates.
type EventPayload struct {
	ConversationID string `json:"conversationId"`
	Seq            int64  `json:"seq"`
	StateVersion   int64  `json:"stateVersion"`
	Event          Event  `json:"event"`
}

// ReadUpdatedPayload reports a user's read high-water mark.
type ReadUpdatedPayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	LastReadSeq    int64  `json:"lastReadSeq"`
}

// UpsertPayload announces a created or changed conversation. Record may be
// absent, in which case the client fetches the full record over REST.
type UpsertPayload struct {
	ConversationID string          `json:"conversationId"`
	Record         json.RawMessage `json:"record,omitempty"`
}

// ReactionPayload is an ephemeral reaction or raise-hand broadcast.
type ReactionPayload struct {
	ConversationID string `json:"conversationId"`
	ReactionType   string `json:"reactionType"`
	Identity       string `json:"identity"`
	Text           string `json:"text,omitempty"`
}

// CallInvitePayload signals an incoming call.
type CallInvitePayload struct {
	ConversationID string `json:"conversationId"`
	CallerID       string `json:"callerId"`
	RoomName       string `json:"roomName,omitempty"`
}

// UploadReadyPayload confirms an upload_init and assigns the chunking params.
type UploadReadyPayload struct {
	ClientEventID string `json:"clientEventId"`
	UploadID      string `json:"uploadId"`
	MaxChunkBytes int    `json:"maxChunkBytes"`
}

// UploadChunkAckPayload is informational progress only.
type UploadChunkAckPayload struct {
	UploadID string `json:"uploadId"`
	Seq      int    `json:"seq"`
}

// UploadCommittedPayload marks the server-side completion of an upload.
type UploadCommittedPayload struct {
	UploadID  string `json:"uploadId"`
	MessageID string `json:"messageId"`
	Seq       int64  `json:"seq"`
	Deduped   bool   `json:"deduped"`
}
