package wire

import "encoding/json"

// SubscribePayload subscribes or unsubscribes a set of conversations.
type SubscribePayload struct {
	ConversationIDs []string `json:"conversationIds"`
}

// ChatSendPayload carries one outgoing message.
type ChatSendPayload struct {
	ConversationID string    `json:"conversationId"`
	Text           string    `json:"text"`
	ClientEventID  string    `json:"clientEventId"`
	ReplyTo        *ReplyRef `json:"replyTo,omitempty"`
	AgentType      string    `json:"agentType,omitempty"`
}

// MarkReadPayload advances the caller's read high-water mark.
type MarkReadPayload struct {
	ConversationID string `json:"conversationId"`
	LastReadSeq    int64  `json:"lastReadSeq"`
}

// UploadInitPayload opens the audio upload handshake.
type UploadInitPayload struct {
	ConversationID string    `json:"conversationId"`
	ClientEventID  string    `json:"clientEventId"`
	MimeType       string    `json:"mimeType"`
	FileSizeBytes  int64     `json:"fileSizeBytes"`
	DurationMs     int64     `json:"durationMs"`
	ReplyTo        *ReplyRef `json:"replyTo,omitempty"`
}

// UploadCompletePayload finalizes the chunk stream.
type UploadCompletePayload struct {
	UploadID string `json:"uploadId"`
}

// NewCommand wraps a payload into an outbound frame. Marshalling our own
// payload structs cannot fail, so errors are swallowed here.
func NewCommand(frameType string, payload any) Frame {
	raw, _ := json.Marshal(payload)
	return Frame{Type: frameType, Payload: raw}
}

func NewSubscribe(conversationIDs []string) Frame {
	return NewCommand(CmdSubscribe, SubscribePayload{ConversationIDs: conversationIDs})
}

func NewUnsubscribe(conversationIDs []string) Frame {
	return NewCommand(CmdUnsubscribe, SubscribePayload{ConversationIDs: conversationIDs})
}

func NewChatSend(p ChatSendPayload) Frame {
	return NewCommand(CmdChatSend, p)
}

func NewMarkRead(conversationID string, lastReadSeq int64) Frame {
	return NewCommand(CmdMarkRead, MarkReadPayload{ConversationID: conversationID, LastReadSeq: lastReadSeq})
}

func NewReaction(p ReactionPayload) Frame {
	return NewCommand(CmdReaction, p)
}

func NewUploadInit(p UploadInitPayload) Frame {
	return NewCommand(CmdUploadInit, p)
}

func NewUploadComplete(uploadID string) Frame {
	return NewCommand(CmdUploadComplete, UploadCompletePayload{UploadID: uploadID})
}
