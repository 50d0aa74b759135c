package upload

import "time"

// State tracks one upload attempt through the init/ready/chunk/complete
// handshake.
type State string

const (
	StateIdle          State = "idle"
	StateInitSent      State = "init_sent"
	StateReady         State = "ready"
	StateSendingChunks State = "sending_chunks"
	StateCompleteSent  State = "complete_sent"
	StateCommitted     State = "committed"
)

// PendingUpload describes an audio blob waiting for the server to assign an
// upload id and chunk size. One exists per in-flight clientEventId.
type PendingUpload struct {
	ClientEventID  string
	ConversationID string
	Blob           []byte
	MimeType       string
	SizeBytes      int64
	DurationMs     int64
	ReplyToID      string

	UploadID      string
	MaxChunkBytes int
	State         State
	CreatedAt     time.Time
}
