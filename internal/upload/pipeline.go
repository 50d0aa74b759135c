package upload

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"convsync/internal/transport"
	"convsync/internal/wire"
	syncerrors "convsync/pkg/errors"
	"convsync/pkg/logger"
)

// Pipeline drives the chunked audio upload handshake:
//
//	upload_init -> upload_ready -> binary chunks -> upload_complete -> upload_committed
//
// Chunks are fire-then-finalize; no per-chunk acknowledgement is awaited.
// Pending uploads are keyed by clientEventId so concurrent uploads cannot
// overwrite each other. The committed message row itself arrives later as an
// ordinary conversation event and is not injected here.
type Pipeline struct {
	sender            transport.Sender
	log               *logger.Logger
	defaultChunkBytes int
	now               func() time.Time

	pending    map[string]*PendingUpload
	byUploadID map[string]string
}

func NewPipeline(sender transport.Sender, defaultChunkBytes int, log *logger.Logger) *Pipeline {
	if defaultChunkBytes <= 0 {
		defaultChunkBytes = 64 * 1024
	}
	return &Pipeline{
		sender:            sender,
		log:               log,
		defaultChunkBytes: defaultChunkBytes,
		now:               time.Now,
		pending:           make(map[string]*PendingUpload),
		byUploadID:        make(map[string]string),
	}
}

// UploadAudio registers a pending upload and emits upload_init. Returns the
// generated clientEventId.
func (p *Pipeline) UploadAudio(conversationID string, blob []byte, mimeType string, durationMs int64, replyTo *wire.ReplyRef) (string, error) {
	if conversationID == "" {
		return "", syncerrors.ErrInvalidInput
	}

	clientEventID := uuid.New().String()
	pu := &PendingUpload{
		ClientEventID:  clientEventID,
		ConversationID: conversationID,
		Blob:           blob,
		MimeType:       mimeType,
		SizeBytes:      int64(len(blob)),
		DurationMs:     durationMs,
		MaxChunkBytes:  p.defaultChunkBytes,
		State:          StateIdle,
		CreatedAt:      p.now(),
	}
	if replyTo != nil {
		pu.ReplyToID = replyTo.MessageID
	}
	p.pending[clientEventID] = pu

	init := wire.UploadInitPayload{
		ConversationID: conversationID,
		ClientEventID:  clientEventID,
		MimeType:       mimeType,
		FileSizeBytes:  pu.SizeBytes,
		DurationMs:     durationMs,
		ReplyTo:        replyTo,
	}
	if err := p.sender.SendFrame(wire.NewUploadInit(init)); err != nil {
		delete(p.pending, clientEventID)
		return "", fmt.Errorf("upload init: %w", err)
	}
	pu.State = StateInitSent
	return clientEventID, nil
}

// HandleUploadReady consumes the server's ready frame, then immediately
// streams every chunk and finalizes with upload_complete.
func (p *Pipeline) HandleUploadReady(rp *wire.UploadReadyPayload) error {
	pu := p.match(rp)
	if pu == nil {
		p.log.Warnf("upload ready: no pending upload for uploadId=%s", rp.UploadID)
		return syncerrors.ErrNotFound
	}

	pu.UploadID = rp.UploadID
	if rp.MaxChunkBytes > 0 {
		pu.MaxChunkBytes = rp.MaxChunkBytes
	}
	pu.State = StateReady
	p.byUploadID[pu.UploadID] = pu.ClientEventID

	pu.State = StateSendingChunks
	for seq, chunk := range wire.SplitChunks(pu.Blob, pu.MaxChunkBytes) {
		if err := p.sender.SendBinary(wire.EncodeChunk(pu.UploadID, seq, chunk)); err != nil {
			return fmt.Errorf("upload chunk %d: %w", seq, err)
		}
	}

	if err := p.sender.SendFrame(wire.NewUploadComplete(pu.UploadID)); err != nil {
		return fmt.Errorf("upload complete: %w", err)
	}
	pu.State = StateCompleteSent
	return nil
}

// HandleChunkAck records progress. Acks are informational only and never
// gate chunk transmission.
func (p *Pipeline) HandleChunkAck(ack *wire.UploadChunkAckPayload) {
	if clientEventID, ok := p.byUploadID[ack.UploadID]; ok {
		p.log.Debugf("upload %s: chunk %d acked", clientEventID, ack.Seq)
	}
}

// HandleCommitted finishes the upload and discards the pending record.
func (p *Pipeline) HandleCommitted(c *wire.UploadCommittedPayload) {
	clientEventID, ok := p.byUploadID[c.UploadID]
	if !ok {
		return
	}
	if pu := p.pending[clientEventID]; pu != nil {
		pu.State = StateCommitted
	}
	delete(p.pending, clientEventID)
	delete(p.byUploadID, c.UploadID)
	if c.Deduped {
		p.log.Infof("upload %s: server deduped, message %s seq %d", clientEventID, c.MessageID, c.Seq)
	}
}

// Abort discards a pending upload that will never be resumed.
func (p *Pipeline) Abort(clientEventID string) {
	pu, ok := p.pending[clientEventID]
	if !ok {
		return
	}
	if pu.UploadID != "" {
		delete(p.byUploadID, pu.UploadID)
	}
	pu.State = StateIdle
	delete(p.pending, clientEventID)
}

// State reports a pending upload's state; StateIdle when unknown.
func (p *Pipeline) State(clientEventID string) State {
	if pu, ok := p.pending[clientEventID]; ok {
		return pu.State
	}
	return StateIdle
}

// StalePending returns uploads that have waited longer than olderThan without
// reaching committed. No timeout is built in; the caller decides what to do.
func (p *Pipeline) StalePending(olderThan time.Duration) []*PendingUpload {
	cutoff := p.now().Add(-olderThan)
	var stale []*PendingUpload
	for _, pu := range p.pending {
		if pu.CreatedAt.Before(cutoff) {
			stale = append(stale, pu)
		}
	}
	return stale
}

// match resolves a ready frame to its pending upload, preferring the
// clientEventId correlation and falling back to uploadId for retransmits.
func (p *Pipeline) match(rp *wire.UploadReadyPayload) *PendingUpload {
	if rp.ClientEventID != "" {
		return p.pending[rp.ClientEventID]
	}
	if clientEventID, ok := p.byUploadID[rp.UploadID]; ok {
		return p.pending[clientEventID]
	}
	return nil
}
