package sync

import (
	"context"
	"fmt"

	"convsync/internal/rest"
	"convsync/internal/transport"
	"convsync/internal/wire"
)

// ReceiptAPI is the REST surface the tracker needs.
type ReceiptAPI interface {
	ReadBy(ctx context.Context, conversationID string) ([]rest.ReadMark, error)
}

// ReadReceiptTracker owns the seq-to-readers index for one conversation.
//
// The server only reports each user's high-water mark; the tracker expands
// that into per-seq reader sets so that once a user has read seq n they are
// recorded on every seq at or below n. Updates are additive only.
type ReadReceiptTracker struct {
	conversationID string
	localUserID    string

	api    ReceiptAPI
	sender transport.Sender

	readers     map[int64]map[string]bool
	lastSentSeq int64
}

func NewReadReceiptTracker(conversationID, localUserID string, api ReceiptAPI, sender transport.Sender) *ReadReceiptTracker {
	return &ReadReceiptTracker{
		conversationID: conversationID,
		localUserID:    localUserID,
		api:            api,
		sender:         sender,
		readers:        make(map[int64]map[string]bool),
	}
}

// Load hydrates the index from the read-by table.
func (t *ReadReceiptTracker) Load(ctx context.Context) error {
	marks, err := t.api.ReadBy(ctx, t.conversationID)
	if err != nil {
		return fmt.Errorf("load read receipts for %s: %w", t.conversationID, err)
	}
	for _, mark := range marks {
		for _, userID := range mark.UserIDs {
			t.addReader(mark.Seq, userID)
		}
	}
	return nil
}

// MarkAsRead emits a mark_read command for seq. Repeated or regressing calls
// are dropped by a process-local monotonic guard.
func (t *ReadReceiptTracker) MarkAsRead(seq int64) error {
	if seq <= t.lastSentSeq {
		return nil
	}
	t.lastSentSeq = seq
	return t.sender.SendFrame(wire.NewMarkRead(t.conversationID, seq))
}

// ApplyServerEvent merges one read_updated frame. The server reports only the
// high-water mark, so every seq from 1 through lastReadSeq gains the reader.
func (t *ReadReceiptTracker) ApplyServerEvent(p *wire.ReadUpdatedPayload) {
	if p.ConversationID != t.conversationID {
		return
	}
	for s := int64(1); s <= p.LastReadSeq; s++ {
		t.addReader(s, p.UserID)
	}
}

// ReadersOf returns the user ids recorded as having read seq.
func (t *ReadReceiptTracker) ReadersOf(seq int64) []string {
	set := t.readers[seq]
	out := make([]string, 0, len(set))
	for userID := range set {
		out = append(out, userID)
	}
	return out
}

// HasRead reports whether userID is recorded on seq.
func (t *ReadReceiptTracker) HasRead(seq int64, userID string) bool {
	return t.readers[seq][userID]
}

func (t *ReadReceiptTracker) addReader(seq int64, userID string) {
	set, ok := t.readers[seq]
	if !ok {
		set = make(map[string]bool)
		t.readers[seq] = set
	}
	set[userID] = true
}
