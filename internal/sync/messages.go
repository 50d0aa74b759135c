package sync

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"convsync/internal/domain/message"
	"convsync/internal/rest"
	"convsync/internal/transport"
	"convsync/internal/wire"
	"convsync/pkg/logger"
)

// MessageAPI is the REST surface the synchronizer needs.
type MessageAPI interface {
	ListMessages(ctx context.Context, conversationID string) ([]rest.MessageRecord, error)
	EditMessage(ctx context.Context, conversationID, messageID, text string) (*rest.MessageRecord, error)
	DeleteMessage(ctx context.Context, conversationID, messageID string) (*rest.MessageRecord, error)
}

// MessageSynchronizer owns the ordered message list for one conversation.
// Optimistic sends append a pending row immediately; the matching server
// event later overwrites that row in place. All mutations happen on the
// frame-handling goroutine, so no locking is needed.
type MessageSynchronizer struct {
	conversationID string
	localUserID    string
	registry       []Decorator

	api    MessageAPI
	sender transport.Sender
	log    *logger.Logger
	now    func() time.Time

	messages []*message.Message
}

func NewMessageSynchronizer(conversationID, localUserID string, registry []Decorator, api MessageAPI, sender transport.Sender, log *logger.Logger) *MessageSynchronizer {
	return &MessageSynchronizer{
		conversationID: conversationID,
		localUserID:    localUserID,
		registry:       registry,
		api:            api,
		sender:         sender,
		log:            log,
		now:            time.Now,
	}
}

// Load fetches the initial message page and materializes it in ascending seq
// order. On failure the list stays empty and the error is surfaced; there is
// no built-in retry.
func (s *MessageSynchronizer) Load(ctx context.Context) error {
	records, err := s.api.ListMessages(ctx, s.conversationID)
	if err != nil {
		s.messages = nil
		return fmt.Errorf("load messages for %s: %w", s.conversationID, err)
	}

	msgs := make([]*message.Message, 0, len(records))
	for i := range records {
		msgs = append(msgs, messageFromRecord(&records[i]))
	}
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Seq < msgs[j].Seq })
	s.messages = msgs
	return nil
}

// Send appends an optimistic pending row and emits the chat:send command.
// Returns the generated clientEventId.
func (s *MessageSynchronizer) Send(text, replyToID string) (string, error) {
	clientEventID := uuid.New().String()

	var replyTo *message.ReplySnapshot
	if replyToID != "" {
		if target := s.byID(replyToID); target != nil {
			replyTo = &message.ReplySnapshot{
				MessageID: target.ID,
				SenderID:  target.SenderID,
				Body:      target.Body,
			}
		}
	}

	decorators := ExtractDecorators(text, s.registry)
	if !decorators.Valid {
		s.log.Warnf("message send: ambiguous decorator tokens in text, proceeding with %q", decorators.FirstID)
	}

	now := s.now()
	s.messages = append(s.messages, &message.Message{
		ID:             clientEventID,
		ConversationID: s.conversationID,
		SenderID:       s.localUserID,
		Seq:            message.UnconfirmedSeq,
		Kind:           message.KindMessage,
		Status:         message.StatusPending,
		Body:           text,
		ClientEventID:  clientEventID,
		ReplyTo:        replyTo,
		CreatedAt:      now,
		PendingSince:   now,
	})

	cmd := wire.ChatSendPayload{
		ConversationID: s.conversationID,
		Text:           text,
		ClientEventID:  clientEventID,
		AgentType:      decorators.FirstID,
	}
	if replyTo != nil {
		cmd.ReplyTo = &wire.ReplyRef{MessageID: replyTo.MessageID, SenderID: replyTo.SenderID, Body: replyTo.Body}
	}
	if err := s.sender.SendFrame(wire.NewChatSend(cmd)); err != nil {
		return clientEventID, fmt.Errorf("send message: %w", err)
	}
	return clientEventID, nil
}

// ApplyServerEvent reconciles one inbound conversation event against the
// local list. Routing order: clientEventId confirmation, agent upsert, edit,
// delete, then deduplicated insert.
func (s *MessageSynchronizer) ApplyServerEvent(p *wire.EventPayload) {
	ev := &p.Event

	// 1. Confirmation of a still-pending optimistic row.
	if ev.ClientEventID != "" {
		if local := s.pendingByClientEventID(ev.ClientEventID); local != nil {
			s.confirm(local, p)
			return
		}
	}

	// 2. Agent/decorator events upsert by server id as their status advances.
	if ev.Subtype == wire.SubtypeAgentDecorator || message.Kind(ev.Kind) == message.KindAgent {
		s.applyAgentEvent(p)
		return
	}

	// 3. Soft edit.
	if ev.EditedAt != nil && ev.DeletedAt == nil {
		if row := s.byID(ev.ID); row != nil {
			row.Body = ev.Body
			row.EditedAt = ev.EditedAt
		}
		return
	}

	// 4. Soft delete: body cleared, row retained for ordering.
	if ev.DeletedAt != nil {
		if row := s.byID(ev.ID); row != nil {
			row.Body = ""
			row.DeletedAt = ev.DeletedAt
		}
		return
	}

	// 5. New message from another participant, or an echo already applied.
	if s.byID(ev.ID) == nil {
		s.insertConfirmed(messageFromEvent(p))
	}
}

func (s *MessageSynchronizer) applyAgentEvent(p *wire.EventPayload) {
	ev := &p.Event
	existing := s.byID(ev.ID)

	if ev.Status == "pending" {
		if existing == nil {
			s.insertConfirmed(messageFromEvent(p))
			return
		}
		existing.Status = message.StatusPending
		existing.Body = ev.Body
		existing.Payload = ev.Payload
		return
	}

	// Terminal status replaces the whole row with the confirmed event.
	replacement := messageFromEvent(p)
	if existing == nil {
		s.insertConfirmed(replacement)
		return
	}
	*existing = *replacement
}

// Edit updates a message via REST and patches the local row from the
// response. There is no optimistic mutation; failures leave state untouched.
func (s *MessageSynchronizer) Edit(ctx context.Context, messageID, newText string) error {
	record, err := s.api.EditMessage(ctx, s.conversationID, messageID, newText)
	if err != nil {
		return fmt.Errorf("edit message %s: %w", messageID, err)
	}
	if row := s.byID(messageID); row != nil {
		row.Body = record.Body
		row.EditedAt = record.EditedAt
	}
	return nil
}

// Delete soft-deletes a message via REST and patches the local row.
func (s *MessageSynchronizer) Delete(ctx context.Context, messageID string) error {
	record, err := s.api.DeleteMessage(ctx, s.conversationID, messageID)
	if err != nil {
		return fmt.Errorf("delete message %s: %w", messageID, err)
	}
	if row := s.byID(messageID); row != nil {
		row.Body = ""
		row.DeletedAt = record.DeletedAt
	}
	return nil
}

// Messages returns the display list: confirmed rows ascending by seq, pending
// rows at the tail in send order.
func (s *MessageSynchronizer) Messages() []*message.Message {
	out := make([]*message.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// StalePending returns pending rows whose confirmation has not arrived within
// olderThan. The caller decides whether to retry or surface failure.
func (s *MessageSynchronizer) StalePending(olderThan time.Duration) []*message.Message {
	cutoff := s.now().Add(-olderThan)
	var stale []*message.Message
	for _, m := range s.messages {
		if m.Status == message.StatusPending && m.PendingSince.Before(cutoff) {
			stale = append(stale, m)
		}
	}
	return stale
}

func (s *MessageSynchronizer) confirm(local *message.Message, p *wire.EventPayload) {
	ev := &p.Event
	local.ID = ev.ID
	local.Seq = p.Seq
	local.SenderID = ev.SenderID
	local.Status = message.StatusFromWire(ev.Status)
	local.CreatedAt = ev.CreatedAt
	local.EditedAt = ev.EditedAt
	local.DeletedAt = ev.DeletedAt
	if ev.Body != "" {
		local.Body = ev.Body
	}
	local.PendingSince = time.Time{}
}

// insertConfirmed places a confirmed row so the confirmed prefix stays
// ascending by seq while pending rows keep the tail.
func (s *MessageSynchronizer) insertConfirmed(m *message.Message) {
	idx := len(s.messages)
	for i, existing := range s.messages {
		if existing.Seq == message.UnconfirmedSeq || existing.Seq > m.Seq {
			idx = i
			break
		}
	}
	s.messages = append(s.messages, nil)
	copy(s.messages[idx+1:], s.messages[idx:])
	s.messages[idx] = m
}

func (s *MessageSynchronizer) byID(id string) *message.Message {
	for _, m := range s.messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (s *MessageSynchronizer) pendingByClientEventID(clientEventID string) *message.Message {
	for _, m := range s.messages {
		if m.ClientEventID == clientEventID && m.Status == message.StatusPending {
			return m
		}
	}
	return nil
}

func messageFromRecord(r *rest.MessageRecord) *message.Message {
	m := &message.Message{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		SenderID:       r.SenderID,
		Seq:            r.Seq,
		Kind:           message.Kind(r.Kind),
		Subtype:        r.Subtype,
		Status:         message.StatusFromWire(r.Status),
		Body:           r.Body,
		ClientEventID:  r.ClientEventID,
		Payload:        r.Payload,
		CreatedAt:      r.CreatedAt,
		EditedAt:       r.EditedAt,
		DeletedAt:      r.DeletedAt,
	}
	if r.ReplyTo != nil {
		m.ReplyTo = &message.ReplySnapshot{MessageID: r.ReplyTo.MessageID, SenderID: r.ReplyTo.SenderID, Body: r.ReplyTo.Body}
	}
	return m
}

func messageFromEvent(p *wire.EventPayload) *message.Message {
	ev := &p.Event
	m := &message.Message{
		ID:             ev.ID,
		ConversationID: p.ConversationID,
		SenderID:       ev.SenderID,
		Seq:            p.Seq,
		Kind:           message.Kind(ev.Kind),
		Subtype:        ev.Subtype,
		Status:         message.StatusFromWire(ev.Status),
		Body:           ev.Body,
		ClientEventID:  ev.ClientEventID,
		Payload:        ev.Payload,
		CreatedAt:      ev.CreatedAt,
		EditedAt:       ev.EditedAt,
		DeletedAt:      ev.DeletedAt,
	}
	if ev.ReplyTo != nil {
		m.ReplyTo = &message.ReplySnapshot{MessageID: ev.ReplyTo.MessageID, SenderID: ev.ReplyTo.SenderID, Body: ev.ReplyTo.Body}
	}
	if m.Kind == "" {
		m.Kind = message.KindMessage
	}
	return m
}
