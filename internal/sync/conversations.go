package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"convsync/internal/domain/conversation"
	"convsync/internal/domain/message"
	"convsync/internal/rest"
	"convsync/internal/wire"
	"convsync/pkg/logger"
)

// ConversationAPI is the REST surface the list synchronizer needs.
type ConversationAPI interface {
	ListConversations(ctx context.Context) ([]rest.ConversationRecord, error)
	GetConversation(ctx context.Context, id string) (*rest.ConversationRecord, error)
}

// Notifier receives notification signals for inbound messages in inactive,
// unmuted conversations. The UI layer owns presentation.
type Notifier interface {
	Notify(conversationID string, msg *message.Message)
}

// NopNotifier discards all signals.
type NopNotifier struct{}

func (NopNotifier) Notify(string, *message.Message) {}

// ConversationList keeps the set of conversation summaries patched by the
// event stream: last message, unseen counts, membership changes.
type ConversationList struct {
	localUserID string

	api      ConversationAPI
	notifier Notifier
	log      *logger.Logger

	conversations []*conversation.Conversation
	activeID      string
}

func NewConversationList(localUserID string, api ConversationAPI, notifier Notifier, log *logger.Logger) *ConversationList {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &ConversationList{
		localUserID: localUserID,
		api:         api,
		notifier:    notifier,
		log:         log,
	}
}

// Load hydrates the full list.
func (l *ConversationList) Load(ctx context.Context) error {
	records, err := l.api.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("load conversations: %w", err)
	}
	convs := make([]*conversation.Conversation, 0, len(records))
	for i := range records {
		convs = append(convs, conversationFromRecord(&records[i]))
	}
	l.conversations = convs
	return nil
}

// ApplyUpsert inserts or replaces one conversation. New conversations are
// prepended; a missing embedded record is fetched over REST.
func (l *ConversationList) ApplyUpsert(ctx context.Context, p *wire.UpsertPayload) {
	var record rest.ConversationRecord
	if len(p.Record) > 0 {
		if err := json.Unmarshal(p.Record, &record); err != nil {
			l.log.Warnf("conversation upsert: bad embedded record for %s: %v", p.ConversationID, err)
			return
		}
	} else {
		fetched, err := l.api.GetConversation(ctx, p.ConversationID)
		if err != nil {
			l.log.Errorf("conversation upsert: fetch %s failed: %v", p.ConversationID, err)
			return
		}
		record = *fetched
	}

	fresh := conversationFromRecord(&record)
	for i, existing := range l.conversations {
		if existing.ID == fresh.ID {
			l.conversations[i] = fresh
			return
		}
	}
	l.conversations = append([]*conversation.Conversation{fresh}, l.conversations...)
}

// ApplyEvent patches the list from one conversation:event frame.
func (l *ConversationList) ApplyEvent(p *wire.EventPayload) {
	conv := l.byID(p.ConversationID)
	ev := &p.Event

	switch {
	case ev.Subtype == wire.SubtypeRedirected:
		l.applyRedirect(ev)
		return
	case message.Kind(ev.Kind) == message.KindSystem && ev.Subtype == wire.SubtypeMemberRemoved:
		l.applyMemberRemoved(p)
		return
	case message.Kind(ev.Kind) == message.KindState && ev.Subtype == wire.SubtypeStateChanged:
		if conv != nil {
			l.applyStateChange(conv, ev)
		}
		return
	}

	if conv == nil {
		return
	}

	if message.Kind(ev.Kind) == message.KindMessage || message.Kind(ev.Kind) == message.KindAgent {
		msg := messageFromEvent(p)
		if ev.SenderID != l.localUserID && conv.ID != l.activeID {
			conv.UnseenCount++
			if !conv.Muted {
				l.notifier.Notify(conv.ID, msg)
			}
		}
		conv.LastMessage = msg
		conv.LastEventAt = ev.CreatedAt
	} else {
		conv.LastEventAt = ev.CreatedAt
	}
	conv.AdvanceSeq(p.Seq)
	if p.StateVersion > conv.StateVersion {
		conv.StateVersion = p.StateVersion
	}
}

// ApplyReadUpdated resets the unseen count when the local user's read mark
// advances on another device or tab.
func (l *ConversationList) ApplyReadUpdated(p *wire.ReadUpdatedPayload) {
	if p.UserID != l.localUserID {
		return
	}
	if conv := l.byID(p.ConversationID); conv != nil {
		conv.UnseenCount = 0
	}
}

// OpenConversation marks a conversation active and clears its unseen count.
// Emitting the mark_read command is the caller's job via the receipt tracker.
func (l *ConversationList) OpenConversation(id string) {
	l.activeID = id
	if conv := l.byID(id); conv != nil {
		conv.UnseenCount = 0
	}
}

// ActiveID returns the currently open conversation id, or "".
func (l *ConversationList) ActiveID() string {
	return l.activeID
}

// Conversations returns the current list snapshot.
func (l *ConversationList) Conversations() []*conversation.Conversation {
	out := make([]*conversation.Conversation, len(l.conversations))
	copy(out, l.conversations)
	return out
}

// Get returns one conversation by id, or nil.
func (l *ConversationList) Get(id string) *conversation.Conversation {
	return l.byID(id)
}

func (l *ConversationList) applyRedirect(ev *wire.Event) {
	var payload struct {
		TargetConversationID string `json:"targetConversationId"`
	}
	if err := json.Unmarshal(ev.Payload, &payload); err != nil || payload.TargetConversationID == "" {
		return
	}
	if l.byID(payload.TargetConversationID) != nil {
		l.activeID = payload.TargetConversationID
	}
}

func (l *ConversationList) applyMemberRemoved(p *wire.EventPayload) {
	var payload struct {
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(p.Event.Payload, &payload); err != nil {
		return
	}
	if payload.UserID != l.localUserID {
		return
	}
	for i, conv := range l.conversations {
		if conv.ID == p.ConversationID {
			l.conversations = append(l.conversations[:i], l.conversations[i+1:]...)
			break
		}
	}
	if l.activeID == p.ConversationID {
		l.activeID = ""
	}
}

// applyStateChange merges payload.after into the conversation. Only fields
// present in the patch are touched.
func (l *ConversationList) applyStateChange(conv *conversation.Conversation, ev *wire.Event) {
	var payload struct {
		After struct {
			Title   *string             `json:"title"`
			Type    *string             `json:"type"`
			Muted   *bool               `json:"muted"`
			Members []rest.MemberRecord `json:"members"`
		} `json:"after"`
	}
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		l.log.Warnf("state_changed: bad payload for %s: %v", conv.ID, err)
		return
	}
	if payload.After.Title != nil {
		conv.Title = *payload.After.Title
	}
	if payload.After.Type != nil {
		conv.Type = *payload.After.Type
	}
	if payload.After.Muted != nil {
		conv.Muted = *payload.After.Muted
	}
	if payload.After.Members != nil {
		conv.Members = membersFromRecords(payload.After.Members)
	}
}

func (l *ConversationList) byID(id string) *conversation.Conversation {
	for _, conv := range l.conversations {
		if conv.ID == id {
			return conv
		}
	}
	return nil
}

func conversationFromRecord(r *rest.ConversationRecord) *conversation.Conversation {
	conv := &conversation.Conversation{
		ID:           r.ID,
		Type:         r.Type,
		Title:        r.Title,
		Members:      membersFromRecords(r.Members),
		Muted:        r.Muted,
		UnseenCount:  r.UnreadCount,
		NextSeq:      r.NextSeq,
		StateVersion: r.StateVersion,
		LastEventAt:  r.LastEventAt,
	}
	if r.LastMessage != nil {
		conv.LastMessage = messageFromRecord(r.LastMessage)
	}
	return conv
}

func membersFromRecords(records []rest.MemberRecord) []conversation.Member {
	members := make([]conversation.Member, 0, len(records))
	for _, m := range records {
		members = append(members, conversation.Member{UserID: m.UserID, DisplayName: m.DisplayName, Role: m.Role})
	}
	return members
}
