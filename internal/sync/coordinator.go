package sync

import (
	"context"
	"encoding/json"
	"time"

	"convsync/internal/call"
	"convsync/internal/transport"
	"convsync/internal/upload"
	"convsync/internal/wire"
	"convsync/pkg/logger"
)

// API is the full REST collaborator surface the coordinator wires into its
// components. *rest.Client satisfies it.
type API interface {
	ConversationAPI
	MessageAPI
	ReceiptAPI
}

// Options configures a Coordinator.
type Options struct {
	LocalUserID       string
	DedupWindow       time.Duration
	DefaultChunkBytes int
	ParticipantExpiry time.Duration
	Decorators        []Decorator
	Notifier          Notifier

	// OnReaction and OnCallInvite receive ephemeral broadcasts that carry no
	// durable state. Nil handlers drop them.
	OnReaction   func(p wire.ReactionPayload)
	OnCallInvite func(p wire.CallInvitePayload)
}

// Coordinator routes inbound frames to the owning component. The transport
// delivers one frame at a time, so every mutation below runs serialized on
// the frame-handling goroutine.
//
// The dedup cache is owned here with an explicit lifecycle; a second
// coordinator (for example under test) never shares its state.
type Coordinator struct {
	opts   Options
	api    API
	sender transport.Sender
	log    *logger.Logger
	ctx    context.Context

	dedup         *DedupCache
	conversations *ConversationList
	uploads       *upload.Pipeline
	pendingCalls  *call.PendingTracker

	sessionID string
	messages  map[string]*MessageSynchronizer
	receipts  map[string]*ReadReceiptTracker
}

func NewCoordinator(ctx context.Context, opts Options, api API, sender transport.Sender, log *logger.Logger) *Coordinator {
	return &Coordinator{
		opts:          opts,
		api:           api,
		sender:        sender,
		log:           log,
		ctx:           ctx,
		dedup:         NewDedupCache(opts.DedupWindow),
		conversations: NewConversationList(opts.LocalUserID, api, opts.Notifier, log),
		uploads:       upload.NewPipeline(sender, opts.DefaultChunkBytes, log),
		pendingCalls:  call.NewPendingTracker(opts.ParticipantExpiry),
		messages:      make(map[string]*MessageSynchronizer),
		receipts:      make(map[string]*ReadReceiptTracker),
	}
}

// HandleFrame is the transport.FrameHandler entry point.
func (c *Coordinator) HandleFrame(f wire.Frame) {
	if !c.dedup.ShouldProcess(f) {
		c.log.Debugf("coordinator: dropped duplicate %s frame", f.Type)
		return
	}

	switch f.Type {
	case wire.FrameConnected:
		c.handleConnected(f)
	case wire.FrameUpsert:
		var p wire.UpsertPayload
		if err := f.Decode(&p); err != nil {
			c.log.Warnf("coordinator: bad upsert payload: %v", err)
			return
		}
		c.conversations.ApplyUpsert(c.ctx, &p)
	case wire.FrameEvent:
		c.handleEvent(f)
	case wire.FrameReadUpdated:
		var p wire.ReadUpdatedPayload
		if err := f.Decode(&p); err != nil {
			c.log.Warnf("coordinator: bad read_updated payload: %v", err)
			return
		}
		c.conversations.ApplyReadUpdated(&p)
		if tracker, ok := c.receipts[p.ConversationID]; ok {
			tracker.ApplyServerEvent(&p)
		}
	case wire.FrameReaction:
		if c.opts.OnReaction != nil {
			var p wire.ReactionPayload
			if err := f.Decode(&p); err == nil {
				c.opts.OnReaction(p)
			}
		}
	case wire.FrameCallInvite:
		if c.opts.OnCallInvite != nil {
			var p wire.CallInvitePayload
			if err := f.Decode(&p); err == nil {
				c.opts.OnCallInvite(p)
			}
		}
	case wire.FrameUploadReady:
		var p wire.UploadReadyPayload
		if err := f.Decode(&p); err != nil {
			c.log.Warnf("coordinator: bad upload_ready payload: %v", err)
			return
		}
		if err := c.uploads.HandleUploadReady(&p); err != nil {
			c.log.Errorf("coordinator: upload ready failed: %v", err)
		}
	case wire.FrameUploadChunkAck:
		var p wire.UploadChunkAckPayload
		if err := f.Decode(&p); err == nil {
			c.uploads.HandleChunkAck(&p)
		}
	case wire.FrameUploadCommitted:
		var p wire.UploadCommittedPayload
		if err := f.Decode(&p); err == nil {
			c.uploads.HandleCommitted(&p)
		}
	default:
		c.log.Debugf("coordinator: ignoring unknown frame type %q", f.Type)
	}
}

func (c *Coordinator) handleConnected(f wire.Frame) {
	var p wire.ConnectedPayload
	if err := f.Decode(&p); err != nil {
		c.log.Warnf("coordinator: bad connected payload: %v", err)
		return
	}
	c.sessionID = p.SessionID
	if len(p.AutoSubscribedConversationIDs) > 0 {
		if err := c.sender.SendFrame(wire.NewSubscribe(p.AutoSubscribedConversationIDs)); err != nil {
			c.log.Errorf("coordinator: subscribe failed: %v", err)
		}
	}
}

func (c *Coordinator) handleEvent(f wire.Frame) {
	var p wire.EventPayload
	if err := f.Decode(&p); err != nil {
		c.log.Warnf("coordinator: bad event payload: %v", err)
		return
	}

	c.conversations.ApplyEvent(&p)

	if p.Event.Subtype == wire.SubtypeActivityJoined {
		c.pendingCalls.Remove(joinedUserID(&p.Event))
	}

	// Message caches are keyed by conversation id, so events for a
	// conversation whose synchronizer is not open are simply not applied
	// here; the next Load picks them up.
	if s, ok := c.messages[p.ConversationID]; ok {
		s.ApplyServerEvent(&p)
	}
}

// OpenConversation makes a conversation active, materializing (and loading)
// its message synchronizer and receipt tracker on first open.
func (c *Coordinator) OpenConversation(ctx context.Context, conversationID string) (*MessageSynchronizer, *ReadReceiptTracker, error) {
	c.conversations.OpenConversation(conversationID)

	msgs, ok := c.messages[conversationID]
	if !ok {
		msgs = NewMessageSynchronizer(conversationID, c.opts.LocalUserID, c.opts.Decorators, c.api, c.sender, c.log)
		if err := msgs.Load(ctx); err != nil {
			return nil, nil, err
		}
		c.messages[conversationID] = msgs
	}

	receipts, ok := c.receipts[conversationID]
	if !ok {
		receipts = NewReadReceiptTracker(conversationID, c.opts.LocalUserID, c.api, c.sender)
		if err := receipts.Load(ctx); err != nil {
			return nil, nil, err
		}
		c.receipts[conversationID] = receipts
	}

	return msgs, receipts, nil
}

// Conversations exposes the list synchronizer.
func (c *Coordinator) Conversations() *ConversationList {
	return c.conversations
}

// Uploads exposes the audio upload pipeline.
func (c *Coordinator) Uploads() *upload.Pipeline {
	return c.uploads
}

// PendingCalls exposes the pending-participant tracker.
func (c *Coordinator) PendingCalls() *call.PendingTracker {
	return c.pendingCalls
}

// SessionID returns the id from the last connected handshake.
func (c *Coordinator) SessionID() string {
	return c.sessionID
}

// Dispose tears down timers and dedup state. The coordinator must not be
// used afterwards.
func (c *Coordinator) Dispose() {
	c.dedup.Dispose()
	c.pendingCalls.Clear()
}

// joinedUserID finds which user an activity_joined event names, preferring
// the explicit payload field over the event sender.
func joinedUserID(ev *wire.Event) string {
	var payload struct {
		UserID string `json:"userId"`
	}
	if len(ev.Payload) > 0 && json.Unmarshal(ev.Payload, &payload) == nil && payload.UserID != "" {
		return payload.UserID
	}
	return ev.SenderID
}
