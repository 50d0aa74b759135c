package sync

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"convsync/internal/domain/message"
	"convsync/internal/rest"
	"convsync/internal/wire"
	"convsync/pkg/logger"
)

func newTestCoordinator(t *testing.T, api *fakeAPI, sender *fakeSender) *Coordinator {
	t.Helper()
	c := NewCoordinator(context.Background(), Options{
		LocalUserID:       "me",
		DedupWindow:       30 * time.Second,
		DefaultChunkBytes: 8,
		ParticipantExpiry: time.Minute,
		Decorators:        testRegistry,
	}, api, sender, logger.NewNop())
	t.Cleanup(c.Dispose)
	return c
}

func rawFrame(t *testing.T, frameType string, payload any) wire.Frame {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return wire.Frame{Type: frameType, Payload: raw}
}

func TestConnectedTriggersSubscribe(t *testing.T) {
	sender := &fakeSender{}
	c := newTestCoordinator(t, &fakeAPI{}, sender)

	c.HandleFrame(rawFrame(t, wire.FrameConnected, wire.ConnectedPayload{
		SessionID:                     "sess-1",
		AutoSubscribedConversationIDs: []string{"c1", "c2"},
	}))

	assert.Equal(t, "sess-1", c.SessionID())
	require.Len(t, sender.frames, 1)
	assert.Equal(t, wire.CmdSubscribe, sender.frames[0].Type)

	var sub wire.SubscribePayload
	require.NoError(t, sender.frames[0].Decode(&sub))
	assert.Equal(t, []string{"c1", "c2"}, sub.ConversationIDs)
}

func TestDuplicateEventDeliveredOnce(t *testing.T) {
	api := &fakeAPI{
		conversations: []rest.ConversationRecord{{ID: "c1"}},
		messages:      map[string][]rest.MessageRecord{},
	}
	c := newTestCoordinator(t, api, &fakeSender{})
	require.NoError(t, c.Conversations().Load(context.Background()))
	msgs, _, err := c.OpenConversation(context.Background(), "c1")
	require.NoError(t, err)

	frame := rawFrame(t, wire.FrameEvent, wire.EventPayload{
		ConversationID: "c1", Seq: 1,
		Event: wire.Event{ID: "ev-1", Kind: "message", SenderID: "alice", Body: "hi", Status: "done"},
	})

	c.HandleFrame(frame)
	c.HandleFrame(frame)

	assert.Len(t, msgs.Messages(), 1, "redelivered frame must not apply twice")
}

func TestEventRoutedToOpenConversationAndList(t *testing.T) {
	api := &fakeAPI{
		conversations: []rest.ConversationRecord{{ID: "c1"}, {ID: "c2"}},
		messages:      map[string][]rest.MessageRecord{},
	}
	c := newTestCoordinator(t, api, &fakeSender{})
	require.NoError(t, c.Conversations().Load(context.Background()))
	msgs, _, err := c.OpenConversation(context.Background(), "c1")
	require.NoError(t, err)

	// Event for the open conversation lands in its synchronizer.
	c.HandleFrame(rawFrame(t, wire.FrameEvent, wire.EventPayload{
		ConversationID: "c1", Seq: 1,
		Event: wire.Event{ID: "ev-1", Kind: "message", SenderID: "alice", Body: "hi", Status: "done"},
	}))
	require.Len(t, msgs.Messages(), 1)

	// Event for a closed conversation only patches the list projection.
	c.HandleFrame(rawFrame(t, wire.FrameEvent, wire.EventPayload{
		ConversationID: "c2", Seq: 5,
		Event: wire.Event{ID: "ev-2", Kind: "message", SenderID: "alice", Body: "elsewhere", Status: "done"},
	}))
	assert.Equal(t, 1, c.Conversations().Get("c2").UnseenCount)
	assert.Len(t, msgs.Messages(), 1)
}

func TestReadUpdatedRoutedToTrackerAndList(t *testing.T) {
	api := &fakeAPI{
		conversations: []rest.ConversationRecord{{ID: "c1", UnreadCount: 3}},
		messages:      map[string][]rest.MessageRecord{},
	}
	c := newTestCoordinator(t, api, &fakeSender{})
	require.NoError(t, c.Conversations().Load(context.Background()))
	_, receipts, err := c.OpenConversation(context.Background(), "c1")
	require.NoError(t, err)

	c.HandleFrame(rawFrame(t, wire.FrameReadUpdated, wire.ReadUpdatedPayload{
		ConversationID: "c1", UserID: "me", LastReadSeq: 3,
	}))

	assert.True(t, receipts.HasRead(3, "me"))
	assert.Zero(t, c.Conversations().Get("c1").UnseenCount)
}

func TestEndToEndSendScenario(t *testing.T) {
	api := &fakeAPI{
		conversations: []rest.ConversationRecord{{ID: "c1"}},
		messages:      map[string][]rest.MessageRecord{},
	}
	sender := &fakeSender{}
	c := newTestCoordinator(t, api, sender)
	require.NoError(t, c.Conversations().Load(context.Background()))
	msgs, _, err := c.OpenConversation(context.Background(), "c1")
	require.NoError(t, err)

	clientEventID, err := msgs.Send("hello @ai", "")
	require.NoError(t, err)
	require.Equal(t, message.StatusPending, msgs.Messages()[0].Status)

	c.HandleFrame(rawFrame(t, wire.FrameEvent, wire.EventPayload{
		ConversationID: "c1", Seq: 42,
		Event: wire.Event{ID: "srv-1", Kind: "message", SenderID: "me", ClientEventID: clientEventID, Status: "done"},
	}))

	rows := msgs.Messages()
	require.Len(t, rows, 1)
	assert.Equal(t, "srv-1", rows[0].ID)
	assert.Equal(t, int64(42), rows[0].Seq)
	assert.Equal(t, message.StatusSent, rows[0].Status)
}

func TestUploadFramesRoutedToPipeline(t *testing.T) {
	sender := &fakeSender{}
	c := newTestCoordinator(t, &fakeAPI{}, sender)

	clientEventID, err := c.Uploads().UploadAudio("c1", []byte("voice data"), "audio/webm", 900, nil)
	require.NoError(t, err)

	c.HandleFrame(rawFrame(t, wire.FrameUploadReady, wire.UploadReadyPayload{
		ClientEventID: clientEventID, UploadID: "up-1", MaxChunkBytes: 4,
	}))

	assert.NotEmpty(t, sender.binary, "ready frame triggers chunk transmission")
	c.HandleFrame(rawFrame(t, wire.FrameUploadChunkAck, wire.UploadChunkAckPayload{UploadID: "up-1", Seq: 0}))
	c.HandleFrame(rawFrame(t, wire.FrameUploadCommitted, wire.UploadCommittedPayload{UploadID: "up-1", MessageID: "m1", Seq: 3}))

	assert.Empty(t, c.Uploads().StalePending(0), "committed upload is discarded")
}

func TestActivityJoinedClearsPendingParticipant(t *testing.T) {
	c := newTestCoordinator(t, &fakeAPI{conversations: []rest.ConversationRecord{{ID: "c1"}}}, &fakeSender{})
	require.NoError(t, c.Conversations().Load(context.Background()))
	c.PendingCalls().Add("alice")

	payload, _ := json.Marshal(map[string]string{"userId": "alice"})
	c.HandleFrame(rawFrame(t, wire.FrameEvent, wire.EventPayload{
		ConversationID: "c1",
		Event:          wire.Event{ID: "ev-j", Kind: "activity", Subtype: wire.SubtypeActivityJoined, SenderID: "alice", Payload: payload},
	}))

	assert.False(t, c.PendingCalls().Contains("alice"))
}

func TestReactionCallback(t *testing.T) {
	var got []wire.ReactionPayload
	c := NewCoordinator(context.Background(), Options{
		LocalUserID: "me",
		OnReaction:  func(p wire.ReactionPayload) { got = append(got, p) },
	}, &fakeAPI{}, &fakeSender{}, logger.NewNop())
	defer c.Dispose()

	c.HandleFrame(rawFrame(t, wire.FrameReaction, wire.ReactionPayload{
		ConversationID: "c1", ReactionType: "raise_hand", Identity: "alice",
	}))

	require.Len(t, got, 1)
	assert.Equal(t, "raise_hand", got[0].ReactionType)
}

func TestUnknownFrameIgnored(t *testing.T) {
	c := newTestCoordinator(t, &fakeAPI{}, &fakeSender{})
	assert.NotPanics(t, func() {
		c.HandleFrame(wire.Frame{Type: "future:frame", Payload: json.RawMessage(`{"x":1}`)})
	})
}

func TestTwoCoordinatorsDoNotShareDedupState(t *testing.T) {
	api := &fakeAPI{conversations: []rest.ConversationRecord{{ID: "c1"}}, messages: map[string][]rest.MessageRecord{}}
	c1 := newTestCoordinator(t, api, &fakeSender{})
	c2 := newTestCoordinator(t, api, &fakeSender{})
	require.NoError(t, c1.Conversations().Load(context.Background()))
	require.NoError(t, c2.Conversations().Load(context.Background()))

	frame := rawFrame(t, wire.FrameEvent, wire.EventPayload{
		ConversationID: "c1", Seq: 1,
		Event: wire.Event{ID: "ev-1", Kind: "message", SenderID: "alice", Body: "hi", Status: "done"},
	})

	c1.HandleFrame(frame)
	c2.HandleFrame(frame)

	assert.Equal(t, 1, c1.Conversations().Get("c1").UnseenCount)
	assert.Equal(t, 1, c2.Conversations().Get("c1").UnseenCount, "each coordinator owns its own dedup cache")
}
