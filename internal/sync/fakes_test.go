package sync

import (
	"context"
	"errors"

	"convsync/internal/rest"
	"convsync/internal/wire"
)

// fakeSender records every outbound frame.
type fakeSender struct {
	frames []wire.Frame
	binary [][]byte
	err    error
}

func (s *fakeSender) SendFrame(f wire.Frame) error {
	if s.err != nil {
		return s.err
	}
	s.frames = append(s.frames, f)
	return nil
}

func (s *fakeSender) SendBinary(data []byte) error {
	if s.err != nil {
		return s.err
	}
	s.binary = append(s.binary, data)
	return nil
}

func (s *fakeSender) lastFrame() wire.Frame {
	if len(s.frames) == 0 {
		return wire.Frame{}
	}
	return s.frames[len(s.frames)-1]
}

// fakeAPI serves canned REST responses.
type fakeAPI struct {
	conversations []rest.ConversationRecord
	messages      map[string][]rest.MessageRecord
	readMarks     map[string][]rest.ReadMark
	editResult    *rest.MessageRecord
	deleteResult  *rest.MessageRecord
	failAll       bool
}

var errFakeAPI = errors.New("fake api failure")

func (a *fakeAPI) ListConversations(context.Context) ([]rest.ConversationRecord, error) {
	if a.failAll {
		return nil, errFakeAPI
	}
	return a.conversations, nil
}

func (a *fakeAPI) GetConversation(_ context.Context, id string) (*rest.ConversationRecord, error) {
	if a.failAll {
		return nil, errFakeAPI
	}
	for i := range a.conversations {
		if a.conversations[i].ID == id {
			return &a.conversations[i], nil
		}
	}
	return nil, errFakeAPI
}

func (a *fakeAPI) ListMessages(_ context.Context, conversationID string) ([]rest.MessageRecord, error) {
	if a.failAll {
		return nil, errFakeAPI
	}
	return a.messages[conversationID], nil
}

func (a *fakeAPI) EditMessage(_ context.Context, _, _, _ string) (*rest.MessageRecord, error) {
	if a.failAll || a.editResult == nil {
		return nil, errFakeAPI
	}
	return a.editResult, nil
}

func (a *fakeAPI) DeleteMessage(_ context.Context, _, _ string) (*rest.MessageRecord, error) {
	if a.failAll || a.deleteResult == nil {
		return nil, errFakeAPI
	}
	return a.deleteResult, nil
}

func (a *fakeAPI) ReadBy(_ context.Context, conversationID string) ([]rest.ReadMark, error) {
	if a.failAll {
		return nil, errFakeAPI
	}
	return a.readMarks[conversationID], nil
}
