package sync

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"convsync/internal/wire"
)

func eventFrame(t *testing.T, payload any) wire.Frame {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return wire.Frame{Type: wire.FrameEvent, Payload: raw}
}

func TestDedupIdempotentDelivery(t *testing.T) {
	cache := NewDedupCache(30 * time.Second)
	f := eventFrame(t, map[string]any{
		"conversationId": "c1",
		"event":          map[string]any{"id": "ev-1", "status": "done"},
	})

	assert.True(t, cache.ShouldProcess(f), "first delivery passes")
	assert.False(t, cache.ShouldProcess(f), "redelivery within the window is dropped")
}

func TestDedupStatusTransitionIsNewOccurrence(t *testing.T) {
	cache := NewDedupCache(30 * time.Second)
	pending := eventFrame(t, map[string]any{
		"event": map[string]any{"id": "ev-1", "status": "pending"},
	})
	done := eventFrame(t, map[string]any{
		"event": map[string]any{"id": "ev-1", "status": "done"},
	})

	assert.True(t, cache.ShouldProcess(pending))
	assert.True(t, cache.ShouldProcess(done), "same id with a new status must deliver")
	assert.False(t, cache.ShouldProcess(done))
}

func TestDedupConnectedNeverDeduped(t *testing.T) {
	cache := NewDedupCache(30 * time.Second)
	f := wire.Frame{Type: wire.FrameConnected, Payload: json.RawMessage(`{"sessionId":"s1"}`)}

	for i := 0; i < 3; i++ {
		assert.True(t, cache.ShouldProcess(f))
	}
}

func TestDedupUnclassifiableAlwaysDelivered(t *testing.T) {
	cache := NewDedupCache(30 * time.Second)
	f := wire.Frame{Type: "mystery"}

	assert.True(t, cache.ShouldProcess(f))
	assert.True(t, cache.ShouldProcess(f))
}

func TestDedupWindowExpiry(t *testing.T) {
	cache := NewDedupCache(30 * time.Second)
	now := time.Now()
	cache.now = func() time.Time { return now }

	f := eventFrame(t, map[string]any{"event": map[string]any{"id": "ev-1"}})
	assert.True(t, cache.ShouldProcess(f))

	now = now.Add(29 * time.Second)
	assert.False(t, cache.ShouldProcess(f), "still inside the window")

	now = now.Add(2 * time.Second)
	assert.True(t, cache.ShouldProcess(f), "outside the window the frame delivers again")
}

func TestDedupSweepEvictsOldEntries(t *testing.T) {
	cache := NewDedupCache(30 * time.Second)
	now := time.Now()
	cache.now = func() time.Time { return now }

	stale := eventFrame(t, map[string]any{"event": map[string]any{"id": "ev-old"}})
	require.True(t, cache.ShouldProcess(stale))
	require.Len(t, cache.seen, 1)

	now = now.Add(61 * time.Second)
	fresh := eventFrame(t, map[string]any{"event": map[string]any{"id": "ev-new"}})
	require.True(t, cache.ShouldProcess(fresh))

	assert.Len(t, cache.seen, 1, "entries older than twice the window are swept on insert")
}

func TestDedupSessionKeyPrecedence(t *testing.T) {
	cache := NewDedupCache(30 * time.Second)

	// Same session id but different event ids: session key wins, second drops.
	first := eventFrame(t, map[string]any{"sessionId": "s1", "event": map[string]any{"id": "ev-1"}})
	second := eventFrame(t, map[string]any{"sessionId": "s1", "event": map[string]any{"id": "ev-2"}})

	assert.True(t, cache.ShouldProcess(first))
	assert.False(t, cache.ShouldProcess(second))
}

func TestDedupStatusWithoutIDKey(t *testing.T) {
	cache := NewDedupCache(30 * time.Second)
	f := eventFrame(t, map[string]any{
		"status":         "typing",
		"senderId":       "user-1",
		"conversationId": "c1",
	})
	other := eventFrame(t, map[string]any{
		"status":         "typing",
		"senderId":       "user-2",
		"conversationId": "c1",
	})

	assert.True(t, cache.ShouldProcess(f))
	assert.False(t, cache.ShouldProcess(f))
	assert.True(t, cache.ShouldProcess(other), "different actor is a different key")
}

func TestDedupDispose(t *testing.T) {
	cache := NewDedupCache(30 * time.Second)
	f := eventFrame(t, map[string]any{"event": map[string]any{"id": "ev-1"}})

	require.True(t, cache.ShouldProcess(f))
	cache.Dispose()
	assert.True(t, cache.ShouldProcess(f), "dispose clears all recorded keys")
}
