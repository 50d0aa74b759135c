package sync

import (
	"fmt"
	"time"

	"convsync/internal/wire"
)

// DefaultDedupWindow is how long a frame's identity key suppresses
// redelivery of the same frame.
const DefaultDedupWindow = 30 * time.Second

// DedupCache is a time-windowed set over frame identity keys. The channel is
// at-least-once, so the same logical frame can arrive more than once; the
// cache drops repeats seen within the window. It is a best-effort layer, not
// a correctness guarantee against reordering.
//
// Each coordinator owns its own instance; there is no shared global state.
type DedupCache struct {
	window time.Duration
	seen   map[string]time.Time
	now    func() time.Time
}

func NewDedupCache(window time.Duration) *DedupCache {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &DedupCache{
		window: window,
		seen:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// ShouldProcess reports whether the frame should be delivered, recording its
// identity key as seen when it is. Frames without any identity always pass.
func (c *DedupCache) ShouldProcess(f wire.Frame) bool {
	key, ok := c.keyFor(f)
	if !ok {
		return true
	}

	now := c.now()
	if seenAt, exists := c.seen[key]; exists && now.Sub(seenAt) < c.window {
		return false
	}
	c.seen[key] = now
	c.sweep(now)
	return true
}

// keyFor derives the frame's dedup key. Precedence, first match wins:
// session id, canonical event id (status-qualified so a status transition on
// the same id is a new occurrence), bare status, then subtype/type.
func (c *DedupCache) keyFor(f wire.Frame) (string, bool) {
	if f.Type == wire.FrameConnected {
		return "", false
	}
	id, ok := wire.ExtractIdentity(f)
	if !ok {
		return "", false
	}

	switch {
	case id.SessionID != "":
		return "session:" + id.SessionID, true
	case id.EventID != "":
		key := "id:" + id.EventID
		if id.HasStatus {
			key += ":status:" + id.Status
		}
		return key, true
	case id.HasStatus:
		return fmt.Sprintf("status:%s:actor:%s:conv:%s", id.Status, id.ActorID, convOrGlobal(id.ConversationID)), true
	default:
		subtype := id.Subtype
		if subtype == "" {
			subtype = f.Type
		}
		return fmt.Sprintf("sub:%s:actor:%s:conv:%s", subtype, id.ActorID, convOrGlobal(id.ConversationID)), true
	}
}

// sweep drops entries old enough that they can never suppress a frame again.
func (c *DedupCache) sweep(now time.Time) {
	cutoff := now.Add(-2 * c.window)
	for key, seenAt := range c.seen {
		if seenAt.Before(cutoff) {
			delete(c.seen, key)
		}
	}
}

// Dispose clears all recorded keys.
func (c *DedupCache) Dispose() {
	c.seen = make(map[string]time.Time)
}

func convOrGlobal(conversationID string) string {
	if conversationID == "" {
		return "global"
	}
	return conversationID
}
