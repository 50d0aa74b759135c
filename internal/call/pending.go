package call

import (
	"sync"
	"time"
)

// DefaultParticipantExpiry is how long an unanswered call invite is tracked.
const DefaultParticipantExpiry = 30 * time.Second

// PendingTracker holds call invitations awaiting an answer. Each participant
// gets one expiry timer; joining (or manual removal) cancels it, and expiry
// removes the participant exactly once.
type PendingTracker struct {
	expiry time.Duration
	now    func() time.Time

	mu           sync.Mutex
	participants map[string]*PendingParticipant
	timers       map[string]*time.Timer
}

func NewPendingTracker(expiry time.Duration) *PendingTracker {
	if expiry <= 0 {
		expiry = DefaultParticipantExpiry
	}
	return &PendingTracker{
		expiry:       expiry,
		now:          time.Now,
		participants: make(map[string]*PendingParticipant),
		timers:       make(map[string]*time.Timer),
	}
}

// Add starts tracking a participant. Adding an already-tracked user is a
// no-op; the original timer keeps running.
func (t *PendingTracker) Add(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.participants[userID]; exists {
		return
	}
	t.participants[userID] = &PendingParticipant{UserID: userID, AddedAt: t.now()}
	t.timers[userID] = time.AfterFunc(t.expiry, func() {
		t.Remove(userID)
	})
}

// Remove stops tracking a participant and cancels its timer. Called when an
// activity_joined event names the user, or manually. Safe to call twice.
func (t *PendingTracker) Remove(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if timer, ok := t.timers[userID]; ok {
		timer.Stop()
		delete(t.timers, userID)
	}
	delete(t.participants, userID)
}

// Contains reports whether a participant is still pending.
func (t *PendingTracker) Contains(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.participants[userID]
	return ok
}

// Participants returns a snapshot of the pending set.
func (t *PendingTracker) Participants() []PendingParticipant {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]PendingParticipant, 0, len(t.participants))
	for _, p := range t.participants {
		out = append(out, *p)
	}
	return out
}

// Clear cancels every timer and empties the set. Called on call end.
func (t *PendingTracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for userID, timer := range t.timers {
		timer.Stop()
		delete(t.timers, userID)
	}
	t.participants = make(map[string]*PendingParticipant)
}
