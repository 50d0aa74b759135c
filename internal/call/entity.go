package call

import "time"

// PendingParticipant is a call invitation that has been sent but not yet
// answered. It expires automatically if the invitee never joins.
type PendingParticipant struct {
	UserID  string
	AddedAt time.Time
}
