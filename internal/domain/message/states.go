package message

// Kind discriminates the event kinds a conversation can carry.
type Kind string

const (
	KindMessage  Kind = "message"
	KindAgent    Kind = "agent"
	KindSystem   Kind = "system"
	KindState    Kind = "state"
	KindActivity Kind = "activity"
)

// Status is the delivery status of a message as seen by this client.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

// StatusFromWire maps the server's status field onto the client status.
// The server reports "done" once a message is accepted; locally that is "sent".
func StatusFromWire(s string) Status {
	switch s {
	case "done":
		return StatusSent
	case "pending":
		return StatusPending
	case "sent":
		return StatusSent
	case "delivered":
		return StatusDelivered
	case "read":
		return StatusRead
	default:
		return StatusSent
	}
}
