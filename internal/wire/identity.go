package wire

import "encoding/json"

// Identity is the semantic identity of a frame, used to derive dedup keys.
// Fields are empty when the frame does not carry them.
type Identity struct {
	SessionID      string
	EventID        string
	Status         string
	HasStatus      bool
	ActorID        string
	ConversationID string
	Subtype        string
}

// identityProbe reads the loosely shaped fields a frame may carry. The wire
// format nested the session id one level deeper in an earlier revision;
// payload.sessionId is canonical and payload.payload.sessionId is read as a
// migration shim.
type identityProbe struct {
	SessionID      string  `json:"sessionId"`
	ID             string  `json:"id"`
	Status         *string `json:"status"`
	SenderID       string  `json:"senderId"`
	UserID         string  `json:"userId"`
	ConversationID string  `json:"conversationId"`
	Subtype        string  `json:"subtype"`
	Event          *struct {
		ID       string  `json:"id"`
		Status   *string `json:"status"`
		SenderID string  `json:"senderId"`
		Subtype  string  `json:"subtype"`
	} `json:"event"`
	Payload *struct {
		SessionID string `json:"sessionId"`
	} `json:"payload"`
}

// ExtractIdentity inspects a frame's payload and returns its semantic
// identity. ok is false for frames whose payload is absent or not an object;
// such frames carry no identity at all.
func ExtractIdentity(f Frame) (Identity, bool) {
	var p identityProbe
	if len(f.Payload) == 0 || json.Unmarshal(f.Payload, &p) != nil {
		return Identity{}, false
	}

	id := Identity{
		SessionID:      p.SessionID,
		EventID:        p.ID,
		ActorID:        firstNonEmpty(p.SenderID, p.UserID),
		ConversationID: p.ConversationID,
		Subtype:        p.Subtype,
	}
	if p.Status != nil {
		id.Status = *p.Status
		id.HasStatus = true
	}
	if id.SessionID == "" && p.Payload != nil {
		id.SessionID = p.Payload.SessionID
	}
	if p.Event != nil {
		if id.EventID == "" {
			id.EventID = p.Event.ID
		}
		if !id.HasStatus && p.Event.Status != nil {
			id.Status = *p.Event.Status
			id.HasStatus = true
		}
		if id.ActorID == "" {
			id.ActorID = p.Event.SenderID
		}
		if id.Subtype == "" {
			id.Subtype = p.Event.Subtype
		}
	}
	return id, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
