package signaling

import "encoding/json"

// Event names understood by the hub. These are part of the wire contract with
// the browser client and must not be renamed.
const (
	EventAnnounceIdentity = "announce-identity"
	EventJoinRoom         = "join-room"

	EventInitiateCall = "initiate-call"
	EventIncomingCall = "incoming-call"
	EventAcceptCall   = "accept-call"
	EventCallAccepted = "call-accepted"
	EventRejectCall   = "reject-call"
	EventCallRejected = "call-rejected"
	EventEndCall      = "end-call"
	EventCallEnded    = "call-ended"
	EventCallFailed   = "call-failed"

	EventRelayOffer  = "relay-offer"
	EventRelayAnswer = "relay-answer"
	EventRelayICE    = "relay-ice-candidate"

	EventSendChatMessage = "send-chat-message"
	EventChatMessage     = "chat-message-received"
	EventTyping          = "typing-indicator"
	EventMessageEdited   = "message-edited"

	EventNewStatus     = "new-status"
	EventStatusDeleted = "status-deleted"

	EventUserOnline  = "user-online"
	EventUserOffline = "user-offline"
)

// Call types accepted by initiate-call.
const (
	CallTypeVoice = "voice"
	CallTypeVideo = "video"
)

// Envelope is the wire format for every signaling event. Data is opaque to the
// hub: SDP and ICE payloads for the relay events, persisted message objects for
// chat fan-out.
type Envelope struct {
	Type     string          `json:"type"`
	From     string          `json:"from,omitempty"`
	To       string          `json:"to,omitempty"`
	RoomID   string          `json:"room_id,omitempty"`
	CallID   string          `json:"call_id,omitempty"`
	CallType string          `json:"call_type,omitempty"`
	Reason   string          `json:"reason,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

func encode(ev Envelope) []byte {
	b, _ := json.Marshal(ev)
	return b
}
