package signaling

import "encoding/json"

// Message represents all WebSocket messages between room clients and the server.
type Message struct {
	Type    string          `json:"type"`
	Room    string          `json:"room,omitempty"`
	Token   string          `json:"token,omitempty"`
	From    string          `json:"from,omitempty"`
	To      string          `json:"to,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message type constants.
const (
	MessageTypeJoin   = "join"
	MessageTypeLeave  = "leave"
	MessageTypeSignal = "signal"

	MessageTypeJoined                  = "joined"
	MessageTypeParticipantConnected    = "participant_connected"
	MessageTypeParticipantDisconnected = "participant_disconnected"
	MessageTypeError                   = "error"
)

// ParticipantInfo identifies a participant in a room.
type ParticipantInfo struct {
	SID      string `json:"sid"`
	Identity string `json:"identity"`
}

// JoinedPayload is the server's reply to a successful join.
type JoinedPayload struct {
	RoomSID string `json:"room_sid"`
	Room    string `json:"room"`
	ParticipantInfo
	// Participants already in the room, in arrival order.
	Participants []ParticipantInfo `json:"participants"`
}

// SignalPayload represents the WebRTC signaling data (SDP offer/answer or ICE candidate).
type SignalPayload struct {
	Type         string          `json:"type,omitempty"`
	SDP          string          `json:"sdp,omitempty"`
	ICECandidate json.RawMessage `json:"ice_candidate,omitempty"`
}

// ErrorPayload represents error messages from server.
type ErrorPayload struct {
	Error string `json:"error"`
}

// RoomSummary is one entry of the server's room listing.
type RoomSummary struct {
	Name         string            `json:"name"`
	SID          string            `json:"sid"`
	Participants []ParticipantInfo `json:"participants"`
}

// NewMessage creates a Message with the payload encoded as JSON.
func NewMessage(t string, payload any) (*Message, error) {
	msg := &Message{Type: t}
	if payload == nil {
		return msg, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	msg.Payload = b
	return msg, nil
}

// NewErrorMessage builds an error reply.
func NewErrorMessage(text string) *Message {
	msg, _ := NewMessage(MessageTypeError, ErrorPayload{Error: text})
	return msg
}

// DecodePayload decodes the message payload into v.
func (m *Message) DecodePayload(v any) error {
	if len(m.Payload) == 0 {
		return ErrEmptyPayload
	}
	return json.Unmarshal(m.Payload, v)
}
