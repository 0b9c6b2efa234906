package video

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// MessageTypeData marks a data track payload.
const MessageTypeData = "data"

// Message is the frame exchanged on every peer data channel.
type Message struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// DecodePayload decodes the message payload into the provided value
func (m Message) DecodePayload(v any) error {
	return msgpack.Unmarshal(m.Payload, v)
}

// encodeData frames a data track payload.
func encodeData(payload string) ([]byte, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(Message{Type: MessageTypeData, Payload: b})
}

// decodeData extracts a data track payload from a frame.
func decodeData(frame []byte) (string, error) {
	var msg Message
	if err := msgpack.Unmarshal(frame, &msg); err != nil {
		return "", fmt.Errorf("parse frame: %w", err)
	}
	if msg.Type != MessageTypeData {
		return "", fmt.Errorf("%w: %q", ErrUnexpectedFrame, msg.Type)
	}

	var payload string
	if err := msg.DecodePayload(&payload); err != nil {
		return "", fmt.Errorf("parse payload: %w", err)
	}
	return payload, nil
}
