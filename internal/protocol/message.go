package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type identifies a message.
type Type string

// Message types.
const (
	TypeRegister     Type = "register"
	TypeNewOrder     Type = "new_order"
	TypeOrderUpdate  Type = "order_update"
	TypeSyncRequest  Type = "sync_request"
	TypeSyncResponse Type = "sync_response"
	TypePing         Type = "ping"
	TypePong         Type = "pong"
	TypeError        Type = "error"
)

// Known reports whether t is one of the defined message types.
func (t Type) Known() bool {
	switch t {
	case TypeRegister, TypeNewOrder, TypeOrderUpdate, TypeSyncRequest,
		TypeSyncResponse, TypePing, TypePong, TypeError:
		return true
	}
	return false
}

// Message is the envelope for every frame on the session channel.
type Message struct {
	Type      Type            `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// New builds a message with payload marshalled to JSON and the envelope
// timestamp taken from now. A nil payload produces no payload field.
func New(t Type, payload any, now time.Time) (Message, error) {
	msg := Message{Type: t, Timestamp: now.UnixMilli()}
	if payload == nil {
		return msg, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("%w: encoding %s: %w", ErrPayload, t, err)
	}
	msg.Payload = raw
	return msg, nil
}

// Encode serialises msg into a text frame.
func Encode(msg Message) ([]byte, error) {
	if msg.Type == "" {
		return nil, fmt.Errorf("%w: empty type", ErrParse)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encoding message: %w", err)
	}
	return data, nil
}

// Decode parses a frame. Unknown types decode successfully so the caller
// can decide what to do with them.
func Decode(frame []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if msg.Type == "" {
		return Message{}, fmt.Errorf("%w: missing type", ErrParse)
	}
	return msg, nil
}

// DecodePayload unmarshals the message payload into v.
func (m Message) DecodePayload(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%w: %s has no payload", ErrPayload, m.Type)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPayload, m.Type, err)
	}
	return nil
}

// Time returns the envelope timestamp, or the zero time if absent.
func (m Message) Time() time.Time {
	if m.Timestamp == 0 {
		return time.Time{}
	}
	return time.UnixMilli(m.Timestamp)
}
