package websocket

import (
	"encoding/json"
	"fmt"
)

// Client → server events.
const (
	EventJoin = "join"
	EventPing = "ping"
)

// Server → client events that are not bus kinds.
const (
	EventJoined = "joined"
	EventPong   = "pong"
	EventError  = "error"
)

// Error codes carried in error frames.
const (
	CodeJoinForbidden = "JOIN_FORBIDDEN"
	CodeInvalidGroup  = "INVALID_GROUP"
	CodeBadMessage    = "BAD_MESSAGE"
)

// Message is the envelope of every text frame in both directions.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ErrorData is the data of an error frame.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EncodeMessage builds a text frame for event with data marshalled as JSON.
// A nil data produces a frame without a data field.
func EncodeMessage(event string, data any) ([]byte, error) {
	msg := Message{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode %s data: %w", event, err)
		}
		msg.Data = raw
	}
	return json.Marshal(msg)
}

// DecodeMessage parses an inbound frame.
func DecodeMessage(frame []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return Message{}, err
	}
	if msg.Event == "" {
		return Message{}, fmt.Errorf("missing event name")
	}
	return msg, nil
}

// groupName reads the data of a join frame, which is the bare group name.
func groupName(data json.RawMessage) (string, error) {
	var group string
	if err := json.Unmarshal(data, &group); err != nil {
		return "", fmt.Errorf("join data must be a group name string")
	}
	return group, nil
}
