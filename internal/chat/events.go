// Package chat implements the Parley real-time gateway: connection
// authentication, room membership, presence tracking, message relay, and
// typing-indicator fan-out, with cross-instance delivery over a pluggable
// backplane.
package chat

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Inbound event names (client to gateway).
const (
	EventJoinRoom    = "joinRoom"
	EventLeaveRoom   = "leaveRoom"
	EventSendMessage = "sendMessage"
	EventTyping      = "typing"
	EventStopTyping  = "stopTyping"
)

// Outbound event names (gateway to client).
const (
	EventAuthenticated = "authenticated"
	EventError         = "error"
	EventUserJoined    = "userJoined"
	EventUserLeft      = "userLeft"
	EventMessage       = "message"
)

// Envelope is the wire frame for every socket event in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinRoomData is the payload of joinRoom and leaveRoom requests.
type JoinRoomData struct {
	RoomID string `json:"roomId"`
}

// SendMessageData is the payload of a sendMessage request.
type SendMessageData struct {
	Content string `json:"content"`
	RoomID  string `json:"roomId"`
}

// TypingRequest is the payload of typing and stopTyping requests.
type TypingRequest struct {
	RoomID string `json:"roomId"`
}

// AuthenticatedData confirms a successful connection handshake.
type AuthenticatedData struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// ErrorData is the payload of an error event.
type ErrorData struct {
	Message string `json:"message"`
}

// PresenceData announces a user joining or leaving a room.
type PresenceData struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	RoomID   string `json:"roomId"`
}

// UserRef identifies a message author.
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// MessageData is the canonical hydrated message payload broadcast to every
// member of a room, sender included.
type MessageData struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	UserID    string    `json:"userId"`
	RoomID    string    `json:"roomId"`
	User      UserRef   `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
}

// TypingData announces that a user is typing in a room.
type TypingData struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	RoomID   string `json:"roomId"`
}

// StopTypingData announces that a user stopped typing.
type StopTypingData struct {
	UserID string `json:"userId"`
	RoomID string `json:"roomId"`
}

// encodeEvent marshals an outbound frame.
func encodeEvent(event string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s payload", event)
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s frame", event)
	}
	return frame, nil
}

// decodeEnvelope parses an inbound frame.
func decodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, errors.Wrap(err, "decode frame")
	}
	if env.Event == "" {
		return Envelope{}, errors.New("frame missing event name")
	}
	return env, nil
}
