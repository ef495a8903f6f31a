package domain

import "time"

// MessageType identifies the kind of a wire frame. The set is closed: frames
// are decoded once at the transport boundary and dispatched with an
// exhaustive switch whose default arm rejects unknown kinds.
type MessageType string

const (
	// Client-originated kinds.
	TypeInitConnection MessageType = "init_connection"
	TypeTranslation    MessageType = "translation_message" // also forwarded server->client
	TypeHeartbeat      MessageType = "heartbeat"           // echoed server->client
	TypeEndSession     MessageType = "end_session"         // also the terminal notice

	// Server-originated kinds.
	TypeSuccess MessageType = "success"
	TypeError   MessageType = "error"
)

// ClientMessage is the frame a participant sends to the relay.
//
// EncryptedMessage is an opaque blob: the relay never parses, translates, or
// validates its contents. That is the sending client's business logic.
type ClientMessage struct {
	Type             MessageType `json:"type"`
	SessionID        string      `json:"session_id"`
	UserID           string      `json:"user_id"`
	EncryptedMessage string      `json:"encrypted_message,omitempty"`
	Timestamp        int64       `json:"timestamp,omitempty"`
}

// ServerMessage is the frame the relay sends to a participant. Exactly one
// shape is populated per Type; unused fields are omitted from the JSON.
type ServerMessage struct {
	Type             MessageType `json:"type"`
	Message          string      `json:"message,omitempty"`
	Error            string      `json:"error,omitempty"`
	SessionID        string      `json:"session_id,omitempty"`
	UserID           string      `json:"user_id,omitempty"`
	EncryptedMessage string      `json:"encrypted_message,omitempty"`
	Timestamp        int64       `json:"timestamp"`
}

// NewSuccess builds a success reply.
func NewSuccess(message string, at time.Time) ServerMessage {
	return ServerMessage{Type: TypeSuccess, Message: message, Timestamp: at.UnixMilli()}
}

// NewError builds an error reply. Errors always go to the offending
// connection only and never close it.
func NewError(reason string, at time.Time) ServerMessage {
	return ServerMessage{Type: TypeError, Error: reason, Timestamp: at.UnixMilli()}
}

// NewRelay builds the forwarded envelope. The sender's id is preserved and
// the payload bytes pass through untouched.
func NewRelay(sessionID, userID, payload string, at time.Time) ServerMessage {
	return ServerMessage{
		Type:             TypeTranslation,
		SessionID:        sessionID,
		UserID:           userID,
		EncryptedMessage: payload,
		Timestamp:        at.UnixMilli(),
	}
}

// NewHeartbeat builds the heartbeat echo.
func NewHeartbeat(sessionID, userID string, at time.Time) ServerMessage {
	return ServerMessage{Type: TypeHeartbeat, SessionID: sessionID, UserID: userID, Timestamp: at.UnixMilli()}
}

// NewEndNotice builds the terminal notice delivered to each participant when
// a session is torn down.
func NewEndNotice(sessionID string, at time.Time) ServerMessage {
	return ServerMessage{Type: TypeEndSession, SessionID: sessionID, Timestamp: at.UnixMilli()}
}
