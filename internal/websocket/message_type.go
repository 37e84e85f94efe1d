package websocket

import (
	"encoding/json"
)

// MessageType represents the type of a stream message
type MessageType string

// Stream message types
const (
	MessageTypeConnect     MessageType = "connect"
	MessageTypeInitialize  MessageType = "initialize"
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypeUpdate      MessageType = "update"
	MessageTypeError       MessageType = "error"
)

// Initialize status values
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// String returns the string representation of the MessageType
func (mt MessageType) String() string {
	return string(mt)
}

// IsInbound reports whether clients are allowed to send this type
func (mt MessageType) IsInbound() bool {
	return mt == MessageTypeInitialize
}

// Message is the flat JSON frame exchanged over a stream connection.
// Fields that do not apply to a given type are omitted on the wire.
type Message struct {
	Type          MessageType `json:"type"`
	Session       string      `json:"session,omitempty"`
	Authorization string      `json:"authorization,omitempty"`
	Status        string      `json:"status,omitempty"`
	User          string      `json:"user,omitempty"`
	Project       string      `json:"project,omitempty"`
	Error         string      `json:"error,omitempty"`
}

// Encode serializes the message for the write pump
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// NewConnectMessage announces the connection id to a freshly opened client
func NewConnectMessage(session string) *Message {
	return &Message{Type: MessageTypeConnect, Session: session}
}

// NewInitializeOKMessage acknowledges a successful authentication
func NewInitializeOKMessage(userID string) *Message {
	return &Message{Type: MessageTypeInitialize, Status: StatusOK, User: userID}
}

// NewInitializeErrorMessage reports a failed authentication
func NewInitializeErrorMessage(reason string) *Message {
	return &Message{Type: MessageTypeInitialize, Status: StatusError, Error: reason}
}

// NewSubscribeMessage acknowledges a project subscription
func NewSubscribeMessage(projectID string) *Message {
	return &Message{Type: MessageTypeSubscribe, Project: projectID}
}

// NewUnsubscribeMessage acknowledges an unsubscription or announces a revoke
func NewUnsubscribeMessage(projectID string) *Message {
	return &Message{Type: MessageTypeUnsubscribe, Project: projectID}
}

// NewErrorMessage creates an error message
func NewErrorMessage(reason string) *Message {
	return &Message{Type: MessageTypeError, Error: reason}
}
