package models

import (
	"encoding/json"
	"time"
)

// Socket event names. Client events flow to the server, the rest are broadcasts.
const (
	EventJoinConversation = "join_conversation"
	EventTypingStart      = "typing_start"
	EventTypingStop       = "typing_stop"

	EventMessage           = "message"
	EventMessageUpdated    = "message_updated"
	EventMessageDeleted    = "message_deleted"
	EventMessageReaction   = "message_reaction"
	EventThreadCreated     = "thread_created"
	EventReadReceipt       = "read_receipt"
	EventUserTyping        = "user_typing"
	EventUserStoppedTyping = "user_stopped_typing"
	EventPresence          = "presence"
	EventError             = "error"
)

// Reaction actions carried by EventMessageReaction.
const (
	ReactionActionAdd    = "add"
	ReactionActionRemove = "remove"
)

// Envelope is a single JSON text frame on the chat socket.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type JoinConversationPayload struct {
	ConversationID string `json:"conversationId"`
}

type TypingPayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId,omitempty"`
	UserName       string `json:"userName,omitempty"`
	IsTyping       bool   `json:"isTyping"`
}

type MessageDeletedPayload struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
}

type ReactionPayload struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId,omitempty"`
	Emoji          string `json:"emoji"`
	UserID         string `json:"userId"`
	UserName       string `json:"userName,omitempty"`
	Action         string `json:"action"`
}

type ReadReceiptPayload struct {
	ConversationID string    `json:"conversationId"`
	MessageID      string    `json:"messageId"`
	UserID         string    `json:"userId"`
	ReadAt         time.Time `json:"readAt"`
}

type PresencePayload struct {
	UserID string `json:"userId"`
	Online bool   `json:"online"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
