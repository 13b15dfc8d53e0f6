package models

import "time"

// ConversationType distinguishes one-to-one conversations from group channels.
type ConversationType string

const (
	ConversationDirect ConversationType = "DIRECT"
	ConversationGroup  ConversationType = "GROUP"
)

type Conversation struct {
	ID            string           `json:"id"`
	Name          string           `json:"name,omitempty"`
	Type          ConversationType `json:"type"`
	Participants  []Participant    `json:"participants"`
	LastMessage   string           `json:"lastMessage,omitempty"`
	LastMessageAt *time.Time       `json:"lastMessageTime,omitempty"`
	UnreadCount   int              `json:"unreadCount"`
}

// MessageType is the payload kind of a message.
type MessageType string

const (
	MessageText MessageType = "text"
	MessageFile MessageType = "file"
)

// DeliveryStatus is client-side only and never sent over the wire.
type DeliveryStatus string

const (
	StatusSent    DeliveryStatus = ""
	StatusPending DeliveryStatus = "pending"
	StatusFailed  DeliveryStatus = "failed"
)

type Message struct {
	ID              string        `json:"id"`
	ConversationID  string        `json:"conversationId"`
	ThreadID        string        `json:"threadId,omitempty"`
	Sender          Sender        `json:"sender"`
	Content         string        `json:"content"`
	Type            MessageType   `json:"type"`
	CreatedAt       time.Time     `json:"createdAt"`
	EditedAt        *time.Time    `json:"editedAt,omitempty"`
	Deleted         bool          `json:"isDeleted,omitempty"`
	Attachments     []Attachment  `json:"attachments,omitempty"`
	Reactions       []Reaction    `json:"reactions,omitempty"`
	ReadBy          []ReadReceipt `json:"readBy,omitempty"`
	ReplyToID       string        `json:"replyToId,omitempty"`
	ClientMessageID string        `json:"clientMessageId,omitempty"`

	Status        DeliveryStatus `json:"-"`
	FailureReason string         `json:"-"`
}

// IsEdited reports whether the message carries an edit timestamp.
func (m *Message) IsEdited() bool {
	return m.EditedAt != nil
}

// Attachment references a file owned by the Drive service. Chat treats the id as opaque.
type Attachment struct {
	FileID   string `json:"fileId"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// Reaction is unique per (MessageID, Emoji, UserID).
type Reaction struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName,omitempty"`
}

// Matches reports whether r is the reaction identified by the given triple.
func (r Reaction) Matches(messageID, emoji, userID string) bool {
	return r.MessageID == messageID && r.Emoji == emoji && r.UserID == userID
}

type ReadReceipt struct {
	UserID string    `json:"userId"`
	ReadAt time.Time `json:"readAt"`
}

// TypingIndicator is ephemeral and never persisted.
type TypingIndicator struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	UserName       string `json:"userName"`
}
