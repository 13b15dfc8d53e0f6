package models

// SendMessageRequest is the body of POST /api/chat/messages.
type SendMessageRequest struct {
	ConversationID  string      `json:"conversationId" validate:"required"`
	Content         string      `json:"content"`
	Type            MessageType `json:"type" validate:"omitempty,oneof=text file"`
	FileIDs         []string    `json:"fileIds,omitempty" validate:"dive,required"`
	ThreadID        string      `json:"threadId,omitempty"`
	ReplyToID       string      `json:"replyToId,omitempty"`
	ClientMessageID string      `json:"clientMessageId,omitempty"`
}

// EditMessageRequest is the body of PATCH /api/chat/messages/{id}.
type EditMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

// CreateThreadRequest is the body of POST /api/chat/conversations/{id}/threads.
type CreateThreadRequest struct {
	ConversationID string     `json:"conversationId" validate:"required"`
	Name           string     `json:"name" validate:"required,max=200"`
	Type           ThreadType `json:"type" validate:"required,oneof=MESSAGE TOPIC PROJECT DECISION DOCUMENTATION"`
	ParticipantIDs []string   `json:"participantIds,omitempty"`
}

// ReactionRequest is the body of POST /api/chat/messages/{id}/reactions.
type ReactionRequest struct {
	Emoji string `json:"emoji" validate:"required"`
}

// MarkReadRequest is the body of POST /api/chat/conversations/{id}/read.
type MarkReadRequest struct {
	MessageIDs []string `json:"messageIds,omitempty"`
}
