package chat

import (
	"time"

	"github.com/vdavid/chatsync/internal/models"
)

// Event is anything Reduce knows how to apply. Name is used for metrics and logs.
type Event interface {
	Name() string
}

// Server events, decoded from socket broadcasts.

type MessageCreated struct {
	Message models.Message
}

type MessageUpdated struct {
	MessageID      string
	ConversationID string
	Content        string
	EditedAt       *time.Time
}

type MessageDeleted struct {
	MessageID      string
	ConversationID string
}

type ReactionAdded struct {
	Reaction models.Reaction
}

type ReactionRemoved struct {
	Reaction models.Reaction
}

type TypingStarted struct {
	Indicator models.TypingIndicator
}

type TypingStopped struct {
	Indicator models.TypingIndicator
}

type ThreadCreated struct {
	Thread models.Thread
}

type PresenceChanged struct {
	UserID string
	Online bool
}

type ReadReceiptAdded struct {
	ConversationID string
	MessageID      string
	Receipt        models.ReadReceipt
}

// Loading and navigation events.

type ConversationsLoaded struct {
	Conversations []models.Conversation
}

type MessagesLoaded struct {
	ConversationID string
	Messages       []models.Message
}

type ThreadsLoaded struct {
	ConversationID string
	Threads        []models.Thread
}

type ThreadMessagesLoaded struct {
	ConversationID string
	ThreadID       string
	Messages       []models.Message
}

type ConversationSelected struct {
	ConversationID string
}

// ThreadSelected with an empty ThreadID returns to the main timeline.
type ThreadSelected struct {
	ThreadID string
}

type ConversationRead struct {
	ConversationID string
}

// Optimistic send lifecycle. CorrelationID is the temporary message id.

type MessageQueued struct {
	Message models.Message
}

type MessageConfirmed struct {
	CorrelationID string
	Message       models.Message
}

type MessageFailed struct {
	CorrelationID string
	Reason        string
}

type MessageRetried struct {
	CorrelationID string
}

type MessageDiscarded struct {
	CorrelationID string
}

// Local delete and its rollback.

type MessageRemoved struct {
	MessageID      string
	ConversationID string
}

type MessageRestored struct {
	Message models.Message
}

// ReactionRestored rolls back a failed removal. Index is the reaction's
// position in the message's list before it was removed.
type ReactionRestored struct {
	Reaction models.Reaction
	Index    int
}

type ConnectionChanged struct {
	Status ConnectionStatus
	Error  string
}

func (MessageCreated) Name() string       { return "message_created" }
func (MessageUpdated) Name() string       { return "message_updated" }
func (MessageDeleted) Name() string       { return "message_deleted" }
func (ReactionAdded) Name() string        { return "reaction_added" }
func (ReactionRemoved) Name() string      { return "reaction_removed" }
func (TypingStarted) Name() string        { return "typing_started" }
func (TypingStopped) Name() string        { return "typing_stopped" }
func (ThreadCreated) Name() string        { return "thread_created" }
func (PresenceChanged) Name() string      { return "presence_changed" }
func (ReadReceiptAdded) Name() string     { return "read_receipt_added" }
func (ConversationsLoaded) Name() string  { return "conversations_loaded" }
func (MessagesLoaded) Name() string       { return "messages_loaded" }
func (ThreadsLoaded) Name() string        { return "threads_loaded" }
func (ThreadMessagesLoaded) Name() string { return "thread_messages_loaded" }
func (ConversationSelected) Name() string { return "conversation_selected" }
func (ThreadSelected) Name() string       { return "thread_selected" }
func (ConversationRead) Name() string     { return "conversation_read" }
func (MessageQueued) Name() string        { return "message_queued" }
func (MessageConfirmed) Name() string     { return "message_confirmed" }
func (MessageFailed) Name() string        { return "message_failed" }
func (MessageRetried) Name() string       { return "message_retried" }
func (MessageDiscarded) Name() string     { return "message_discarded" }
func (MessageRemoved) Name() string       { return "message_removed" }
func (MessageRestored) Name() string      { return "message_restored" }
func (ReactionRestored) Name() string     { return "reaction_restored" }
func (ConnectionChanged) Name() string    { return "connection_changed" }
