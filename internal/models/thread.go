package models

import "time"

// ThreadType is the enumerated purpose of a thread.
type ThreadType string

const (
	ThreadMessage       ThreadType = "MESSAGE"
	ThreadTopic         ThreadType = "TOPIC"
	ThreadProject       ThreadType = "PROJECT"
	ThreadDecision      ThreadType = "DECISION"
	ThreadDocumentation ThreadType = "DOCUMENTATION"
)

// Valid reports whether t is one of the known thread types.
func (t ThreadType) Valid() bool {
	switch t {
	case ThreadMessage, ThreadTopic, ThreadProject, ThreadDecision, ThreadDocumentation:
		return true
	}
	return false
}

// Thread is a named sub-conversation. Its messages are the parent conversation's
// messages whose ThreadID equals the thread's ID.
type Thread struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversationId"`
	Name           string     `json:"name"`
	Type           ThreadType `json:"type"`
	Participants   []string   `json:"participants,omitempty"`
	MessageCount   int        `json:"messageCount"`
	UnreadCount    int        `json:"unreadCount"`
	LastActivityAt *time.Time `json:"lastActivity,omitempty"`
	CreatedBy      string     `json:"createdBy,omitempty"`
}
