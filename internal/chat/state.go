// Package chat holds the canonical client-side chat state, the reducer that
// applies server and local events to it, the optimistic command layer and the
// read-only projections views render from.
package chat

import (
	"sort"
	"time"

	"github.com/vdavid/chatsync/internal/models"
)

type ConnectionStatus string

const (
	ConnectionIdle         ConnectionStatus = "idle"
	ConnectionConnecting   ConnectionStatus = "connecting"
	ConnectionConnected    ConnectionStatus = "connected"
	ConnectionReconnecting ConnectionStatus = "reconnecting"
	ConnectionDisconnected ConnectionStatus = "disconnected"
	ConnectionError        ConnectionStatus = "error"
)

type ConnectionState struct {
	Status ConnectionStatus
	Error  string
}

// State is an immutable snapshot. Reduce returns a new State and never
// modifies the one it was given; callers must treat every field as read-only.
type State struct {
	LocalUserID          string
	ActiveConversationID string
	ActiveThreadID       string

	// Conversations are ordered by LastMessageAt, newest first.
	Conversations []models.Conversation
	// Messages holds every known message per conversation, thread replies
	// included, in ascending CreatedAt order.
	Messages map[string][]models.Message
	Threads  map[string][]models.Thread
	Typing   map[string][]models.TypingIndicator
	Presence map[string]bool

	Connection ConnectionState
}

func NewState(localUserID string) *State {
	return &State{
		LocalUserID: localUserID,
		Messages:    map[string][]models.Message{},
		Threads:     map[string][]models.Thread{},
		Typing:      map[string][]models.TypingIndicator{},
		Presence:    map[string]bool{},
		Connection:  ConnectionState{Status: ConnectionIdle},
	}
}

// Conversation returns the conversation with the given id.
func (s *State) Conversation(id string) (models.Conversation, bool) {
	i := s.conversationIndex(id)
	if i < 0 {
		return models.Conversation{}, false
	}
	return s.Conversations[i], true
}

// Message finds a message by id in any conversation.
func (s *State) Message(id string) (models.Message, bool) {
	convID, i := s.locateMessage("", id)
	if i < 0 {
		return models.Message{}, false
	}
	return s.Messages[convID][i], true
}

// Thread finds a thread by id in any conversation.
func (s *State) Thread(id string) (models.Thread, bool) {
	for _, threads := range s.Threads {
		for _, t := range threads {
			if t.ID == id {
				return t, true
			}
		}
	}
	return models.Thread{}, false
}

// clone copies the snapshot header and its maps. Slices stored in the maps
// are shared and must be replaced, not written to.
func (s *State) clone() *State {
	next := *s
	next.Conversations = s.Conversations
	next.Messages = cloneMap(s.Messages)
	next.Threads = cloneMap(s.Threads)
	next.Typing = cloneMap(s.Typing)
	next.Presence = cloneMap(s.Presence)
	return &next
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *State) conversationIndex(id string) int {
	for i := range s.Conversations {
		if s.Conversations[i].ID == id {
			return i
		}
	}
	return -1
}

// locateMessage searches convID first (when set) and then every conversation.
func (s *State) locateMessage(convID, messageID string) (string, int) {
	if convID != "" {
		if i := indexOfMessage(s.Messages[convID], messageID); i >= 0 {
			return convID, i
		}
	}
	for id, messages := range s.Messages {
		if id == convID {
			continue
		}
		if i := indexOfMessage(messages, messageID); i >= 0 {
			return id, i
		}
	}
	return "", -1
}

func indexOfMessage(messages []models.Message, id string) int {
	for i := range messages {
		if messages[i].ID == id {
			return i
		}
	}
	return -1
}

// insertMessage returns a new slice with m placed after every message created
// at or before it, which keeps equal timestamps in arrival order.
func insertMessage(messages []models.Message, m models.Message) []models.Message {
	i := sort.Search(len(messages), func(i int) bool {
		return messages[i].CreatedAt.After(m.CreatedAt)
	})
	out := make([]models.Message, 0, len(messages)+1)
	out = append(out, messages[:i]...)
	out = append(out, m)
	return append(out, messages[i:]...)
}

func removeMessageAt(messages []models.Message, i int) []models.Message {
	out := make([]models.Message, 0, len(messages)-1)
	out = append(out, messages[:i]...)
	return append(out, messages[i+1:]...)
}

func replaceMessageAt(messages []models.Message, i int, m models.Message) []models.Message {
	out := make([]models.Message, len(messages))
	copy(out, messages)
	out[i] = m
	return out
}

func sortConversations(conversations []models.Conversation) {
	sort.SliceStable(conversations, func(i, j int) bool {
		return timeAfter(conversations[i].LastMessageAt, conversations[j].LastMessageAt)
	})
}

// timeAfter orders nil timestamps last.
func timeAfter(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.After(*b)
	}
}
