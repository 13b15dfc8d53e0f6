package chat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vdavid/chatsync/internal/models"
)

const previewLength = 80

type ReactionGroup struct {
	Emoji              string
	Count              int
	CurrentUserReacted bool
	UserNames          []string
}

// GroupedReactions collapses a message's raw reactions by emoji, most used
// first. Ties keep the order in which each emoji was first seen.
func GroupedReactions(m models.Message, localUserID string) []ReactionGroup {
	groups := make([]ReactionGroup, 0, len(m.Reactions))
	index := make(map[string]int, len(m.Reactions))

	for _, r := range m.Reactions {
		i, ok := index[r.Emoji]
		if !ok {
			i = len(groups)
			index[r.Emoji] = i
			groups = append(groups, ReactionGroup{Emoji: r.Emoji})
		}
		g := &groups[i]
		g.Count++
		if r.UserID == localUserID {
			g.CurrentUserReacted = true
		}
		name := r.UserName
		if name == "" {
			name = r.UserID
		}
		g.UserNames = append(g.UserNames, name)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Count > groups[j].Count
	})
	return groups
}

func UnreadBadge(conv models.Conversation) int {
	if conv.UnreadCount < 0 {
		return 0
	}
	return conv.UnreadCount
}

func TotalUnread(s *State) int {
	total := 0
	for _, conv := range s.Conversations {
		total += UnreadBadge(conv)
	}
	return total
}

// ThreadPreview returns a snippet of the thread's most recent message, or ""
// for a thread without messages.
func ThreadPreview(s *State, thread models.Thread) string {
	messages := ThreadMessages(s, thread)
	if len(messages) == 0 {
		return ""
	}
	return snippet(summarize(messages[len(messages)-1]), previewLength)
}

// TopLevelMessages returns the conversation's main timeline: messages that do
// not belong to a thread.
func TopLevelMessages(s *State, conversationID string) []models.Message {
	var out []models.Message
	for _, m := range s.Messages[conversationID] {
		if m.ThreadID == "" {
			out = append(out, m)
		}
	}
	return out
}

func ThreadMessages(s *State, thread models.Thread) []models.Message {
	var out []models.Message
	for _, m := range s.Messages[thread.ConversationID] {
		if m.ThreadID == thread.ID {
			out = append(out, m)
		}
	}
	return out
}

// ActiveMessages returns what the message pane shows: the active thread if
// one is open, otherwise the active conversation's main timeline.
func ActiveMessages(s *State) []models.Message {
	if s.ActiveThreadID != "" {
		if thread, ok := s.Thread(s.ActiveThreadID); ok {
			return ThreadMessages(s, thread)
		}
	}
	return TopLevelMessages(s, s.ActiveConversationID)
}

// TypingUsers lists who is typing in a conversation, never the local user.
func TypingUsers(s *State, conversationID string) []string {
	var names []string
	for _, t := range s.Typing[conversationID] {
		if t.UserID == s.LocalUserID {
			continue
		}
		name := t.UserName
		if name == "" {
			name = t.UserID
		}
		names = append(names, name)
	}
	return names
}

// TypingLabel renders TypingUsers as a status line.
func TypingLabel(s *State, conversationID string) string {
	names := TypingUsers(s, conversationID)
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0] + " is typing..."
	case 2:
		return names[0] + " and " + names[1] + " are typing..."
	default:
		return fmt.Sprintf("%s and %d others are typing...", names[0], len(names)-1)
	}
}

// ConversationDisplayName prefers the explicit name. A direct conversation is
// named after the other participant, a group after its members.
func ConversationDisplayName(conv models.Conversation, localUserID string) string {
	if conv.Name != "" {
		return conv.Name
	}

	var others []string
	for _, p := range conv.Participants {
		if p.UserID != localUserID {
			others = append(others, p.Name)
		}
	}

	if conv.Type == models.ConversationDirect && len(others) > 0 {
		return others[0]
	}
	if len(others) == 0 {
		return "Conversation"
	}
	return strings.Join(others, ", ")
}

// ReplyTarget resolves a message's ReplyToID. The reply link is a lookup, so a
// target that was deleted or never loaded simply reports false.
func ReplyTarget(s *State, m models.Message) (models.Message, bool) {
	if m.ReplyToID == "" {
		return models.Message{}, false
	}
	return s.Message(m.ReplyToID)
}

func ConnectivityLabel(s *State) string {
	switch s.Connection.Status {
	case ConnectionConnected:
		return "online"
	case ConnectionConnecting, ConnectionReconnecting:
		return "reconnecting"
	default:
		return "offline"
	}
}

// FailedMessages lists sends awaiting retry or discard, oldest first.
func FailedMessages(s *State, conversationID string) []models.Message {
	var out []models.Message
	for _, m := range s.Messages[conversationID] {
		if m.Status == models.StatusFailed {
			out = append(out, m)
		}
	}
	return out
}

func snippet(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-1]) + "…"
}
