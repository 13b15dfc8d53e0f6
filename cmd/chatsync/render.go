package main

import (
	"fmt"
	"strings"

	"github.com/vdavid/chatsync/internal/chat"
	"github.com/vdavid/chatsync/internal/models"
)

// renderUpdates describes the difference between two snapshots as lines for
// the terminal: connectivity changes, the header of a newly opened view and
// new, changed or removed messages in the active view.
func renderUpdates(prev, next *chat.State) []string {
	var lines []string

	if prev == nil || chat.ConnectivityLabel(prev) != chat.ConnectivityLabel(next) {
		lines = append(lines, "* "+chat.ConnectivityLabel(next))
	}

	viewChanged := prev == nil ||
		prev.ActiveConversationID != next.ActiveConversationID ||
		prev.ActiveThreadID != next.ActiveThreadID
	if viewChanged {
		if header := viewHeader(next); header != "" {
			lines = append(lines, header)
		}
	}

	var before []models.Message
	if !viewChanged {
		before = chat.ActiveMessages(prev)
	}
	lines = append(lines, messageChanges(next, before, chat.ActiveMessages(next))...)

	if next.ActiveConversationID != "" {
		label := chat.TypingLabel(next, next.ActiveConversationID)
		if prev == nil || label != chat.TypingLabel(prev, next.ActiveConversationID) {
			if label != "" {
				lines = append(lines, "* "+label)
			}
		}
	}

	return lines
}

func viewHeader(s *chat.State) string {
	conv, ok := s.Conversation(s.ActiveConversationID)
	if !ok {
		return ""
	}
	header := "== " + chat.ConversationDisplayName(conv, s.LocalUserID)
	if thread, ok := s.Thread(s.ActiveThreadID); ok {
		header += " / " + thread.Name
	}
	return header + " =="
}

// messageChanges compares two renderings of the same view. A confirmed send
// replaces its pending copy, so it is matched by correlation id rather than
// reported as a removal plus an addition.
func messageChanges(s *chat.State, before, after []models.Message) []string {
	old := make(map[string]models.Message, len(before))
	for _, m := range before {
		old[m.ID] = m
	}

	var lines []string
	seen := make(map[string]bool, len(after))
	for _, m := range after {
		previous, ok := old[m.ID]
		if !ok && m.ClientMessageID != "" {
			previous, ok = old[m.ClientMessageID]
			seen[m.ClientMessageID] = true
		}
		seen[m.ID] = true

		switch {
		case !ok:
			lines = append(lines, formatMessage(s, m))
		case previous.Content != m.Content || previous.Status != m.Status || len(previous.Reactions) != len(m.Reactions):
			lines = append(lines, "~ "+formatMessage(s, m))
		}
	}

	for _, m := range before {
		if !seen[m.ID] {
			lines = append(lines, fmt.Sprintf("- [%s] removed", m.ID))
		}
	}
	return lines
}

func formatMessage(s *chat.State, m models.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", m.ID, m.Sender.Name, m.Content)

	if target, ok := chat.ReplyTarget(s, m); ok {
		fmt.Fprintf(&b, " (reply to %s)", target.Sender.Name)
	}
	for _, att := range m.Attachments {
		name := att.Name
		if name == "" {
			name = att.FileID
		}
		fmt.Fprintf(&b, " [file: %s]", name)
	}
	if groups := chat.GroupedReactions(m, s.LocalUserID); len(groups) > 0 {
		parts := make([]string, 0, len(groups))
		for _, g := range groups {
			parts = append(parts, fmt.Sprintf("%s %d", g.Emoji, g.Count))
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	if m.IsEdited() {
		b.WriteString(" (edited)")
	}

	switch m.Status {
	case models.StatusPending:
		b.WriteString(" (sending)")
	case models.StatusFailed:
		fmt.Fprintf(&b, " (failed: %s)", m.FailureReason)
	}
	return b.String()
}

func conversationLines(s *chat.State) []string {
	lines := make([]string, 0, len(s.Conversations))
	for _, conv := range s.Conversations {
		line := fmt.Sprintf("%s  %s", conv.ID, chat.ConversationDisplayName(conv, s.LocalUserID))
		if unread := chat.UnreadBadge(conv); unread > 0 {
			line += fmt.Sprintf(" (%d)", unread)
		}
		if conv.LastMessage != "" {
			line += "  " + conv.LastMessage
		}
		lines = append(lines, line)
	}
	return lines
}

func threadLines(s *chat.State) []string {
	threads := s.Threads[s.ActiveConversationID]
	lines := make([]string, 0, len(threads))
	for _, thread := range threads {
		line := fmt.Sprintf("%s  %s [%s] %d messages", thread.ID, thread.Name, thread.Type, thread.MessageCount)
		if thread.UnreadCount > 0 {
			line += fmt.Sprintf(" (%d unread)", thread.UnreadCount)
		}
		if preview := chat.ThreadPreview(s, thread); preview != "" {
			line += "  " + preview
		}
		lines = append(lines, line)
	}
	return lines
}
