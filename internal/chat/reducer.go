package chat

import (
	"sort"

	"github.com/vdavid/chatsync/internal/models"
)

// Reduce applies one event and returns the resulting snapshot. The input is
// never modified; when an event changes nothing the same pointer comes back.
// Events are applied in the order they are given, with no reordering by
// timestamp.
func Reduce(s *State, event Event) *State {
	switch e := event.(type) {
	case MessageCreated:
		return reduceMessageCreated(s, e.Message)
	case MessageUpdated:
		return reduceMessageUpdated(s, e)
	case MessageDeleted:
		return removeMessage(s, e.ConversationID, e.MessageID)
	case MessageRemoved:
		return removeMessage(s, e.ConversationID, e.MessageID)
	case MessageRestored:
		return reduceMessageRestored(s, e.Message)
	case ReactionAdded:
		return reduceReactionAdded(s, e.Reaction)
	case ReactionRemoved:
		return reduceReactionRemoved(s, e.Reaction)
	case ReactionRestored:
		return reduceReactionRestored(s, e)
	case TypingStarted:
		return reduceTypingStarted(s, e.Indicator)
	case TypingStopped:
		return reduceTypingStopped(s, e.Indicator)
	case ThreadCreated:
		return reduceThreadCreated(s, e.Thread)
	case PresenceChanged:
		return reducePresence(s, e)
	case ReadReceiptAdded:
		return reduceReadReceipt(s, e)
	case ConversationsLoaded:
		return reduceConversationsLoaded(s, e.Conversations)
	case MessagesLoaded:
		return reduceMessagesLoaded(s, e.ConversationID, "", e.Messages)
	case ThreadMessagesLoaded:
		return reduceMessagesLoaded(s, e.ConversationID, e.ThreadID, e.Messages)
	case ThreadsLoaded:
		return reduceThreadsLoaded(s, e)
	case ConversationSelected:
		next := s.clone()
		next.ActiveConversationID = e.ConversationID
		next.ActiveThreadID = ""
		next.markConversationRead(e.ConversationID)
		return next
	case ThreadSelected:
		next := s.clone()
		next.ActiveThreadID = e.ThreadID
		next.markThreadRead(e.ThreadID)
		return next
	case ConversationRead:
		next := s.clone()
		next.markConversationRead(e.ConversationID)
		return next
	case MessageQueued:
		return reduceMessageQueued(s, e.Message)
	case MessageConfirmed:
		return reduceMessageConfirmed(s, e)
	case MessageFailed:
		return updateLocalStatus(s, e.CorrelationID, models.StatusFailed, e.Reason)
	case MessageRetried:
		return updateLocalStatus(s, e.CorrelationID, models.StatusPending, "")
	case MessageDiscarded:
		return reduceMessageDiscarded(s, e.CorrelationID)
	case ConnectionChanged:
		if s.Connection.Status == e.Status && s.Connection.Error == e.Error {
			return s
		}
		next := s.clone()
		next.Connection = ConnectionState{Status: e.Status, Error: e.Error}
		return next
	default:
		return s
	}
}

func reduceMessageCreated(s *State, m models.Message) *State {
	convID := m.ConversationID
	if convID == "" || m.ID == "" {
		return s
	}

	messages := s.Messages[convID]
	if indexOfMessage(messages, m.ID) >= 0 {
		return s
	}

	m.Status = models.StatusSent
	m.FailureReason = ""
	next := s.clone()

	// The broadcast of our own send may beat the POST response.
	if m.ClientMessageID != "" {
		if i := indexOfLocal(messages, m.ClientMessageID); i >= 0 {
			m.ThreadID = keepThread(messages[i].ThreadID, m.ThreadID)
			next.Messages[convID] = insertMessage(removeMessageAt(messages, i), m)
			next.touchConversation(m, false)
			next.touchThread(m, false)
			return next
		}
	}

	fromOther := m.Sender.ID != s.LocalUserID
	next.Messages[convID] = insertMessage(messages, m)
	next.touchConversation(m, fromOther && convID != s.ActiveConversationID)
	next.touchThread(m, fromOther && m.ThreadID != s.ActiveThreadID)
	return next
}

func reduceMessageUpdated(s *State, e MessageUpdated) *State {
	convID, i := s.locateMessage(e.ConversationID, e.MessageID)
	if i < 0 {
		return s
	}

	m := s.Messages[convID][i]
	m.Content = e.Content
	m.EditedAt = e.EditedAt

	next := s.clone()
	next.Messages[convID] = replaceMessageAt(s.Messages[convID], i, m)
	return next
}

func removeMessage(s *State, convID, messageID string) *State {
	convID, i := s.locateMessage(convID, messageID)
	if i < 0 {
		return s
	}

	next := s.clone()
	next.Messages[convID] = removeMessageAt(s.Messages[convID], i)
	return next
}

func reduceMessageRestored(s *State, m models.Message) *State {
	if m.ConversationID == "" {
		return s
	}
	if _, i := s.locateMessage(m.ConversationID, m.ID); i >= 0 {
		return s
	}

	next := s.clone()
	next.Messages[m.ConversationID] = insertMessage(s.Messages[m.ConversationID], m)
	return next
}

func reduceReactionAdded(s *State, r models.Reaction) *State {
	convID, i := s.locateMessage("", r.MessageID)
	if i < 0 {
		return s
	}

	m := s.Messages[convID][i]
	for _, existing := range m.Reactions {
		if existing.Matches(r.MessageID, r.Emoji, r.UserID) {
			return s
		}
	}

	reactions := make([]models.Reaction, 0, len(m.Reactions)+1)
	m.Reactions = append(append(reactions, m.Reactions...), r)

	next := s.clone()
	next.Messages[convID] = replaceMessageAt(s.Messages[convID], i, m)
	return next
}

func reduceReactionRemoved(s *State, r models.Reaction) *State {
	convID, i := s.locateMessage("", r.MessageID)
	if i < 0 {
		return s
	}

	m := s.Messages[convID][i]
	reactions := make([]models.Reaction, 0, len(m.Reactions))
	for _, existing := range m.Reactions {
		if !existing.Matches(r.MessageID, r.Emoji, r.UserID) {
			reactions = append(reactions, existing)
		}
	}
	if len(reactions) == len(m.Reactions) {
		return s
	}
	m.Reactions = reactions

	next := s.clone()
	next.Messages[convID] = replaceMessageAt(s.Messages[convID], i, m)
	return next
}

// reduceReactionRestored puts a reaction back at the position it was removed
// from, so grouping order is unchanged by a failed removal.
func reduceReactionRestored(s *State, e ReactionRestored) *State {
	r := e.Reaction
	convID, i := s.locateMessage("", r.MessageID)
	if i < 0 {
		return s
	}

	m := s.Messages[convID][i]
	if hasReaction(m, r) {
		return s
	}
	at := min(max(e.Index, 0), len(m.Reactions))

	reactions := make([]models.Reaction, 0, len(m.Reactions)+1)
	reactions = append(reactions, m.Reactions[:at]...)
	reactions = append(reactions, r)
	m.Reactions = append(reactions, m.Reactions[at:]...)

	next := s.clone()
	next.Messages[convID] = replaceMessageAt(s.Messages[convID], i, m)
	return next
}

func reduceTypingStarted(s *State, ind models.TypingIndicator) *State {
	if ind.UserID == "" || ind.UserID == s.LocalUserID || ind.ConversationID == "" {
		return s
	}

	current := s.Typing[ind.ConversationID]
	for _, t := range current {
		if t.UserID == ind.UserID {
			return s
		}
	}

	typing := make([]models.TypingIndicator, 0, len(current)+1)
	next := s.clone()
	next.Typing[ind.ConversationID] = append(append(typing, current...), ind)
	return next
}

func reduceTypingStopped(s *State, ind models.TypingIndicator) *State {
	current := s.Typing[ind.ConversationID]
	typing := make([]models.TypingIndicator, 0, len(current))
	for _, t := range current {
		if t.UserID != ind.UserID {
			typing = append(typing, t)
		}
	}
	if len(typing) == len(current) {
		return s
	}

	next := s.clone()
	if len(typing) == 0 {
		delete(next.Typing, ind.ConversationID)
	} else {
		next.Typing[ind.ConversationID] = typing
	}
	return next
}

func reduceThreadCreated(s *State, t models.Thread) *State {
	if t.ID == "" || t.ConversationID == "" {
		return s
	}

	current := s.Threads[t.ConversationID]
	for _, existing := range current {
		if existing.ID == t.ID {
			return s
		}
	}

	threads := make([]models.Thread, 0, len(current)+1)
	next := s.clone()
	next.Threads[t.ConversationID] = append(append(threads, current...), t)
	return next
}

func reducePresence(s *State, e PresenceChanged) *State {
	if e.UserID == "" {
		return s
	}

	next := s.clone()
	next.Presence[e.UserID] = e.Online

	var conversations []models.Conversation
	for i, conv := range s.Conversations {
		for j, p := range conv.Participants {
			if p.UserID != e.UserID || p.Online == e.Online {
				continue
			}
			if conversations == nil {
				conversations = append([]models.Conversation(nil), s.Conversations...)
			}
			participants := append([]models.Participant(nil), conv.Participants...)
			participants[j].Online = e.Online
			conversations[i].Participants = participants
		}
	}
	if conversations != nil {
		next.Conversations = conversations
	}
	return next
}

func reduceReadReceipt(s *State, e ReadReceiptAdded) *State {
	convID, i := s.locateMessage(e.ConversationID, e.MessageID)
	if i < 0 || e.Receipt.UserID == "" {
		return s
	}

	m := s.Messages[convID][i]
	for _, r := range m.ReadBy {
		if r.UserID == e.Receipt.UserID {
			return s
		}
	}

	readBy := make([]models.ReadReceipt, 0, len(m.ReadBy)+1)
	m.ReadBy = append(append(readBy, m.ReadBy...), e.Receipt)

	next := s.clone()
	next.Messages[convID] = replaceMessageAt(s.Messages[convID], i, m)
	return next
}

func reduceConversationsLoaded(s *State, loaded []models.Conversation) *State {
	conversations := make([]models.Conversation, 0, len(loaded))
	seen := make(map[string]bool, len(loaded))
	for _, conv := range loaded {
		if conv.ID == "" || seen[conv.ID] {
			continue
		}
		seen[conv.ID] = true
		if conv.ID == s.ActiveConversationID {
			conv.UnreadCount = 0
		}
		conversations = append(conversations, conv)
	}
	sortConversations(conversations)

	next := s.clone()
	next.Conversations = conversations
	return next
}

// reduceMessagesLoaded merges fetched messages into what is already known,
// keyed by message id across conversation and thread fetches. Fetched copies
// win, except that a thread id already held is never replaced. Pending
// entries whose correlation id came back are dropped.
func reduceMessagesLoaded(s *State, convID, threadID string, loaded []models.Message) *State {
	if convID == "" && threadID != "" {
		if t, ok := s.Thread(threadID); ok {
			convID = t.ConversationID
		}
	}
	if convID == "" && len(loaded) > 0 {
		convID = loaded[0].ConversationID
	}
	if convID == "" {
		return s
	}

	existing := s.Messages[convID]
	heldThread := make(map[string]string, len(existing))
	for _, m := range existing {
		heldThread[m.ID] = m.ThreadID
	}
	merged := make([]models.Message, 0, len(existing)+len(loaded))
	seen := make(map[string]bool, len(existing)+len(loaded))
	confirmed := make(map[string]bool)

	for _, m := range loaded {
		if m.ID == "" || seen[m.ID] {
			continue
		}
		if m.ConversationID == "" {
			m.ConversationID = convID
		}
		if m.ThreadID == "" {
			m.ThreadID = threadID
		}
		m.ThreadID = keepThread(heldThread[m.ID], m.ThreadID)
		m.Status = models.StatusSent
		m.FailureReason = ""
		seen[m.ID] = true
		if m.ClientMessageID != "" {
			confirmed[m.ClientMessageID] = true
		}
		merged = append(merged, m)
	}

	for _, m := range existing {
		if seen[m.ID] {
			continue
		}
		if m.Status != models.StatusSent && confirmed[m.ID] {
			continue
		}
		seen[m.ID] = true
		merged = append(merged, m)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.Before(merged[j].CreatedAt)
	})

	next := s.clone()
	next.Messages[convID] = merged
	return next
}

func reduceThreadsLoaded(s *State, e ThreadsLoaded) *State {
	if e.ConversationID == "" {
		return s
	}

	threads := make([]models.Thread, 0, len(e.Threads))
	seen := make(map[string]bool, len(e.Threads))
	for _, t := range e.Threads {
		if t.ID == "" || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		if t.ConversationID == "" {
			t.ConversationID = e.ConversationID
		}
		if t.ID == s.ActiveThreadID {
			t.UnreadCount = 0
		}
		threads = append(threads, t)
	}

	next := s.clone()
	next.Threads[e.ConversationID] = threads
	return next
}

func reduceMessageQueued(s *State, m models.Message) *State {
	if m.ConversationID == "" || m.ID == "" {
		return s
	}
	if _, i := s.locateMessage(m.ConversationID, m.ID); i >= 0 {
		return s
	}
	if m.ClientMessageID == "" {
		m.ClientMessageID = m.ID
	}
	m.Status = models.StatusPending

	next := s.clone()
	next.Messages[m.ConversationID] = insertMessage(s.Messages[m.ConversationID], m)
	return next
}

func reduceMessageConfirmed(s *State, e MessageConfirmed) *State {
	m := e.Message
	m.Status = models.StatusSent
	m.FailureReason = ""
	if m.ClientMessageID == "" {
		m.ClientMessageID = e.CorrelationID
	}

	tempConv, ti := s.locateMessage(m.ConversationID, e.CorrelationID)
	if m.ConversationID == "" {
		if ti < 0 {
			return s
		}
		m.ConversationID = tempConv
	}

	// The broadcast already delivered the server copy.
	if _, si := s.locateMessage(m.ConversationID, m.ID); si >= 0 {
		if ti < 0 {
			return s
		}
		next := s.clone()
		next.Messages[tempConv] = removeMessageAt(s.Messages[tempConv], ti)
		return next
	}

	next := s.clone()
	if ti >= 0 {
		m.ThreadID = keepThread(s.Messages[tempConv][ti].ThreadID, m.ThreadID)
		next.Messages[tempConv] = removeMessageAt(s.Messages[tempConv], ti)
	}
	next.Messages[m.ConversationID] = insertMessage(next.Messages[m.ConversationID], m)
	next.touchConversation(m, false)
	next.touchThread(m, false)
	return next
}

// keepThread returns the thread a message already belongs to, if any.
// Thread membership is fixed once set.
func keepThread(held, incoming string) string {
	if held != "" {
		return held
	}
	return incoming
}

func updateLocalStatus(s *State, correlationID string, status models.DeliveryStatus, reason string) *State {
	convID, i := s.locateMessage("", correlationID)
	if i < 0 {
		return s
	}

	m := s.Messages[convID][i]
	if m.Status == models.StatusSent {
		return s
	}
	m.Status = status
	m.FailureReason = reason

	next := s.clone()
	next.Messages[convID] = replaceMessageAt(s.Messages[convID], i, m)
	return next
}

func reduceMessageDiscarded(s *State, correlationID string) *State {
	convID, i := s.locateMessage("", correlationID)
	if i < 0 || s.Messages[convID][i].Status != models.StatusFailed {
		return s
	}

	next := s.clone()
	next.Messages[convID] = removeMessageAt(s.Messages[convID], i)
	return next
}

// indexOfLocal finds an unconfirmed message by its correlation id.
func indexOfLocal(messages []models.Message, correlationID string) int {
	for i := range messages {
		m := messages[i]
		if m.Status != models.StatusSent && (m.ID == correlationID || m.ClientMessageID == correlationID) {
			return i
		}
	}
	return -1
}

// touchConversation updates the list summary for m. Must be called on a clone.
func (s *State) touchConversation(m models.Message, countUnread bool) {
	i := s.conversationIndex(m.ConversationID)
	if i < 0 {
		return
	}

	conversations := append([]models.Conversation(nil), s.Conversations...)
	conv := &conversations[i]
	if conv.LastMessageAt == nil || !m.CreatedAt.Before(*conv.LastMessageAt) {
		createdAt := m.CreatedAt
		conv.LastMessage = summarize(m)
		conv.LastMessageAt = &createdAt
	}
	if countUnread {
		conv.UnreadCount++
	}

	sortConversations(conversations)
	s.Conversations = conversations
}

// touchThread bumps the counters of m's thread. Must be called on a clone.
func (s *State) touchThread(m models.Message, countUnread bool) {
	if m.ThreadID == "" {
		return
	}

	current := s.Threads[m.ConversationID]
	for i := range current {
		if current[i].ID != m.ThreadID {
			continue
		}
		threads := append([]models.Thread(nil), current...)
		t := &threads[i]
		t.MessageCount++
		if t.LastActivityAt == nil || t.LastActivityAt.Before(m.CreatedAt) {
			createdAt := m.CreatedAt
			t.LastActivityAt = &createdAt
		}
		if countUnread {
			t.UnreadCount++
		}
		s.Threads[m.ConversationID] = threads
		return
	}
}

// markConversationRead zeroes the unread counter. Must be called on a clone.
func (s *State) markConversationRead(convID string) {
	i := s.conversationIndex(convID)
	if i < 0 || s.Conversations[i].UnreadCount == 0 {
		return
	}

	conversations := append([]models.Conversation(nil), s.Conversations...)
	conversations[i].UnreadCount = 0
	s.Conversations = conversations
}

// markThreadRead zeroes the thread's unread counter. Must be called on a clone.
func (s *State) markThreadRead(threadID string) {
	if threadID == "" {
		return
	}

	for convID, current := range s.Threads {
		for i := range current {
			if current[i].ID != threadID {
				continue
			}
			if current[i].UnreadCount == 0 {
				return
			}
			threads := append([]models.Thread(nil), current...)
			threads[i].UnreadCount = 0
			s.Threads[convID] = threads
			return
		}
	}
}

func summarize(m models.Message) string {
	if m.Content != "" {
		return m.Content
	}
	if len(m.Attachments) > 0 && m.Attachments[0].Name != "" {
		return m.Attachments[0].Name
	}
	return "Attachment"
}
