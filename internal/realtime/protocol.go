package realtime

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/vdavid/chatsync/internal/chat"
	"github.com/vdavid/chatsync/internal/models"
)

// ServerEvents lists the broadcasts Decode understands.
var ServerEvents = []string{
	models.EventMessage,
	models.EventMessageUpdated,
	models.EventMessageDeleted,
	models.EventMessageReaction,
	models.EventThreadCreated,
	models.EventReadReceipt,
	models.EventUserTyping,
	models.EventUserStoppedTyping,
	models.EventPresence,
	models.EventError,
}

// Decode turns one server broadcast into reducer events. Unknown events
// decode to nothing.
func Decode(event string, data json.RawMessage) ([]chat.Event, error) {
	switch event {
	case models.EventMessage:
		var m models.Message
		if err := unmarshal(event, data, &m); err != nil {
			return nil, err
		}
		if m.ID == "" || m.ConversationID == "" {
			return nil, fmt.Errorf("%s: missing message or conversation id", event)
		}
		return []chat.Event{chat.MessageCreated{Message: m}}, nil

	case models.EventMessageUpdated:
		var m models.Message
		if err := unmarshal(event, data, &m); err != nil {
			return nil, err
		}
		if m.ID == "" {
			return nil, fmt.Errorf("%s: missing message id", event)
		}
		return []chat.Event{chat.MessageUpdated{
			MessageID:      m.ID,
			ConversationID: m.ConversationID,
			Content:        m.Content,
			EditedAt:       m.EditedAt,
		}}, nil

	case models.EventMessageDeleted:
		var p models.MessageDeletedPayload
		if err := unmarshal(event, data, &p); err != nil {
			return nil, err
		}
		if p.MessageID == "" {
			return nil, fmt.Errorf("%s: missing message id", event)
		}
		return []chat.Event{chat.MessageDeleted{MessageID: p.MessageID, ConversationID: p.ConversationID}}, nil

	case models.EventMessageReaction:
		var p models.ReactionPayload
		if err := unmarshal(event, data, &p); err != nil {
			return nil, err
		}
		if p.MessageID == "" || p.Emoji == "" || p.UserID == "" {
			return nil, fmt.Errorf("%s: incomplete reaction", event)
		}
		reaction := models.Reaction{MessageID: p.MessageID, Emoji: p.Emoji, UserID: p.UserID, UserName: p.UserName}
		switch p.Action {
		case models.ReactionActionAdd:
			return []chat.Event{chat.ReactionAdded{Reaction: reaction}}, nil
		case models.ReactionActionRemove:
			return []chat.Event{chat.ReactionRemoved{Reaction: reaction}}, nil
		default:
			return nil, fmt.Errorf("%s: unknown action %q", event, p.Action)
		}

	case models.EventThreadCreated:
		var t models.Thread
		if err := unmarshal(event, data, &t); err != nil {
			return nil, err
		}
		if t.ID == "" || t.ConversationID == "" {
			return nil, fmt.Errorf("%s: missing thread or conversation id", event)
		}
		return []chat.Event{chat.ThreadCreated{Thread: t}}, nil

	case models.EventReadReceipt:
		var p models.ReadReceiptPayload
		if err := unmarshal(event, data, &p); err != nil {
			return nil, err
		}
		if p.MessageID == "" || p.UserID == "" {
			return nil, fmt.Errorf("%s: missing message or user id", event)
		}
		return []chat.Event{chat.ReadReceiptAdded{
			ConversationID: p.ConversationID,
			MessageID:      p.MessageID,
			Receipt:        models.ReadReceipt{UserID: p.UserID, ReadAt: p.ReadAt},
		}}, nil

	case models.EventUserTyping, models.EventUserStoppedTyping:
		var p models.TypingPayload
		if err := unmarshal(event, data, &p); err != nil {
			return nil, err
		}
		if p.ConversationID == "" || p.UserID == "" {
			return nil, fmt.Errorf("%s: missing conversation or user id", event)
		}
		indicator := models.TypingIndicator{ConversationID: p.ConversationID, UserID: p.UserID, UserName: p.UserName}
		if event == models.EventUserTyping {
			return []chat.Event{chat.TypingStarted{Indicator: indicator}}, nil
		}
		return []chat.Event{chat.TypingStopped{Indicator: indicator}}, nil

	case models.EventPresence:
		var p models.PresencePayload
		if err := unmarshal(event, data, &p); err != nil {
			return nil, err
		}
		if p.UserID == "" {
			return nil, fmt.Errorf("%s: missing user id", event)
		}
		return []chat.Event{chat.PresenceChanged{UserID: p.UserID, Online: p.Online}}, nil

	case models.EventError:
		var p models.ErrorPayload
		if err := unmarshal(event, data, &p); err != nil {
			return nil, err
		}
		log.Printf("Realtime: Server reported error: %s", p.Message)
		return nil, nil
	}

	return nil, nil
}

func unmarshal(event string, data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%s: empty payload", event)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", event, err)
	}
	return nil
}
