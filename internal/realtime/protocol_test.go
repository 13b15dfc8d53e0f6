package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/chatsync/internal/chat"
	"github.com/vdavid/chatsync/internal/models"
)

func TestDecode(t *testing.T) {
	readAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		event string
		data  string
		want  []chat.Event
	}{
		{
			name:  "message",
			event: models.EventMessage,
			data:  `{"id":"m1","conversationId":"c1","sender":{"id":"bob","name":"Bob"},"content":"hi","type":"text","createdAt":"2026-03-01T10:00:00Z","clientMessageId":"temp-1"}`,
			want: []chat.Event{chat.MessageCreated{Message: models.Message{
				ID:              "m1",
				ConversationID:  "c1",
				Sender:          models.Sender{ID: "bob", Name: "Bob"},
				Content:         "hi",
				Type:            models.MessageText,
				CreatedAt:       readAt,
				ClientMessageID: "temp-1",
			}}},
		},
		{
			name:  "message updated",
			event: models.EventMessageUpdated,
			data:  `{"id":"m1","conversationId":"c1","content":"edited","editedAt":"2026-03-01T10:00:00Z"}`,
			want:  []chat.Event{chat.MessageUpdated{MessageID: "m1", ConversationID: "c1", Content: "edited", EditedAt: &readAt}},
		},
		{
			name:  "message deleted",
			event: models.EventMessageDeleted,
			data:  `{"messageId":"m1","conversationId":"c1"}`,
			want:  []chat.Event{chat.MessageDeleted{MessageID: "m1", ConversationID: "c1"}},
		},
		{
			name:  "reaction added",
			event: models.EventMessageReaction,
			data:  `{"messageId":"m1","emoji":"👍","userId":"bob","userName":"Bob","action":"add"}`,
			want:  []chat.Event{chat.ReactionAdded{Reaction: models.Reaction{MessageID: "m1", Emoji: "👍", UserID: "bob", UserName: "Bob"}}},
		},
		{
			name:  "reaction removed",
			event: models.EventMessageReaction,
			data:  `{"messageId":"m1","emoji":"👍","userId":"bob","action":"remove"}`,
			want:  []chat.Event{chat.ReactionRemoved{Reaction: models.Reaction{MessageID: "m1", Emoji: "👍", UserID: "bob"}}},
		},
		{
			name:  "thread created",
			event: models.EventThreadCreated,
			data:  `{"id":"t1","conversationId":"c1","name":"Plan","type":"TOPIC","messageCount":0,"unreadCount":0}`,
			want:  []chat.Event{chat.ThreadCreated{Thread: models.Thread{ID: "t1", ConversationID: "c1", Name: "Plan", Type: models.ThreadTopic}}},
		},
		{
			name:  "read receipt",
			event: models.EventReadReceipt,
			data:  `{"conversationId":"c1","messageId":"m1","userId":"bob","readAt":"2026-03-01T10:00:00Z"}`,
			want: []chat.Event{chat.ReadReceiptAdded{
				ConversationID: "c1",
				MessageID:      "m1",
				Receipt:        models.ReadReceipt{UserID: "bob", ReadAt: readAt},
			}},
		},
		{
			name:  "typing",
			event: models.EventUserTyping,
			data:  `{"conversationId":"c1","userId":"bob","userName":"Bob","isTyping":true}`,
			want:  []chat.Event{chat.TypingStarted{Indicator: models.TypingIndicator{ConversationID: "c1", UserID: "bob", UserName: "Bob"}}},
		},
		{
			name:  "stopped typing",
			event: models.EventUserStoppedTyping,
			data:  `{"conversationId":"c1","userId":"bob","isTyping":false}`,
			want:  []chat.Event{chat.TypingStopped{Indicator: models.TypingIndicator{ConversationID: "c1", UserID: "bob"}}},
		},
		{
			name:  "presence",
			event: models.EventPresence,
			data:  `{"userId":"bob","online":true}`,
			want:  []chat.Event{chat.PresenceChanged{UserID: "bob", Online: true}},
		},
		{
			name:  "server error decodes to nothing",
			event: models.EventError,
			data:  `{"message":"cannot join conversation"}`,
			want:  nil,
		},
		{
			name:  "unknown event is ignored",
			event: "something_new",
			data:  `{"x":1}`,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.event, json.RawMessage(tt.data))

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		event string
		data  string
	}{
		{name: "malformed json", event: models.EventMessage, data: `{"id":`},
		{name: "empty payload", event: models.EventMessageDeleted, data: ``},
		{name: "message without id", event: models.EventMessage, data: `{"conversationId":"c1"}`},
		{name: "unknown reaction action", event: models.EventMessageReaction, data: `{"messageId":"m1","emoji":"x","userId":"u","action":"toggle"}`},
		{name: "incomplete reaction", event: models.EventMessageReaction, data: `{"messageId":"m1","action":"add"}`},
		{name: "typing without user", event: models.EventUserTyping, data: `{"conversationId":"c1"}`},
		{name: "presence without user", event: models.EventPresence, data: `{"online":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.event, json.RawMessage(tt.data))
			assert.Error(t, err)
		})
	}
}
