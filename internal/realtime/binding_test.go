package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/chatsync/internal/api"
	"github.com/vdavid/chatsync/internal/auth"
	"github.com/vdavid/chatsync/internal/chat"
	"github.com/vdavid/chatsync/internal/models"
)

// fakeListener records registrations so tests can drive them directly.
type fakeListener struct {
	handlers       map[string]Handler
	statusHandlers []StatusHandler
	removed        int
}

func newFakeListener() *fakeListener {
	return &fakeListener{handlers: make(map[string]Handler)}
}

func (f *fakeListener) On(event string, handler Handler) func() {
	f.handlers[event] = handler
	return func() {
		delete(f.handlers, event)
		f.removed++
	}
}

func (f *fakeListener) OnStatus(handler StatusHandler) func() {
	f.statusHandlers = append(f.statusHandlers, handler)
	return func() { f.removed++ }
}

func TestBind_DispatchesDecodedEvents(t *testing.T) {
	listener := newFakeListener()
	store := chat.NewStore(chat.NewState("alice"))
	Bind(listener, store)

	listener.handlers[models.EventMessage](json.RawMessage(
		`{"id":"m1","conversationId":"c1","sender":{"id":"bob","name":"Bob"},"content":"hi","type":"text","createdAt":"2026-03-01T10:00:00Z"}`,
	))
	listener.handlers[models.EventPresence](json.RawMessage(`{"userId":"bob","online":true}`))

	state := store.State()
	require.Len(t, state.Messages["c1"], 1)
	assert.Equal(t, "hi", state.Messages["c1"][0].Content)
	assert.True(t, state.Presence["bob"])
}

func TestBind_DropsMalformedEvents(t *testing.T) {
	listener := newFakeListener()
	store := chat.NewStore(chat.NewState("alice"))
	before := store.State()
	Bind(listener, store)

	listener.handlers[models.EventMessage](json.RawMessage(`{"id":`))

	assert.Same(t, before, store.State())
}

func TestBind_StatusBecomesConnectionChanged(t *testing.T) {
	listener := newFakeListener()
	store := chat.NewStore(chat.NewState("alice"))
	Bind(listener, store)

	require.Len(t, listener.statusHandlers, 1)
	listener.statusHandlers[0](StatusReconnecting, errors.New("connection reset"))

	assert.Equal(t, chat.ConnectionState{Status: chat.ConnectionReconnecting, Error: "connection reset"}, store.State().Connection)
	assert.Equal(t, "reconnecting", chat.ConnectivityLabel(store.State()))

	listener.statusHandlers[0](StatusConnected, nil)
	assert.Equal(t, chat.ConnectionState{Status: chat.ConnectionConnected}, store.State().Connection)
}

func TestBind_UnbindRemovesEveryListener(t *testing.T) {
	listener := newFakeListener()
	unbind := Bind(listener, chat.NewStore(chat.NewState("alice")))

	unbind()

	assert.Empty(t, listener.handlers)
	assert.Equal(t, len(ServerEvents)+1, listener.removed)
}

// client is one signed-in user wired the way cmd/chatsync wires a session.
type client struct {
	store     *chat.Store
	commander *chat.Commander
	manager   *Manager
}

func newClient(t *testing.T, b backend, token, userID, userName string) *client {
	t.Helper()

	session := auth.NewSession(token, userID, userName)
	rest := api.NewClient(b.url, session, 5*time.Second)
	manager := newTestManager(t, b.url, token)
	store := chat.NewStore(chat.NewState(userID))
	Bind(manager, store)

	commander := chat.NewCommander(store, chat.Dependencies{
		Chat:       rest,
		Drive:      rest,
		Trash:      rest,
		Governance: rest,
		Classifier: rest,
		Transport:  manager,
		Session:    session,
	})

	require.NoError(t, manager.Connect(context.Background()))
	return &client{store: store, commander: commander, manager: manager}
}

func TestEndToEnd_SendMessageAppearsOnceForBothUsers(t *testing.T) {
	b := newBackend(t)
	alice := newClient(t, b, b.aliceToken, "alice", "Alice")
	bob := newClient(t, b, b.bobToken, "bob", "Bob")
	ctx := context.Background()

	_, err := alice.commander.LoadConversations(ctx)
	require.NoError(t, err)
	require.NoError(t, alice.commander.SelectConversation(ctx, "c1"))
	_, err = bob.commander.LoadConversations(ctx)
	require.NoError(t, err)
	require.NoError(t, bob.manager.JoinRoom("c1"))
	require.Eventually(t, func() bool { return b.server.RoomSize("c1") == 2 }, waitFor, tick)

	sent, err := alice.commander.SendMessage(ctx, models.SendMessageRequest{ConversationID: "c1", Content: "hello bob"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		msgs := bob.store.State().Messages["c1"]
		return len(msgs) == 1 && msgs[0].ID == sent.ID
	}, waitFor, tick)
	time.Sleep(100 * time.Millisecond)

	aliceMessages := alice.store.State().Messages["c1"]
	require.Len(t, aliceMessages, 1)
	assert.Equal(t, sent.ID, aliceMessages[0].ID)
	assert.Equal(t, models.StatusSent, aliceMessages[0].Status)

	aliceConv, ok := alice.store.State().Conversation("c1")
	require.True(t, ok)
	assert.Equal(t, 0, chat.UnreadBadge(aliceConv))

	bobConv, ok := bob.store.State().Conversation("c1")
	require.True(t, ok)
	assert.Equal(t, 1, chat.UnreadBadge(bobConv))
	assert.Equal(t, "hello bob", bobConv.LastMessage)
}

func TestEndToEnd_ReactionRoundTrip(t *testing.T) {
	b := newBackend(t)
	alice := newClient(t, b, b.aliceToken, "alice", "Alice")
	bob := newClient(t, b, b.bobToken, "bob", "Bob")
	ctx := context.Background()

	require.NoError(t, alice.commander.SelectConversation(ctx, "c1"))
	require.NoError(t, bob.commander.SelectConversation(ctx, "c1"))
	require.Eventually(t, func() bool { return b.server.RoomSize("c1") == 2 }, waitFor, tick)

	sent, err := alice.commander.SendMessage(ctx, models.SendMessageRequest{ConversationID: "c1", Content: "vote"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, ok := bob.store.State().Message(sent.ID)
		return ok
	}, waitFor, tick)

	require.NoError(t, bob.commander.AddReaction(ctx, sent.ID, "👍"))
	require.NoError(t, alice.commander.AddReaction(ctx, sent.ID, "👍"))

	require.Eventually(t, func() bool {
		m, ok := alice.store.State().Message(sent.ID)
		if !ok {
			return false
		}
		groups := chat.GroupedReactions(m, "alice")
		return len(groups) == 1 && groups[0].Count == 2 && groups[0].CurrentUserReacted
	}, waitFor, tick)

	require.NoError(t, alice.commander.RemoveReaction(ctx, sent.ID, "👍"))
	require.Eventually(t, func() bool {
		m, ok := bob.store.State().Message(sent.ID)
		if !ok {
			return false
		}
		groups := chat.GroupedReactions(m, "bob")
		return len(groups) == 1 && groups[0].Count == 1 && groups[0].CurrentUserReacted
	}, waitFor, tick)
}

func TestEndToEnd_FailedSendStaysVisible(t *testing.T) {
	b := newBackend(t)
	alice := newClient(t, b, b.aliceToken, "alice", "Alice")
	ctx := context.Background()
	require.NoError(t, alice.commander.SelectConversation(ctx, "c1"))

	b.server.FailNext("POST", "/api/chat/messages", 503)
	_, err := alice.commander.SendMessage(ctx, models.SendMessageRequest{ConversationID: "c1", Content: "flaky"})

	require.Error(t, err)
	assert.Equal(t, chat.KindNetwork, chat.Classify(err))
	failed := chat.FailedMessages(alice.store.State(), "c1")
	require.Len(t, failed, 1)
	assert.Equal(t, "flaky", failed[0].Content)

	retried, err := alice.commander.RetryMessage(ctx, failed[0].ID)
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	msgs := alice.store.State().Messages["c1"]
	require.Len(t, msgs, 1)
	assert.Equal(t, retried.ID, msgs[0].ID)
	assert.Empty(t, chat.FailedMessages(alice.store.State(), "c1"))
}
